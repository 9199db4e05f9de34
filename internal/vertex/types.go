// Package vertex talks to the Vertex AI generative and RAG APIs. The request
// translation is deliberately thin: generation parameters pass through to the
// API, which owns their validation.
package vertex

import (
	"context"
	"io"
)

// Content is one conversation turn
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is a content fragment. Only text parts are used by this service.
type Part struct {
	Text string `json:"text"`
}

// GenerateRequest is the wire request for generateContent
type GenerateRequest struct {
	Contents          []Content        `json:"contents"`
	SystemInstruction *Content         `json:"systemInstruction,omitempty"`
	GenerationConfig  map[string]any   `json:"generationConfig,omitempty"`
	SafetySettings    []SafetySetting  `json:"safetySettings,omitempty"`
	Tools             []map[string]any `json:"tools,omitempty"`
}

// SafetySetting is one harm-category threshold
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// GenerateResponse is the wire response for generateContent
type GenerateResponse struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Text returns the first candidate's concatenated text parts.
func (r *GenerateResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var out string
	for _, part := range r.Candidates[0].Content.Parts {
		out += part.Text
	}
	return out
}

// Corpus describes a RAG corpus
type Corpus struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
}

// RagFile describes a file imported into a RAG corpus. Name is the full
// resource name, ragCorpora/{corpus}/ragFiles/{file} under the project path.
type RagFile struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	CreateTime  string `json:"createTime,omitempty"`
	UpdateTime  string `json:"updateTime,omitempty"`
}

// Invoker sends a prepared generate request to a model
type Invoker interface {
	// GenerateContent calls the model named in the request path.
	GenerateContent(ctx context.Context, model string, req *GenerateRequest) (*GenerateResponse, error)
}

// CorpusManager manages RAG corpora
type CorpusManager interface {
	// CreateCorpus creates a new RAG corpus with the given display name.
	CreateCorpus(ctx context.Context, displayName, description string) (*Corpus, error)

	// ListCorpora lists the project's RAG corpora.
	ListCorpora(ctx context.Context) ([]*Corpus, error)

	// DeleteCorpus deletes a RAG corpus by id.
	DeleteCorpus(ctx context.Context, corpusID string) error
}

// FileManager manages the files inside a RAG corpus
type FileManager interface {
	// UploadFile imports a file into the corpus and returns its RagFile.
	UploadFile(ctx context.Context, corpusID, displayName, description string, content io.Reader) (*RagFile, error)

	// GetFile returns one file's details by id.
	GetFile(ctx context.Context, corpusID, fileID string) (*RagFile, error)

	// DeleteFile removes a file from the corpus.
	DeleteFile(ctx context.Context, corpusID, fileID string) error
}
