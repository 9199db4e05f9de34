package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/marcusvvm/chatbot-vertex-v2/config"
	"go.uber.org/zap"
)

// TokenSource supplies a bearer token for each request. In production this is
// backed by the service-account credentials; tests inject a static token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a TokenSource that always yields the given token
func StaticTokenSource(token string) TokenSource {
	return staticToken(token)
}

type staticToken string

func (t staticToken) Token(ctx context.Context) (string, error) { return string(t), nil }

// Client calls the Vertex AI REST API
type Client struct {
	projectID  string
	location   string
	endpoint   string
	httpClient *http.Client
	tokens     TokenSource
	maxRetries int
	logger     *zap.Logger
}

var _ Invoker = (*Client)(nil)
var _ CorpusManager = (*Client)(nil)
var _ FileManager = (*Client)(nil)

// NewClient creates a new Vertex AI client
func NewClient(cfg config.VertexConfig, tokens TokenSource, logger *zap.Logger) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s-aiplatform.googleapis.com", cfg.Location)
	}

	return &Client{
		projectID: cfg.ProjectID,
		location:  cfg.Location,
		endpoint:  endpoint,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		tokens:     tokens,
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
}

// GenerateContent calls models/{model}:generateContent
func (c *Client) GenerateContent(ctx context.Context, model string, req *GenerateRequest) (*GenerateResponse, error) {
	path := fmt.Sprintf("/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		c.projectID, c.location, model)

	var resp GenerateResponse
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("generate content completed",
		zap.String("model", model),
		zap.Int("total_tokens", resp.UsageMetadata.TotalTokenCount))

	return &resp, nil
}

// CreateCorpus creates a RAG corpus
func (c *Client) CreateCorpus(ctx context.Context, displayName, description string) (*Corpus, error) {
	path := fmt.Sprintf("/v1/projects/%s/locations/%s/ragCorpora", c.projectID, c.location)

	body := &Corpus{
		DisplayName: displayName,
		Description: description,
	}

	var corpus Corpus
	if err := c.doJSON(ctx, http.MethodPost, path, body, &corpus); err != nil {
		return nil, err
	}

	c.logger.Info("corpus created", zap.String("corpus", corpus.Name))
	return &corpus, nil
}

// ListCorpora lists RAG corpora
func (c *Client) ListCorpora(ctx context.Context) ([]*Corpus, error) {
	path := fmt.Sprintf("/v1/projects/%s/locations/%s/ragCorpora", c.projectID, c.location)

	var resp struct {
		RagCorpora []*Corpus `json:"ragCorpora"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.RagCorpora, nil
}

// DeleteCorpus deletes a RAG corpus
func (c *Client) DeleteCorpus(ctx context.Context, corpusID string) error {
	path := fmt.Sprintf("/v1/projects/%s/locations/%s/ragCorpora/%s", c.projectID, c.location, corpusID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// UploadFile imports a file into a RAG corpus via the media upload endpoint.
// Uploads are a single attempt, never retried.
func (c *Client) UploadFile(ctx context.Context, corpusID, displayName, description string, content io.Reader) (*RagFile, error) {
	path := fmt.Sprintf("/upload/v1/projects/%s/locations/%s/ragCorpora/%s/ragFiles:upload",
		c.projectID, c.location, corpusID)

	metadata, err := json.Marshal(map[string]any{
		"rag_file": map[string]string{
			"display_name": displayName,
			"description":  description,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode upload metadata: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("metadata", string(metadata)); err != nil {
		return nil, fmt.Errorf("failed to write upload metadata: %w", err)
	}
	part, err := mw.CreateFormFile("file", displayName)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to buffer upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload body: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var out struct {
		RagFile RagFile `json:"ragFile"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	c.logger.Info("rag file uploaded",
		zap.String("corpus_id", corpusID),
		zap.String("file", out.RagFile.Name))
	return &out.RagFile, nil
}

// GetFile returns one RAG file's details
func (c *Client) GetFile(ctx context.Context, corpusID, fileID string) (*RagFile, error) {
	path := fmt.Sprintf("/v1/projects/%s/locations/%s/ragCorpora/%s/ragFiles/%s",
		c.projectID, c.location, corpusID, fileID)

	var file RagFile
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// DeleteFile removes a file from a RAG corpus
func (c *Client) DeleteFile(ctx context.Context, corpusID, fileID string) error {
	path := fmt.Sprintf("/v1/projects/%s/locations/%s/ragCorpora/%s/ragFiles/%s",
		c.projectID, c.location, corpusID, fileID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// APIError is a non-2xx response from the Vertex API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vertex api error: status %d: %s", e.StatusCode, e.Body)
}

// doJSON performs one authenticated JSON round trip, retrying transient
// failures (5xx and 429) with a short linear backoff.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn("vertex request failed",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
			c.logger.Warn("vertex returned retryable status",
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt))
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	}

	return lastErr
}
