// Package documents manages the files inside a RAG corpus: direct upload,
// lookup, and idempotent deletion.
package documents

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/marcusvvm/chatbot-vertex-v2/internal/vertex"
	"go.uber.org/zap"
)

// MaxFileSize is the direct-upload limit imposed by the Vertex AI RAG API.
const MaxFileSize = 25 * 1024 * 1024

// allowedExtensions are the file types the RAG pipeline can index.
var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".txt":  {},
	".docx": {},
	".md":   {},
}

// Sentinel errors the handler maps to distinct HTTP statuses.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type, allowed: .pdf, .txt, .docx, .md")
	ErrFileTooLarge        = errors.New("file exceeds the 25MB upload limit")
	ErrEmptyFile           = errors.New("file is empty")
	ErrCorpusNotFound      = errors.New("corpus not found")
	ErrFileNotFound        = errors.New("file not found")
)

// Service manages RAG corpus files through the Vertex API
type Service struct {
	files  vertex.FileManager
	logger *zap.Logger
}

// NewService creates a new documents Service
func NewService(files vertex.FileManager, logger *zap.Logger) *Service {
	return &Service{
		files:  files,
		logger: logger,
	}
}

// Upload validates the file by extension and declared size, then imports it
// into the corpus. Vertex signals an unknown corpus as an INVALID_ARGUMENT
// failure of the indexing step, which is surfaced as ErrCorpusNotFound.
func (s *Service) Upload(ctx context.Context, corpusID, filename, description string, size int64, content io.Reader) (*vertex.RagFile, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, ErrUnsupportedFileType
	}
	if size > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	if size == 0 {
		return nil, ErrEmptyFile
	}

	file, err := s.files.UploadFile(ctx, corpusID, filename, description, content)
	if err != nil {
		if isCorpusMissing(err) {
			return nil, ErrCorpusNotFound
		}
		return nil, err
	}

	s.logger.Info("document uploaded",
		zap.String("corpus_id", corpusID),
		zap.String("file", file.Name),
		zap.Int64("size_bytes", size))
	return file, nil
}

// Get returns one file's details.
func (s *Service) Get(ctx context.Context, corpusID, fileID string) (*vertex.RagFile, error) {
	file, err := s.files.GetFile(ctx, corpusID, fileID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return file, nil
}

// Delete removes a file from the corpus. Deleting an absent file succeeds.
func (s *Service) Delete(ctx context.Context, corpusID, fileID string) error {
	err := s.files.DeleteFile(ctx, corpusID, fileID)
	if err != nil && !isNotFound(err) {
		return err
	}

	s.logger.Info("document deleted",
		zap.String("corpus_id", corpusID),
		zap.String("file_id", fileID))
	return nil
}

func isNotFound(err error) bool {
	var apiErr *vertex.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func isCorpusMissing(err error) bool {
	var apiErr *vertex.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == http.StatusNotFound {
		return true
	}
	return apiErr.StatusCode == http.StatusBadRequest && strings.Contains(apiErr.Body, "INVALID_ARGUMENT")
}
