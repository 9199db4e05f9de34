package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/marcusvvm/chatbot-vertex-v2/internal/vertex"
	"github.com/marcusvvm/chatbot-vertex-v2/middleware"
	"github.com/marcusvvm/chatbot-vertex-v2/services/documents"
	"github.com/marcusvvm/chatbot-vertex-v2/utils"
	"go.uber.org/zap"
)

// uploadMemoryLimit bounds how much of the multipart body is held in memory
// before spilling to disk.
const uploadMemoryLimit = 32 << 20

// DocumentResponse represents a RAG file in API responses
type DocumentResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	CorpusID    string `json:"corpus_id,omitempty"`
	Status      string `json:"status,omitempty"`
	CreateTime  string `json:"create_time,omitempty"`
	UpdateTime  string `json:"update_time,omitempty"`
}

// DocumentHandler handles RAG file HTTP requests
type DocumentHandler struct {
	documents *documents.Service
	logger    *zap.Logger
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(service *documents.Service, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		documents: service,
		logger:    logger,
	}
}

// HandleUploadDocument handles POST /v1/documents/upload. The request is a
// multipart form with a "file" part and a "corpus_id" field.
func (h *DocumentHandler) HandleUploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	if err := r.ParseMultipartForm(uploadMemoryLimit); err != nil {
		h.logger.Warn("failed to parse multipart form",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid multipart request body", nil)
		return
	}

	corpusID := r.FormValue("corpus_id")
	if err := utils.ValidateDocumentID(corpusID, "corpus_id"); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = utils.WriteBadRequest(w, "Missing file part", nil)
		return
	}
	defer file.Close()

	description := ""
	if claims := middleware.GetClaimsFromContext(ctx); claims != nil {
		description = fmt.Sprintf("Uploaded by user %s", claims.Sub)
	}

	ragFile, err := h.documents.Upload(ctx, corpusID, header.Filename, description, header.Size, file)
	if err != nil {
		h.writeUploadError(w, r, corpusID, err)
		return
	}

	h.logger.Info("document uploaded",
		zap.String("request_id", requestID),
		zap.String("corpus_id", corpusID),
		zap.String("file", ragFile.Name))

	resp := documentToResponse(ragFile)
	resp.CorpusID = corpusID
	resp.Status = "uploaded"
	_ = utils.WriteCreated(w, resp)
}

// HandleGetDocument handles GET /v1/documents/{corpusID}/files/{fileID}
func (h *DocumentHandler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	corpusID := chi.URLParam(r, "corpusID")
	fileID := chi.URLParam(r, "fileID")
	if err := utils.ValidateDocumentID(corpusID, "corpus_id"); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	if err := utils.ValidateDocumentID(fileID, "file_id"); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	ragFile, err := h.documents.Get(ctx, corpusID, fileID)
	if err != nil {
		if errors.Is(err, documents.ErrFileNotFound) {
			_ = utils.WriteNotFound(w, "File not found in corpus", map[string]interface{}{
				"corpus_id": corpusID,
				"file_id":   fileID,
			})
			return
		}
		h.logger.Error("failed to get document",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.String("corpus_id", corpusID),
			zap.String("file_id", fileID),
			zap.Error(err))
		_ = utils.WriteJSON(w, http.StatusBadGateway, utils.ErrorResponse{
			Error:   "bad_gateway",
			Message: "Failed to get document",
		})
		return
	}

	_ = utils.WriteOK(w, documentToResponse(ragFile))
}

// HandleDeleteDocument handles DELETE /v1/documents/{corpusID}/files/{fileID}.
// Deleting an absent file still returns 204.
func (h *DocumentHandler) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	corpusID := chi.URLParam(r, "corpusID")
	fileID := chi.URLParam(r, "fileID")
	if err := utils.ValidateDocumentID(corpusID, "corpus_id"); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	if err := utils.ValidateDocumentID(fileID, "file_id"); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	if err := h.documents.Delete(ctx, corpusID, fileID); err != nil {
		h.logger.Error("failed to delete document",
			zap.String("request_id", requestID),
			zap.String("corpus_id", corpusID),
			zap.String("file_id", fileID),
			zap.Error(err))
		_ = utils.WriteJSON(w, http.StatusBadGateway, utils.ErrorResponse{
			Error:   "bad_gateway",
			Message: "Failed to delete document",
		})
		return
	}

	h.logger.Info("document deleted",
		zap.String("request_id", requestID),
		zap.String("corpus_id", corpusID),
		zap.String("file_id", fileID))

	utils.WriteNoContent(w)
}

// writeUploadError maps upload failures to their statuses
func (h *DocumentHandler) writeUploadError(w http.ResponseWriter, r *http.Request, corpusID string, err error) {
	switch {
	case errors.Is(err, documents.ErrUnsupportedFileType):
		_ = utils.WriteUnsupportedMediaType(w, err.Error())
	case errors.Is(err, documents.ErrFileTooLarge):
		_ = utils.WritePayloadTooLarge(w, err.Error())
	case errors.Is(err, documents.ErrEmptyFile):
		_ = utils.WriteBadRequest(w, err.Error(), nil)
	case errors.Is(err, documents.ErrCorpusNotFound):
		_ = utils.WriteNotFound(w, "Corpus not found", map[string]interface{}{
			"corpus_id": corpusID,
		})
	default:
		h.logger.Error("failed to upload document",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.String("corpus_id", corpusID),
			zap.Error(err))
		_ = utils.WriteJSON(w, http.StatusBadGateway, utils.ErrorResponse{
			Error:   "bad_gateway",
			Message: "Failed to upload document",
		})
	}
}

// documentToResponse extracts the short id from the resource name and builds
// the API shape.
func documentToResponse(f *vertex.RagFile) DocumentResponse {
	id := f.Name
	if idx := strings.LastIndex(f.Name, "/"); idx >= 0 {
		id = f.Name[idx+1:]
	}
	return DocumentResponse{
		ID:          id,
		Name:        f.Name,
		DisplayName: f.DisplayName,
		CreateTime:  f.CreateTime,
		UpdateTime:  f.UpdateTime,
	}
}
