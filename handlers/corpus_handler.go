package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/marcusvvm/chatbot-vertex-v2/internal/vertex"
	"github.com/marcusvvm/chatbot-vertex-v2/middleware"
	"github.com/marcusvvm/chatbot-vertex-v2/services/lifecycle"
	"github.com/marcusvvm/chatbot-vertex-v2/utils"
	"go.uber.org/zap"
)

// CreateCorpusRequest represents a request to create a corpus
type CreateCorpusRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=128"`
	Description string `json:"description" validate:"max=512"`
}

// CorpusResponse represents a corpus in API responses
type CorpusResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

// CorpusHandler handles corpus lifecycle HTTP requests
type CorpusHandler struct {
	manager   vertex.CorpusManager
	lifecycle *lifecycle.Coordinator
	logger    *zap.Logger
}

// NewCorpusHandler creates a new CorpusHandler
func NewCorpusHandler(manager vertex.CorpusManager, coordinator *lifecycle.Coordinator, logger *zap.Logger) *CorpusHandler {
	return &CorpusHandler{
		manager:   manager,
		lifecycle: coordinator,
		logger:    logger,
	}
}

// HandleListCorpora handles GET /v1/corpus
func (h *CorpusHandler) HandleListCorpora(w http.ResponseWriter, r *http.Request) {
	corpora, err := h.manager.ListCorpora(r.Context())
	if err != nil {
		h.logger.Error("failed to list corpora", zap.Error(err))
		_ = utils.WriteJSON(w, http.StatusBadGateway, utils.ErrorResponse{
			Error:   "bad_gateway",
			Message: "Failed to list corpora",
		})
		return
	}

	responses := make([]CorpusResponse, 0, len(corpora))
	for _, c := range corpora {
		responses = append(responses, corpusToResponse(c))
	}

	_ = utils.WriteOK(w, responses)
}

// HandleCreateCorpus handles POST /v1/corpus
func (h *CorpusHandler) HandleCreateCorpus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req CreateCorpusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	corpus, err := h.manager.CreateCorpus(ctx, req.DisplayName, req.Description)
	if err != nil {
		h.logger.Error("failed to create corpus",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteJSON(w, http.StatusBadGateway, utils.ErrorResponse{
			Error:   "bad_gateway",
			Message: "Failed to create corpus",
		})
		return
	}

	h.logger.Info("corpus created",
		zap.String("request_id", requestID),
		zap.String("corpus", corpus.Name))

	_ = utils.WriteCreated(w, corpusToResponse(corpus))
}

// HandleDeleteCorpus handles DELETE /v1/corpus/{corpusID}. After the corpus
// is gone upstream, its configuration override is cleaned up; cleanup
// failures are logged and retried out of band, never surfaced as a failed
// deletion.
func (h *CorpusHandler) HandleDeleteCorpus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	corpusID := chi.URLParam(r, "corpusID")
	if err := utils.ValidateDocumentID(corpusID, "corpus_id"); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	if err := h.manager.DeleteCorpus(ctx, corpusID); err != nil {
		h.logger.Error("failed to delete corpus",
			zap.String("request_id", requestID),
			zap.String("corpus_id", corpusID),
			zap.Error(err))
		_ = utils.WriteJSON(w, http.StatusBadGateway, utils.ErrorResponse{
			Error:   "bad_gateway",
			Message: "Failed to delete corpus",
		})
		return
	}

	if err := h.lifecycle.OnCorpusDeleted(ctx, corpusID); err != nil {
		h.logger.Warn("corpus deleted but config cleanup failed",
			zap.String("request_id", requestID),
			zap.String("corpus_id", corpusID),
			zap.Error(err))
	}

	h.logger.Info("corpus deleted",
		zap.String("request_id", requestID),
		zap.String("corpus_id", corpusID))

	utils.WriteNoContent(w)
}

// corpusToResponse extracts the short id from the resource name and builds
// the API shape.
func corpusToResponse(c *vertex.Corpus) CorpusResponse {
	id := c.Name
	if idx := strings.LastIndex(c.Name, "/"); idx >= 0 {
		id = c.Name[idx+1:]
	}
	return CorpusResponse{
		ID:          id,
		Name:        c.Name,
		DisplayName: c.DisplayName,
		Description: c.Description,
	}
}
