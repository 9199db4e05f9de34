package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/marcusvvm/chatbot-vertex-v2/middleware"
	"github.com/marcusvvm/chatbot-vertex-v2/models"
	"github.com/marcusvvm/chatbot-vertex-v2/services/corpusconfig"
	"github.com/marcusvvm/chatbot-vertex-v2/utils"
	"go.uber.org/zap"
)

// CorpusConfigHandler handles per-corpus configuration HTTP requests
type CorpusConfigHandler struct {
	service *corpusconfig.Service
	logger  *zap.Logger
}

// NewCorpusConfigHandler creates a new CorpusConfigHandler
func NewCorpusConfigHandler(service *corpusconfig.Service, logger *zap.Logger) *CorpusConfigHandler {
	return &CorpusConfigHandler{
		service: service,
		logger:  logger,
	}
}

// HandleGetConfig handles GET /v1/config/corpus/{corpusID}
func (h *CorpusConfigHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	corpusID := chi.URLParam(r, "corpusID")
	if err := utils.ValidateDocumentID(corpusID, "corpus_id"); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	effective, err := h.service.Get(ctx, corpusID)
	if err != nil {
		h.logger.Error("failed to resolve corpus config",
			zap.String("request_id", requestID),
			zap.String("corpus_id", corpusID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, effective)
}

// HandleUpdateConfig handles PUT /v1/config/corpus/{corpusID}
func (h *CorpusConfigHandler) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	corpusID := chi.URLParam(r, "corpusID")
	if err := utils.ValidateDocumentID(corpusID, "corpus_id"); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	var update models.CorpusOverride
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	effective, err := h.service.Put(ctx, corpusID, &update)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("corpus config updated",
		zap.String("request_id", requestID),
		zap.String("corpus_id", corpusID))

	_ = utils.WriteOK(w, effective)
}

// HandleResetConfig handles DELETE /v1/config/corpus/{corpusID}
func (h *CorpusConfigHandler) HandleResetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	corpusID := chi.URLParam(r, "corpusID")
	if err := utils.ValidateDocumentID(corpusID, "corpus_id"); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	if err := h.service.Delete(ctx, corpusID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("corpus config reset",
		zap.String("request_id", requestID),
		zap.String("corpus_id", corpusID))

	utils.WriteNoContent(w)
}

// HandleGetGlobalConfig handles GET /v1/config/global
func (h *CorpusConfigHandler) HandleGetGlobalConfig(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Global(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, view)
}
