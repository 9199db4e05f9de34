package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/marcusvvm/chatbot-vertex-v2/middleware"
	"github.com/marcusvvm/chatbot-vertex-v2/models"
	"github.com/marcusvvm/chatbot-vertex-v2/services/presets"
	"github.com/marcusvvm/chatbot-vertex-v2/utils"
	"go.uber.org/zap"
)

// PresetHandler handles preset-related HTTP requests
type PresetHandler struct {
	service *presets.Service
	logger  *zap.Logger
}

// NewPresetHandler creates a new PresetHandler
func NewPresetHandler(service *presets.Service, logger *zap.Logger) *PresetHandler {
	return &PresetHandler{
		service: service,
		logger:  logger,
	}
}

// HandleListPresets handles GET /v1/config/presets
func (h *PresetHandler) HandleListPresets(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, summaries)
}

// HandleGetPreset handles GET /v1/config/presets/{presetID}
func (h *PresetHandler) HandleGetPreset(w http.ResponseWriter, r *http.Request) {
	presetID := chi.URLParam(r, "presetID")
	if err := utils.ValidateDocumentID(presetID, "preset_id"); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	preset, err := h.service.Get(r.Context(), presetID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, preset)
}

// HandleCreatePreset handles POST /v1/config/presets
func (h *PresetHandler) HandleCreatePreset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var preset models.Preset
	if err := json.NewDecoder(r.Body).Decode(&preset); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&preset); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateDocumentID(preset.ID, "preset_id"); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	created, err := h.service.Create(ctx, &preset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("preset created",
		zap.String("request_id", requestID),
		zap.String("preset_id", created.ID))

	_ = utils.WriteCreated(w, created)
}

// HandleUpdatePreset handles PUT /v1/config/presets/{presetID}
func (h *PresetHandler) HandleUpdatePreset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	presetID := chi.URLParam(r, "presetID")
	if err := utils.ValidateDocumentID(presetID, "preset_id"); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	var update models.Preset
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	updated, err := h.service.Update(ctx, presetID, &update)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("preset updated",
		zap.String("request_id", requestID),
		zap.String("preset_id", presetID))

	_ = utils.WriteOK(w, updated)
}

// HandleDeletePreset handles DELETE /v1/config/presets/{presetID}
func (h *PresetHandler) HandleDeletePreset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	presetID := chi.URLParam(r, "presetID")
	if err := utils.ValidateDocumentID(presetID, "preset_id"); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	if err := h.service.Delete(ctx, presetID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("preset deleted",
		zap.String("request_id", requestID),
		zap.String("preset_id", presetID))

	utils.WriteNoContent(w)
}

// HandleApplyPreset handles POST /v1/config/corpus/{corpusID}/apply-preset/{presetID}
func (h *PresetHandler) HandleApplyPreset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	corpusID := chi.URLParam(r, "corpusID")
	presetID := chi.URLParam(r, "presetID")
	if err := utils.ValidateDocumentID(corpusID, "corpus_id"); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	if err := utils.ValidateDocumentID(presetID, "preset_id"); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	if err := h.service.Apply(ctx, presetID, corpusID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("preset applied",
		zap.String("request_id", requestID),
		zap.String("preset_id", presetID),
		zap.String("corpus_id", corpusID))

	_ = utils.WriteOK(w, map[string]string{
		"preset_id": presetID,
		"corpus_id": corpusID,
		"status":    "applied",
	})
}
