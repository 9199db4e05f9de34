package handlers

import (
	"net/http"

	"github.com/marcusvvm/chatbot-vertex-v2/middleware"
	"github.com/marcusvvm/chatbot-vertex-v2/services/resolver"
	"github.com/marcusvvm/chatbot-vertex-v2/utils"
	"go.uber.org/zap"
)

// AdminHandler handles operational endpoints. All routes behind it require
// the admin role.
type AdminHandler struct {
	resolver *resolver.Service
	logger   *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(res *resolver.Service, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		resolver: res,
		logger:   logger,
	}
}

// HandleReloadConfig handles POST /v1/admin/config/reload. Used after an
// out-of-band edit to fixed rules or global defaults.
func (h *AdminHandler) HandleReloadConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	if err := h.resolver.Reload(ctx); err != nil {
		h.logger.Error("config reload failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("config reloaded", zap.String("request_id", requestID))
	_ = utils.WriteOK(w, map[string]string{"status": "reloaded"})
}
