package handlers

import (
	"net/http"

	"github.com/marcusvvm/chatbot-vertex-v2/services"
	"github.com/marcusvvm/chatbot-vertex-v2/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses. The taxonomy:
// validation and reserved ids are client mistakes (400), conflicts 409,
// immutable core presets 403, absence 404, corruption 500 with an
// operational alert, storage unavailability 503.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)

	switch {
	case services.IsNotFoundError(err):
		if err := utils.WriteNotFound(w, err.Error(), details); err != nil {
			logger.Error("failed to write not found response", zap.Error(err))
		}

	case services.IsValidationError(err), services.IsReservedIDError(err):
		if err := utils.WriteBadRequest(w, err.Error(), details); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}

	case services.IsDuplicateIDError(err):
		if err := utils.WriteConflict(w, err.Error(), details); err != nil {
			logger.Error("failed to write conflict response", zap.Error(err))
		}

	case services.IsImmutableCoreError(err):
		if err := utils.WriteForbidden(w, err.Error(), details); err != nil {
			logger.Error("failed to write forbidden response", zap.Error(err))
		}

	case services.IsCorruptionError(err):
		// A stored document failed to parse. This needs an operator, not a
		// retry, so it is logged at error level with full context.
		logger.Error("configuration document corrupted",
			zap.Error(err),
			zap.Any("details", details))
		if err := utils.WriteInternalServerError(w, "Stored configuration is unreadable"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}

	case services.IsStorageError(err):
		logger.Error("configuration storage unavailable", zap.Error(err))
		if err := utils.WriteServiceUnavailable(w, "Configuration storage is unavailable"); err != nil {
			logger.Error("failed to write service unavailable response", zap.Error(err))
		}

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		if err := utils.WriteInternalServerError(w, "An unexpected error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{})
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
