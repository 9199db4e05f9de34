package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/marcusvvm/chatbot-vertex-v2/internal/vertex"
	"github.com/marcusvvm/chatbot-vertex-v2/middleware"
	"github.com/marcusvvm/chatbot-vertex-v2/repositories"
	"github.com/marcusvvm/chatbot-vertex-v2/services/resolver"
	"github.com/marcusvvm/chatbot-vertex-v2/utils"
	"go.uber.org/zap"
)

// ChatMessage is one prior turn supplied by the client
type ChatMessage struct {
	Role string `json:"role" validate:"required,oneof=user model"`
	Text string `json:"text" validate:"required"`
}

// ChatRequest represents a chat request
type ChatRequest struct {
	CorpusID string        `json:"corpus_id" validate:"required"`
	Message  string        `json:"message" validate:"required"`
	History  []ChatMessage `json:"history" validate:"dive"`
}

// ChatResponse represents a chat response
type ChatResponse struct {
	MessageID   string `json:"message_id"`
	Reply       string `json:"reply"`
	ModelName   string `json:"model_name"`
	TotalTokens int    `json:"total_tokens"`
}

// ChatHandler handles chat requests: resolve the corpus configuration, build
// the model request from it, invoke the model.
type ChatHandler struct {
	resolver *resolver.Service
	store    repositories.ConfigStore
	invoker  vertex.Invoker
	logger   *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(res *resolver.Service, store repositories.ConfigStore, invoker vertex.Invoker, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		resolver: res,
		store:    store,
		invoker:  invoker,
		logger:   logger,
	}
}

// HandleChat handles POST /v1/chat
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req ChatRequest
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
	if err := utils.ValidateDocumentID(req.CorpusID, "corpus_id"); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	cfg, err := h.resolver.Resolve(ctx, req.CorpusID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	fixed, err := h.store.GetFixedRules(ctx)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	history := buildHistory(req.History, cfg.MaxHistoryLength)
	generateReq := vertex.BuildGenerateRequest(cfg, fixed, history, req.Message)

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds*float64(time.Second)))
	defer cancel()

	resp, err := h.invoker.GenerateContent(callCtx, cfg.ModelName, generateReq)
	if err != nil {
		h.logger.Error("model invocation failed",
			zap.String("request_id", requestID),
			zap.String("corpus_id", req.CorpusID),
			zap.String("model_name", cfg.ModelName),
			zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			_ = utils.WriteGatewayTimeout(w, "Model invocation timed out")
			return
		}
		_ = utils.WriteJSON(w, http.StatusBadGateway, utils.ErrorResponse{
			Error:   "bad_gateway",
			Message: "Model invocation failed",
		})
		return
	}

	h.logger.Info("chat completed",
		zap.String("request_id", requestID),
		zap.String("corpus_id", req.CorpusID),
		zap.String("model_name", cfg.ModelName),
		zap.Int("total_tokens", resp.UsageMetadata.TotalTokenCount))

	_ = utils.WriteOK(w, ChatResponse{
		MessageID:   uuid.New().String(),
		Reply:       resp.Text(),
		ModelName:   cfg.ModelName,
		TotalTokens: resp.UsageMetadata.TotalTokenCount,
	})
}

// buildHistory converts the client history to wire turns, keeping only the
// most recent maxLen turns.
func buildHistory(history []ChatMessage, maxLen int) []vertex.Content {
	if maxLen > 0 && len(history) > maxLen {
		history = history[len(history)-maxLen:]
	}

	out := make([]vertex.Content, 0, len(history))
	for _, msg := range history {
		out = append(out, vertex.Content{
			Role:  msg.Role,
			Parts: []vertex.Part{{Text: msg.Text}},
		})
	}
	return out
}
