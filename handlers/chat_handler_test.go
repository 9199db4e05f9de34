package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcusvvm/chatbot-vertex-v2/internal/vertex"
	"github.com/marcusvvm/chatbot-vertex-v2/models"
	"github.com/marcusvvm/chatbot-vertex-v2/repositories"
	"github.com/marcusvvm/chatbot-vertex-v2/repositories/filestore"
	"github.com/marcusvvm/chatbot-vertex-v2/services/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeInvoker records the last request and returns a canned reply.
type fakeInvoker struct {
	lastModel string
	lastReq   *vertex.GenerateRequest
	err       error
}

func (f *fakeInvoker) GenerateContent(ctx context.Context, model string, req *vertex.GenerateRequest) (*vertex.GenerateResponse, error) {
	f.lastModel = model
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}

	var resp vertex.GenerateResponse
	wire := `{"candidates":[{"content":{"role":"model","parts":[{"text":"Resposta."}]}}],"usageMetadata":{"totalTokenCount":21}}`
	if err := json.Unmarshal([]byte(wire), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func newChatHandler(t *testing.T, invoker vertex.Invoker) (*ChatHandler, repositories.ConfigStore) {
	t.Helper()
	dir := t.TempDir()

	fixed, err := json.Marshal(models.FixedRules{
		FormattingRules: "Formato.",
		GroundingRules:  "Fundamentação.",
		SafetySettings:  map[string]any{"harassment": "BLOCK_MEDIUM_AND_ABOVE"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixed.json"), fixed, 0o644))

	global, err := json.Marshal(models.GlobalDefaults{
		SystemInstruction: "Base.",
		ModelName:         "gemini-2.5-pro",
		RAGRetrievalTopK:  10,
		TimeoutSeconds:    60,
		MaxHistoryLength:  2,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "global.json"), global, 0o644))

	logger := zaptest.NewLogger(t)
	store, err := filestore.New(dir, logger)
	require.NoError(t, err)

	res := resolver.NewService(store, time.Minute, logger)
	return NewChatHandler(res, store, invoker, logger), store
}

func postChat(t *testing.T, handler *ChatHandler, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.HandleChat(rec, req)
	return rec
}

func TestChatHandler_HandleChat(t *testing.T) {
	t.Run("invokes the resolved model and returns the reply", func(t *testing.T) {
		invoker := &fakeInvoker{}
		handler, _ := newChatHandler(t, invoker)

		rec := postChat(t, handler, map[string]any{
			"corpus_id": "corpus-1",
			"message":   "Qual o prazo?",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var envelope struct {
			Data ChatResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, "Resposta.", envelope.Data.Reply)
		assert.Equal(t, "gemini-2.5-pro", envelope.Data.ModelName)
		assert.Equal(t, 21, envelope.Data.TotalTokens)
		assert.NotEmpty(t, envelope.Data.MessageID)

		assert.Equal(t, "gemini-2.5-pro", invoker.lastModel)
		require.NotNil(t, invoker.lastReq.SystemInstruction)
		assert.Equal(t, "Base.\n\nFormato.\n\nFundamentação.", invoker.lastReq.SystemInstruction.Parts[0].Text)
	})

	t.Run("corpus override picks the model", func(t *testing.T) {
		invoker := &fakeInvoker{}
		handler, store := newChatHandler(t, invoker)
		require.NoError(t, store.SaveCorpusOverride(context.Background(), "corpus-1", &models.CorpusOverride{
			ModelName: strPtr("gemini-2.5-flash"),
		}))

		rec := postChat(t, handler, map[string]any{
			"corpus_id": "corpus-1",
			"message":   "Oi",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "gemini-2.5-flash", invoker.lastModel)
	})

	t.Run("history is truncated to the configured length", func(t *testing.T) {
		invoker := &fakeInvoker{}
		handler, _ := newChatHandler(t, invoker)

		rec := postChat(t, handler, map[string]any{
			"corpus_id": "corpus-1",
			"message":   "Quarta pergunta",
			"history": []map[string]string{
				{"role": "user", "text": "primeira"},
				{"role": "model", "text": "segunda"},
				{"role": "user", "text": "terceira"},
			},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		// MaxHistoryLength is 2: two history turns plus the new message.
		require.Len(t, invoker.lastReq.Contents, 3)
		assert.Equal(t, "segunda", invoker.lastReq.Contents[0].Parts[0].Text)
		assert.Equal(t, "terceira", invoker.lastReq.Contents[1].Parts[0].Text)
		assert.Equal(t, "Quarta pergunta", invoker.lastReq.Contents[2].Parts[0].Text)
	})

	t.Run("missing message is a bad request", func(t *testing.T) {
		handler, _ := newChatHandler(t, &fakeInvoker{})

		rec := postChat(t, handler, map[string]any{"corpus_id": "corpus-1"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid history role is a bad request", func(t *testing.T) {
		handler, _ := newChatHandler(t, &fakeInvoker{})

		rec := postChat(t, handler, map[string]any{
			"corpus_id": "corpus-1",
			"message":   "Oi",
			"history":   []map[string]string{{"role": "system", "text": "hack"}},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("timeout maps to gateway timeout", func(t *testing.T) {
		handler, _ := newChatHandler(t, &fakeInvoker{err: context.DeadlineExceeded})

		rec := postChat(t, handler, map[string]any{
			"corpus_id": "corpus-1",
			"message":   "Oi",
		})
		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	})

	t.Run("upstream failure maps to bad gateway", func(t *testing.T) {
		handler, _ := newChatHandler(t, &fakeInvoker{err: &vertex.APIError{StatusCode: 500, Body: "boom"}})

		rec := postChat(t, handler, map[string]any{
			"corpus_id": "corpus-1",
			"message":   "Oi",
		})
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func strPtr(s string) *string { return &s }
