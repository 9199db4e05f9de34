package corpusconfig

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marcusvvm/chatbot-vertex-v2/models"
	"github.com/marcusvvm/chatbot-vertex-v2/repositories"
	"github.com/marcusvvm/chatbot-vertex-v2/repositories/filestore"
	"github.com/marcusvvm/chatbot-vertex-v2/services"
	"github.com/marcusvvm/chatbot-vertex-v2/services/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func intPtr(i int) *int           { return &i }
func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func newTestService(t *testing.T) (*Service, repositories.ConfigStore) {
	t.Helper()
	dir := t.TempDir()

	fixed, err := json.Marshal(models.FixedRules{
		FormattingRules: "Responda em markdown.",
		GroundingRules:  "Use apenas os documentos recuperados.",
		SafetySettings:  map[string]any{"harassment": "BLOCK_MEDIUM_AND_ABOVE"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixed.json"), fixed, 0o644))

	global, err := json.Marshal(models.GlobalDefaults{
		SystemInstruction: "Você é um assistente prestativo.",
		ModelName:         "gemini-2.5-pro",
		RAGRetrievalTopK:  10,
		TimeoutSeconds:    120,
		ThinkingBudget:    1024,
		MaxHistoryLength:  20,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "global.json"), global, 0o644))

	logger := zaptest.NewLogger(t)
	store, err := filestore.New(dir, logger)
	require.NoError(t, err)

	res := resolver.NewService(store, time.Minute, logger)
	return NewService(store, res, logger), store
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	t.Run("corpus without override sees defaults", func(t *testing.T) {
		cfg, err := svc.Get(ctx, "corpus-1")
		require.NoError(t, err)

		assert.Equal(t, "gemini-2.5-pro", cfg.ModelName)
		assert.Equal(t, "Responda em markdown.", cfg.FormattingRules)
		assert.False(t, cfg.HasCustomConfig)
	})

	t.Run("corpus with override sees merged config", func(t *testing.T) {
		require.NoError(t, store.SaveCorpusOverride(ctx, "corpus-2", &models.CorpusOverride{
			ModelName: strPtr("gemini-2.5-flash"),
		}))

		cfg, err := svc.Get(ctx, "corpus-2")
		require.NoError(t, err)

		assert.Equal(t, "gemini-2.5-flash", cfg.ModelName)
		assert.Equal(t, 10, cfg.RAGRetrievalTopK)
		assert.True(t, cfg.HasCustomConfig)
	})
}

func TestService_Put(t *testing.T) {
	ctx := context.Background()

	t.Run("first write creates the override", func(t *testing.T) {
		svc, store := newTestService(t)

		cfg, err := svc.Put(ctx, "corpus-1", &models.CorpusOverride{
			RAGRetrievalTopK: intPtr(5),
		})
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.RAGRetrievalTopK)
		assert.True(t, cfg.HasCustomConfig)

		stored, err := store.GetCorpusOverride(ctx, "corpus-1")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, 5, *stored.RAGRetrievalTopK)
		assert.Nil(t, stored.ModelName)
	})

	t.Run("subsequent writes merge field by field", func(t *testing.T) {
		svc, store := newTestService(t)

		_, err := svc.Put(ctx, "corpus-1", &models.CorpusOverride{
			SystemInstruction: strPtr("Responda como advogado."),
			RAGRetrievalTopK:  intPtr(5),
		})
		require.NoError(t, err)

		cfg, err := svc.Put(ctx, "corpus-1", &models.CorpusOverride{
			RAGRetrievalTopK: intPtr(8),
		})
		require.NoError(t, err)

		// The earlier customization survives the second write.
		assert.Equal(t, "Responda como advogado.", cfg.SystemInstruction)
		assert.Equal(t, 8, cfg.RAGRetrievalTopK)

		stored, err := store.GetCorpusOverride(ctx, "corpus-1")
		require.NoError(t, err)
		assert.Equal(t, "Responda como advogado.", *stored.SystemInstruction)
		assert.Equal(t, 8, *stored.RAGRetrievalTopK)
	})

	t.Run("out-of-range values are rejected before any write", func(t *testing.T) {
		svc, store := newTestService(t)

		_, err := svc.Put(ctx, "corpus-1", &models.CorpusOverride{
			TimeoutSeconds: floatPtr(500),
		})
		require.Error(t, err)
		assert.True(t, services.IsValidationError(err))

		stored, getErr := store.GetCorpusOverride(ctx, "corpus-1")
		require.NoError(t, getErr)
		assert.Nil(t, stored)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the override and restores defaults", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Put(ctx, "corpus-1", &models.CorpusOverride{
			ModelName: strPtr("gemini-2.5-flash"),
		})
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, "corpus-1"))

		cfg, err := svc.Get(ctx, "corpus-1")
		require.NoError(t, err)
		assert.Equal(t, "gemini-2.5-pro", cfg.ModelName)
		assert.False(t, cfg.HasCustomConfig)
	})

	t.Run("deleting an absent override is not found", func(t *testing.T) {
		svc, _ := newTestService(t)

		err := svc.Delete(ctx, "corpus-1")
		require.Error(t, err)
		assert.True(t, services.IsNotFoundError(err))
	})
}

func TestService_Global(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	view, err := svc.Global(ctx)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-pro", view.Defaults.ModelName)
	assert.Equal(t, "Responda em markdown.", view.FormattingRules)
	assert.Equal(t, "Use apenas os documentos recuperados.", view.GroundingRules)
}

func TestService_CustomizeThenReset(t *testing.T) {
	// Full tenant journey: defaults, customize, tweak, reset, defaults again.
	ctx := context.Background()
	svc, _ := newTestService(t)

	cfg, err := svc.Get(ctx, "corpus-1")
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.ThinkingBudget)

	_, err = svc.Put(ctx, "corpus-1", &models.CorpusOverride{ThinkingBudget: intPtr(2048)})
	require.NoError(t, err)

	cfg, err = svc.Get(ctx, "corpus-1")
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.ThinkingBudget)

	require.NoError(t, svc.Delete(ctx, "corpus-1"))

	cfg, err = svc.Get(ctx, "corpus-1")
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.ThinkingBudget)
	assert.False(t, cfg.HasCustomConfig)
}
