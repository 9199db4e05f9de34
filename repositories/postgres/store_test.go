package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/marcusvvm/chatbot-vertex-v2/models"
	"github.com/marcusvvm/chatbot-vertex-v2/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	wrapped := &DB{DB: db, logger: zaptest.NewLogger(t)}
	return NewStore(wrapped, zaptest.NewLogger(t)), mock
}

func mustJSON(t *testing.T, doc any) []byte {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func TestStore_GetFixedRules(t *testing.T) {
	ctx := context.Background()

	t.Run("loads the singleton row", func(t *testing.T) {
		store, mock := newMockStore(t)
		body := mustJSON(t, models.FixedRules{
			FormattingRules: "Responda em markdown.",
			SafetySettings:  map[string]any{"harassment": "BLOCK_MEDIUM_AND_ABOVE"},
		})
		mock.ExpectQuery("SELECT body").
			WithArgs("fixed", "singleton").
			WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(body))

		rules, err := store.GetFixedRules(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Responda em markdown.", rules.FormattingRules)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing singleton is a storage error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT body").
			WithArgs("fixed", "singleton").
			WillReturnError(sql.ErrNoRows)

		_, err := store.GetFixedRules(ctx)
		require.Error(t, err)
		assert.True(t, services.IsStorageError(err))
	})

	t.Run("unparseable body is corruption", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT body").
			WithArgs("fixed", "singleton").
			WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow([]byte("{broken")))

		_, err := store.GetFixedRules(ctx)
		require.Error(t, err)
		assert.True(t, services.IsCorruptionError(err))
	})
}

func TestStore_CorpusOverride(t *testing.T) {
	ctx := context.Background()

	t.Run("absent override reads as nil, nil", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT body").
			WithArgs("corpus", "corpus-1").
			WillReturnError(sql.ErrNoRows)

		override, err := store.GetCorpusOverride(ctx, "corpus-1")
		require.NoError(t, err)
		assert.Nil(t, override)
	})

	t.Run("present override parses", func(t *testing.T) {
		store, mock := newMockStore(t)
		body := mustJSON(t, models.CorpusOverride{
			SystemInstruction: strPtr("Responda como advogado."),
			RAGRetrievalTopK:  intPtr(5),
		})
		mock.ExpectQuery("SELECT body").
			WithArgs("corpus", "corpus-1").
			WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(body))

		override, err := store.GetCorpusOverride(ctx, "corpus-1")
		require.NoError(t, err)
		require.NotNil(t, override)
		assert.Equal(t, 5, *override.RAGRetrievalTopK)
	})

	t.Run("save upserts on the class and id", func(t *testing.T) {
		store, mock := newMockStore(t)
		override := &models.CorpusOverride{RAGRetrievalTopK: intPtr(7)}
		mock.ExpectExec("INSERT INTO config_documents").
			WithArgs("corpus", "corpus-1", mustJSON(t, override)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.SaveCorpusOverride(ctx, "corpus-1", override))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete of absent row succeeds", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec("DELETE FROM config_documents").
			WithArgs("corpus", "corpus-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, store.DeleteCorpusOverride(ctx, "corpus-1"))
	})

	t.Run("database failure surfaces as storage error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec("DELETE FROM config_documents").
			WithArgs("corpus", "corpus-1").
			WillReturnError(errors.New("connection refused"))

		err := store.DeleteCorpusOverride(ctx, "corpus-1")
		require.Error(t, err)
		assert.True(t, services.IsStorageError(err))
	})
}

func TestStore_Presets(t *testing.T) {
	ctx := context.Background()

	t.Run("list scans all rows in id order", func(t *testing.T) {
		store, mock := newMockStore(t)
		rows := sqlmock.NewRows([]string{"doc_id", "body"}).
			AddRow("balanced", mustJSON(t, models.Preset{ID: "balanced", Name: "Equilibrado", IsCore: true})).
			AddRow("juridico", mustJSON(t, models.Preset{ID: "juridico", Name: "Jurídico"}))
		mock.ExpectQuery("SELECT doc_id, body").
			WithArgs("preset").
			WillReturnRows(rows)

		presets, err := store.ListPresets(ctx)
		require.NoError(t, err)
		require.Len(t, presets, 2)
		assert.Equal(t, "balanced", presets[0].ID)
		assert.Equal(t, "juridico", presets[1].ID)
	})

	t.Run("list fails on one corrupted row", func(t *testing.T) {
		store, mock := newMockStore(t)
		rows := sqlmock.NewRows([]string{"doc_id", "body"}).
			AddRow("ok", mustJSON(t, models.Preset{ID: "ok"})).
			AddRow("broken", []byte("{"))
		mock.ExpectQuery("SELECT doc_id, body").
			WithArgs("preset").
			WillReturnRows(rows)

		_, err := store.ListPresets(ctx)
		require.Error(t, err)
		assert.True(t, services.IsCorruptionError(err))
	})

	t.Run("get absent preset reads as nil, nil", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT body").
			WithArgs("preset", "nope").
			WillReturnError(sql.ErrNoRows)

		preset, err := store.GetPreset(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, preset)
	})

	t.Run("save preset upserts under its id", func(t *testing.T) {
		store, mock := newMockStore(t)
		preset := &models.Preset{ID: "juridico", Name: "Jurídico"}
		mock.ExpectExec("INSERT INTO config_documents").
			WithArgs("preset", "juridico", mustJSON(t, preset)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.SavePreset(ctx, preset))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete preset is silent on absence", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec("DELETE FROM config_documents").
			WithArgs("preset", "gone").
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, store.DeletePreset(ctx, "gone"))
	})
}

func TestStore_SaveGlobalDefaults(t *testing.T) {
	store, mock := newMockStore(t)
	defaults := &models.GlobalDefaults{
		ModelName:        "gemini-2.5-pro",
		RAGRetrievalTopK: 10,
		TimeoutSeconds:   120,
	}
	mock.ExpectExec("INSERT INTO config_documents").
		WithArgs("global", "singleton", mustJSON(t, defaults)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SaveGlobalDefaults(context.Background(), defaults))
	assert.NoError(t, mock.ExpectationsWereMet())
}
