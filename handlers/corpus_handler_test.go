package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/marcusvvm/chatbot-vertex-v2/internal/vertex"
	"github.com/marcusvvm/chatbot-vertex-v2/models"
	"github.com/marcusvvm/chatbot-vertex-v2/repositories"
	"github.com/marcusvvm/chatbot-vertex-v2/repositories/filestore"
	"github.com/marcusvvm/chatbot-vertex-v2/services/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeCorpusManager is an in-memory CorpusManager.
type fakeCorpusManager struct {
	corpora []*vertex.Corpus
	err     error
	deleted []string
}

func (f *fakeCorpusManager) CreateCorpus(ctx context.Context, displayName, description string) (*vertex.Corpus, error) {
	if f.err != nil {
		return nil, f.err
	}
	corpus := &vertex.Corpus{
		Name:        "projects/p/locations/l/ragCorpora/c-1",
		DisplayName: displayName,
		Description: description,
	}
	f.corpora = append(f.corpora, corpus)
	return corpus, nil
}

func (f *fakeCorpusManager) ListCorpora(ctx context.Context) ([]*vertex.Corpus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.corpora, nil
}

func (f *fakeCorpusManager) DeleteCorpus(ctx context.Context, corpusID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, corpusID)
	return nil
}

func newCorpusRouter(t *testing.T, manager vertex.CorpusManager) (chi.Router, repositories.ConfigStore) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store, err := filestore.New(t.TempDir(), logger)
	require.NoError(t, err)

	handler := NewCorpusHandler(manager, lifecycle.NewCoordinator(store, logger), logger)

	r := chi.NewRouter()
	r.Get("/corpus", handler.HandleListCorpora)
	r.Post("/corpus", handler.HandleCreateCorpus)
	r.Delete("/corpus/{corpusID}", handler.HandleDeleteCorpus)
	return r, store
}

func TestCorpusHandler_List(t *testing.T) {
	t.Run("maps resource names to short ids", func(t *testing.T) {
		manager := &fakeCorpusManager{corpora: []*vertex.Corpus{
			{Name: "projects/p/locations/l/ragCorpora/abc", DisplayName: "Docs"},
		}}
		router, _ := newCorpusRouter(t, manager)

		req := httptest.NewRequest(http.MethodGet, "/corpus", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var envelope struct {
			Data []CorpusResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		require.Len(t, envelope.Data, 1)
		assert.Equal(t, "abc", envelope.Data[0].ID)
		assert.Equal(t, "Docs", envelope.Data[0].DisplayName)
	})

	t.Run("upstream failure maps to bad gateway", func(t *testing.T) {
		router, _ := newCorpusRouter(t, &fakeCorpusManager{err: errors.New("upstream down")})

		req := httptest.NewRequest(http.MethodGet, "/corpus", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestCorpusHandler_Create(t *testing.T) {
	t.Run("creates and returns the corpus", func(t *testing.T) {
		router, _ := newCorpusRouter(t, &fakeCorpusManager{})

		body, _ := json.Marshal(map[string]string{"display_name": "Docs"})
		req := httptest.NewRequest(http.MethodPost, "/corpus", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var envelope struct {
			Data CorpusResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		assert.Equal(t, "c-1", envelope.Data.ID)
	})

	t.Run("missing display name is a bad request", func(t *testing.T) {
		router, _ := newCorpusRouter(t, &fakeCorpusManager{})

		req := httptest.NewRequest(http.MethodPost, "/corpus", bytes.NewReader([]byte(`{}`)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCorpusHandler_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes upstream and cleans up the override", func(t *testing.T) {
		manager := &fakeCorpusManager{}
		router, store := newCorpusRouter(t, manager)
		require.NoError(t, store.SaveCorpusOverride(ctx, "c-1", &models.CorpusOverride{}))

		req := httptest.NewRequest(http.MethodDelete, "/corpus/c-1", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, []string{"c-1"}, manager.deleted)

		override, err := store.GetCorpusOverride(ctx, "c-1")
		require.NoError(t, err)
		assert.Nil(t, override)
	})

	t.Run("corpus without override still deletes cleanly", func(t *testing.T) {
		manager := &fakeCorpusManager{}
		router, _ := newCorpusRouter(t, manager)

		req := httptest.NewRequest(http.MethodDelete, "/corpus/c-2", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("upstream failure maps to bad gateway", func(t *testing.T) {
		router, _ := newCorpusRouter(t, &fakeCorpusManager{err: errors.New("upstream down")})

		req := httptest.NewRequest(http.MethodDelete, "/corpus/c-1", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}
