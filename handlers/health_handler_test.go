package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubChecker struct {
	err error
}

func (s *stubChecker) HealthCheck(ctx context.Context) error { return s.err }

func TestHealthHandler_HandleHealth(t *testing.T) {
	handler := NewHealthHandler(nil, zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.HandleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHandler_HandleReadiness(t *testing.T) {
	decode := func(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
		t.Helper()
		var envelope struct {
			Data HealthResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
		return envelope.Data
	}

	t.Run("healthy storage is ready", func(t *testing.T) {
		handler := NewHealthHandler(&stubChecker{}, zaptest.NewLogger(t))

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		handler.HandleReadiness(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decode(t, rec)
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "healthy", resp.Checks["storage"])
	})

	t.Run("failing storage is unavailable", func(t *testing.T) {
		handler := NewHealthHandler(&stubChecker{err: errors.New("connection refused")}, zaptest.NewLogger(t))

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		handler.HandleReadiness(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		resp := decode(t, rec)
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, "unhealthy", resp.Checks["storage"])
	})

	t.Run("no checker skips the storage probe", func(t *testing.T) {
		handler := NewHealthHandler(nil, zaptest.NewLogger(t))

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		handler.HandleReadiness(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decode(t, rec)
		assert.Equal(t, "healthy", resp.Status)
		assert.Empty(t, resp.Checks)
	})
}
