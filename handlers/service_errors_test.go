package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marcusvvm/chatbot-vertex-v2/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "not found maps to 404",
			err:        services.NewDomainError(services.ErrorTypeNotFound, "preset not found", nil),
			wantStatus: http.StatusNotFound,
			wantError:  "not_found",
		},
		{
			name:       "validation maps to 400",
			err:        services.WrapValidation("timeout out of range", nil),
			wantStatus: http.StatusBadRequest,
			wantError:  "bad_request",
		},
		{
			name:       "reserved id maps to 400",
			err:        services.NewDomainError(services.ErrorTypeReservedID, "preset id is reserved", nil),
			wantStatus: http.StatusBadRequest,
			wantError:  "bad_request",
		},
		{
			name:       "duplicate id maps to 409",
			err:        services.NewDomainError(services.ErrorTypeDuplicateID, "preset id already exists", nil),
			wantStatus: http.StatusConflict,
			wantError:  "conflict",
		},
		{
			name:       "immutable core maps to 403",
			err:        services.NewDomainError(services.ErrorTypeImmutableCore, "core presets cannot be modified", nil),
			wantStatus: http.StatusForbidden,
			wantError:  "forbidden",
		},
		{
			name:       "corruption maps to 500",
			err:        services.WrapCorruption("document unreadable", nil),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal_error",
		},
		{
			name:       "storage maps to 503",
			err:        services.WrapStorage("disk gone", nil),
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "service_unavailable",
		},
		{
			name:       "plain error maps to 500",
			err:        errors.New("something odd"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleServiceError(rec, tt.err, zaptest.NewLogger(t))

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body.Error)
		})
	}

	t.Run("corruption response does not leak the parse error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HandleServiceError(rec, services.WrapCorruption("fixed document unreadable", errors.New("unexpected end of JSON input")), zaptest.NewLogger(t))

		assert.NotContains(t, rec.Body.String(), "unexpected end of JSON input")
	})

	t.Run("details are included for client errors", func(t *testing.T) {
		err := services.NewDomainError(services.ErrorTypeNotFound, "preset not found", nil).
			WithDetail("preset_id", "missing")

		rec := httptest.NewRecorder()
		HandleServiceError(rec, err, zaptest.NewLogger(t))

		var body struct {
			Details map[string]any `json:"details"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "missing", body.Details["preset_id"])
	})
}
