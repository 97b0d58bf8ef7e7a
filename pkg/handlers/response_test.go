package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
)

func TestWriteServiceError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", apperrors.NewValidation("name", "must not be empty"), http.StatusBadRequest, "validation_failed"},
		{"wrapped validation", errorsWrap(apperrors.NewValidation("color", "must match #RRGGBB")), http.StatusBadRequest, "validation_failed"},
		{"not found", errorsWrap(apperrors.ErrNotFound), http.StatusNotFound, "not_found"},
		{"already exists", errorsWrap(apperrors.ErrAlreadyExists), http.StatusConflict, "already_exists"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "op_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteServiceError(rec, tt.err, "op_failed", zap.NewNop())

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body ApiResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantCode, body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func errorsWrap(err error) error {
	return &wrappedErr{err}
}

type wrappedErr struct{ inner error }

func (w *wrappedErr) Error() string { return "wrapped: " + w.inner.Error() }
func (w *wrappedErr) Unwrap() error { return w.inner }

func TestWriteData_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusCreated, map[string]string{"hello": "world"}, zap.NewNop())

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Empty(t, body.Error)
}
