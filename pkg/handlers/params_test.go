package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseProjectID(t *testing.T) {
	logger := zap.NewNop()
	want := uuid.New()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/projects/{pid}", func(w http.ResponseWriter, r *http.Request) {
		got, ok := ParseProjectID(w, r, logger)
		require.True(t, ok)
		assert.Equal(t, want, got)
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/"+want.String(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseProjectID_Invalid(t *testing.T) {
	logger := zap.NewNop()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/projects/{pid}", func(w http.ResponseWriter, r *http.Request) {
		_, ok := ParseProjectID(w, r, logger)
		assert.False(t, ok)
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
