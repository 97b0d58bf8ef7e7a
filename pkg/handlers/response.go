// Package handlers exposes the engine over HTTP. Routes follow the
// /api/projects/{pid}/... shape and every response body is an ApiResponse
// envelope.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/tracelens-io/tracelens-engine/pkg/apperrors"
)

// ApiResponse is the uniform response envelope.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(ApiResponse{
		Success: false,
		Error:   errorCode,
		Message: message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteData writes a successful envelope around data.
func WriteData(w http.ResponseWriter, statusCode int, data any, logger *zap.Logger) {
	if err := WriteJSON(w, statusCode, ApiResponse{Success: true, Data: data}); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}

// WriteServiceError maps a service error to an HTTP status: validation errors
// are 400, not-found 404, already-exists 409, everything else 500 with the
// given fallback error code.
func WriteServiceError(w http.ResponseWriter, err error, errorCode string, logger *zap.Logger) {
	var verr *apperrors.ValidationError
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		errorCode = "validation_failed"
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
		errorCode = "not_found"
	case errors.Is(err, apperrors.ErrAlreadyExists):
		status = http.StatusConflict
		errorCode = "already_exists"
	}

	if err := ErrorResponse(w, status, errorCode, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
