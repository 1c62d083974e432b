package http

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/voltlog/telemetry-backend/internal/core/errors"
)

// ErrorResponse is the JSON body for rejected requests.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The header has already been sent; an encode failure here is
	// unrecoverable.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an AppError as a JSON error response.
func WriteError(w http.ResponseWriter, appErr *apperrors.AppError) {
	WriteJSON(w, appErr.StatusCode, ErrorResponse{
		Error: appErr.Message,
		Code:  appErr.Code,
	})
}
