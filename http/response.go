package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/evteevakb/filestorage"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Order matters: the first match wins.
var errorMappings = []errorMapping{
	{filestorage.ErrUsernameTaken, http.StatusForbidden, "username_taken", "Username is already taken"},
	{filestorage.ErrUserNotFound, http.StatusNotFound, "user_not_found", "User not found"},
	{filestorage.ErrIncorrectPassword, http.StatusUnauthorized, "incorrect_password", "Incorrect password"},
	{filestorage.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "Missing or invalid token"},
	{filestorage.ErrPathConflict, http.StatusNotAcceptable, "path_conflict", "A file already exists at this path"},
	{filestorage.ErrMissingSelector, http.StatusUnprocessableEntity, "missing_selector", "Either filepath or file_id is required"},
	{filestorage.ErrNotFound, http.StatusNotFound, "not_found", "File not found"},
	{filestorage.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input", "Invalid input"},
}

// HandleError writes appropriate error response based on error type.
// Unknown errors become 500 and are logged at error level.
func HandleError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		slog.Debug("request error", "error", err)
		WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Upload exceeds the size limit")
		return
	}

	if errors.Is(err, filestorage.ErrServiceUnavailable) {
		slog.Error("health check failed", "error", err)
		WriteError(w, http.StatusServiceUnavailable, "service_unavailable", unavailableMessage(err))
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			slog.Debug("request error", "error", err)
			WriteError(w, m.status, m.code, m.message)
			return
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		slog.Warn("request timed out", "error", err)
		WriteError(w, http.StatusGatewayTimeout, "timeout", "Request timed out")
		return
	}

	slog.Error("request error", "error", err)
	WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
}

// unavailableMessage names the failing dependencies without exposing the
// probe errors, which may carry hosts or connection strings.
func unavailableMessage(err error) string {
	var unavailable *filestorage.UnavailableError
	if errors.As(err, &unavailable) && len(unavailable.Dependencies) > 0 {
		return "Unavailable: " + strings.Join(unavailable.Dependencies, ", ")
	}
	return "Service unavailable"
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
