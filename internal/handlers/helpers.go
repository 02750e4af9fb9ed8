package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerchat/internal/interfaces"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// RequireMethod validates that the HTTP request uses one of the given methods.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, method := range methods {
		if r.Method == method {
			return true
		}
	}
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// StatusForError maps service errors to HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, interfaces.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, interfaces.ErrConversationNotFound), errors.Is(err, interfaces.ErrAnalysisNotFound):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrConversationExpired):
		return http.StatusGone
	case errors.Is(err, interfaces.ErrConversationResolved), errors.Is(err, interfaces.ErrConversationConflict):
		return http.StatusConflict
	case errors.Is(err, interfaces.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError writes err with the status StatusForError picks.
// Server-side failures are logged; messages of client errors are returned
// as they are.
func WriteServiceError(w http.ResponseWriter, logger arbor.ILogger, err error) {
	status := StatusForError(err)
	message := err.Error()

	switch status {
	case http.StatusInternalServerError:
		logger.Error().Err(err).Msg("Request failed")
		message = "Internal server error"
	case http.StatusServiceUnavailable:
		logger.Warn().Err(err).Msg("Service unavailable")
		w.Header().Set("Retry-After", "1")
	case http.StatusGone:
		message = interfaces.ErrConversationExpired.Error()
	}
	WriteError(w, status, message)
}

// DecodeJSON decodes a size-limited JSON body into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", interfaces.ErrInvalidRequest)
		}
		return fmt.Errorf("%w: %v", interfaces.ErrInvalidRequest, err)
	}
	return nil
}

// GetPaginationParams extracts limit and offset from the query string.
// limit defaults to 20 and is capped at 100.
func GetPaginationParams(r *http.Request) (limit, offset int) {
	limit = 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
