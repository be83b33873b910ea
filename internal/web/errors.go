package web

// errors.go provides unified error responses: the technical error is logged
// server-side with the request ID for correlation, the client receives a
// sanitized JSON message with a status derived from the domain sentinel.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/core"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrBatchNotFound), errors.Is(err, core.ErrRowNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrBatchTerminal):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrNotDuplicate), errors.Is(err, core.ErrUnknownMapping):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondError logs the technical error and writes the JSON error envelope.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details stay in the log.
		msg = "internal server error"
	}
	if errors.Is(err, core.ErrTooManyImports) {
		w.Header().Set("Retry-After", "30")
	}

	writeJSON(w, status, errorResponse{Error: msg})
}

// respondBadRequest writes a 400 with the given client-facing message.
func respondBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}
