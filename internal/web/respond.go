package web

// respond.go centralizes response encoding for the JSON API.
//
// Error flow:
//  1. A handler encounters an error
//  2. It calls respondError with an HTTP status
//  3. core.MapError translates the technical error into a user message
//  4. The technical error is logged with the request ID for correlation
//  5. The client receives the sanitized message, action, and support code

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/JonMunkholm/qbank/internal/core"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse is the JSON structure for API error responses. It carries
// both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs the technical error and answers with its user-facing
// translation.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	respondErrorJSON(w, userMsg, statusCode)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// writeJSON encodes v as JSON with the given status. Encoding errors are
// logged only, since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}

// statusForError maps service errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrImportNotFound),
		errors.Is(err, core.ErrQuestionNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrNoFiles),
		errors.Is(err, core.ErrNoData),
		errors.Is(err, core.ErrNoHeader),
		errors.Is(err, core.ErrUnknownStrategy),
		errors.Is(err, core.ErrUnknownPreset):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	var headerErr *core.HeaderError
	if errors.As(err, &headerErr) {
		return http.StatusBadRequest
	}
	var strictErr *core.StrictModeError
	if errors.As(err, &strictErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// clientIP returns the bare client IP, tolerating both host:port and plain
// addresses in RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// requestContext enriches r's context with the caller's IP for the import
// audit trail. RemoteAddr has already been normalized by the proxy-aware
// middleware.
func requestContext(r *http.Request) context.Context {
	return core.ContextWithClientIP(r.Context(), clientIP(r))
}
