// Package respond writes JSON responses for the control API and keeps
// internal error detail out of response bodies.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// clientSafe lists message fragments that identify errors caused by the
// caller's input. Such messages are returned verbatim on 4xx responses.
var clientSafe = []string{
	"required",
	"invalid",
	"not found",
	"already",
	"must be",
	"in progress",
	"unauthorized",
	"forbidden",
}

// JSON writes v as the response body with the given status code.
// A nil v writes headers only.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode JSON response",
			slog.Int("status_code", code),
			slog.Any("error", err))
	}
}

// Error writes {"error": err.Error()} without filtering.
func Error(w http.ResponseWriter, code int, err error) {
	JSON(w, code, map[string]string{"error": err.Error()})
}

// SafeError writes err as a JSON error body. Messages of 4xx errors that
// describe bad input are passed through; everything else, and every 5xx,
// is logged with secrets masked and replaced by a generic message.
func SafeError(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	if code < 500 && isClientSafe(msg) {
		JSON(w, code, map[string]string{"error": msg})
		return
	}

	slog.Default().Error("request failed",
		slog.String("status", http.StatusText(code)),
		slog.Int("code", code),
		slog.String("error", SanitizeError(err)))
	JSON(w, code, map[string]string{"error": genericMessage(code)})
}

func isClientSafe(msg string) bool {
	lower := strings.ToLower(msg)
	for _, s := range clientSafe {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func genericMessage(code int) string {
	if code >= 500 {
		return "internal server error"
	}
	return strings.ToLower(http.StatusText(code))
}
