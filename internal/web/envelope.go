// ABOUTME: Shared JSON response helpers for the BFF HTTP surfaces
// ABOUTME: Every error response uses the same {error, message} envelope

package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorEnvelope is the JSON body for every non-2xx response.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteError writes the standard error envelope with the given status code.
// The message must already be safe to show to a client.
func WriteError(w http.ResponseWriter, status int, kind, message string) {
	WriteJSON(w, status, ErrorEnvelope{Error: kind, Message: message})
}
