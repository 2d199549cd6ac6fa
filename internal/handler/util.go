package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mutumwa-ai/chat-platform/internal/memstore"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// upstreamError maps a memory store failure to a status and message.
func upstreamError(err error) (int, string) {
	var re *memstore.RemoteError
	switch {
	case errors.Is(err, memstore.ErrNotConfigured):
		return http.StatusInternalServerError, memstore.ErrNotConfigured.Error()
	case errors.Is(err, memstore.ErrNotFound):
		return http.StatusNotFound, "session not found"
	case errors.As(err, &re):
		msg := re.Body
		if msg == "" {
			msg = http.StatusText(re.StatusCode)
		}
		return re.StatusCode, msg
	default:
		return http.StatusBadGateway, "memory store unavailable"
	}
}
