package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mutumwa-ai/chat-platform/internal/middleware"
	"github.com/mutumwa-ai/chat-platform/internal/model"
	"github.com/mutumwa-ai/chat-platform/pkg/logger"
)

// EventSource replays recorded session events.
type EventSource interface {
	SessionEvents(ctx context.Context, sessionID string, limit int) ([]model.SessionEvent, error)
}

// EventHandler serves the session event history as server-sent events.
type EventHandler struct {
	source EventSource
	logger *logger.Logger
}

// NewEventHandler creates a new event handler. source may be nil.
func NewEventHandler(source EventSource, log *logger.Logger) *EventHandler {
	return &EventHandler{
		source: source,
		logger: log,
	}
}

// ReplayCompleteEvent closes a replay.
type ReplayCompleteEvent struct {
	EventCount int `json:"event_count"`
}

// Stream handles GET /api/sessions/{id}/events
// Supports ?limit=N, default 100, max 1000.
func (h *EventHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		writeError(w, http.StatusNotFound, "event stream is not enabled")
		return
	}

	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, err := h.source.SessionEvents(r.Context(), sessionID, limit)
	if err != nil {
		h.logger.Warn("failed to replay session events", zap.String("session_id", sessionID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to replay session events")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sendSSEEvent(w, flusher, "connected", map[string]string{
		"session_id": sessionID,
	})

	for _, event := range events {
		select {
		case <-r.Context().Done():
			return
		default:
		}
		sendSSEEvent(w, flusher, "session_event", event)
	}

	sendSSEEvent(w, flusher, "replay_complete", &ReplayCompleteEvent{EventCount: len(events)})
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
