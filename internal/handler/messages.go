package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mutumwa-ai/chat-platform/internal/memstore"
	"github.com/mutumwa-ai/chat-platform/internal/middleware"
	"github.com/mutumwa-ai/chat-platform/internal/model"
	"github.com/mutumwa-ai/chat-platform/pkg/logger"
	"github.com/mutumwa-ai/chat-platform/pkg/metrics"
)

// maxAppendBody bounds the request body of an append.
const maxAppendBody = 1 << 20

// MessageHandler proxies message endpoints to the memory store.
type MessageHandler struct {
	store  MemoryStore
	events EventPublisher
	logger *logger.Logger
}

// NewMessageHandler creates a new message handler. events may be nil.
func NewMessageHandler(store MemoryStore, events EventPublisher, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		store:  store,
		events: events,
		logger: log,
	}
}

// List handles GET /api/sessions/{id}/messages
// An absent session answers with an empty list.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.store.Configured() {
		writeError(w, http.StatusInternalServerError, memstore.ErrNotConfigured.Error())
		return
	}

	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.store.ListMessages(r.Context(), sessionID)
	if err != nil {
		h.logger.Warn("failed to list messages",
			zap.String("session_id", sessionID),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":       "failed to list messages",
			"messages":    []model.Message{},
			"total_count": 0,
			"row_count":   0,
		})
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// Append handles POST /api/sessions/{id}/messages
// The body is {"messages": [...]} or a single {"role", "content"} pair.
func (h *MessageHandler) Append(w http.ResponseWriter, r *http.Request) {
	if !h.store.Configured() {
		writeError(w, http.StatusInternalServerError, memstore.ErrNotConfigured.Error())
		return
	}

	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msgs, err := decodeMessages(http.MaxBytesReader(w, r.Body, maxAppendBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(msgs) == 0 {
		writeError(w, http.StatusBadRequest, "no messages to append")
		return
	}
	for _, m := range msgs {
		if err := middleware.ValidateRole(m.Role); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := middleware.ValidateMessageContent(m.Content); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	stored, err := h.store.AppendMessages(r.Context(), sessionID, msgs)
	if err != nil {
		h.logger.Warn("failed to append messages",
			zap.String("session_id", sessionID),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		status, msg := upstreamError(err)
		writeError(w, status, msg)
		return
	}
	if stored == nil {
		stored = []model.Message{}
	}
	for _, m := range msgs {
		metrics.MessagesTotal.WithLabelValues(string(m.Role)).Inc()
	}

	publishEvent(r.Context(), h.events, h.logger, sessionID, model.EventMessagesAppended, len(msgs))
	writeJSON(w, http.StatusOK, model.AppendMessagesResponse{Messages: stored})
}

// decodeMessages reads either body shape.
func decodeMessages(r io.Reader) ([]model.MessageInput, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}

	if _, ok := probe["messages"]; ok {
		var req model.AppendMessagesRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, err
		}
		return req.Messages, nil
	}

	var single model.MessageInput
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	return []model.MessageInput{single}, nil
}
