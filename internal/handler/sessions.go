// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mutumwa-ai/chat-platform/internal/memstore"
	"github.com/mutumwa-ai/chat-platform/internal/middleware"
	"github.com/mutumwa-ai/chat-platform/internal/model"
	"github.com/mutumwa-ai/chat-platform/pkg/logger"
)

// MemoryStore is the memory store client as used by the proxy.
type MemoryStore interface {
	Configured() bool
	ListSessions(ctx context.Context, userID string) ([]model.Session, error)
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	CreateSessionWith(ctx context.Context, req *model.CreateSessionRequest) (*model.Session, error)
	ListMessages(ctx context.Context, sessionID string) (*model.MessageList, error)
	AppendMessages(ctx context.Context, sessionID string, msgs []model.MessageInput) ([]model.Message, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// EventPublisher records successful writes. Implemented by the JetStream
// stream manager.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *model.SessionEvent) (uint64, error)
}

// SessionHandler proxies session endpoints to the memory store.
type SessionHandler struct {
	store  MemoryStore
	events EventPublisher
	logger *logger.Logger
}

// NewSessionHandler creates a new session handler. events may be nil.
func NewSessionHandler(store MemoryStore, events EventPublisher, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		store:  store,
		events: events,
		logger: log,
	}
}

// createSessionBody accepts either metadata or a bare title.
type createSessionBody struct {
	SessionID string         `json:"session_id"`
	Title     string         `json:"title,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// List handles GET /api/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.store.Configured() {
		writeError(w, http.StatusInternalServerError, memstore.ErrNotConfigured.Error())
		return
	}

	sessions, err := h.store.ListSessions(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		h.log(r).Warn("failed to list sessions", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":    "failed to list sessions",
			"sessions": []model.Session{},
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
	})
}

// Create handles POST /api/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.store.Configured() {
		writeError(w, http.StatusInternalServerError, memstore.ErrNotConfigured.Error())
		return
	}

	var body createSessionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateSessionID(body.SessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateTitle(body.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	metadata := body.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	if _, ok := metadata[model.MetadataName]; !ok && body.Title != "" {
		metadata[model.MetadataName] = model.DeriveTitle(body.Title)
	}

	sess, err := h.store.CreateSessionWith(r.Context(), &model.CreateSessionRequest{
		SessionID: body.SessionID,
		Metadata:  metadata,
	})
	if err != nil {
		h.log(r).Warn("failed to create session", zap.String("session_id", body.SessionID), zap.Error(err))
		status, msg := upstreamError(err)
		writeError(w, status, msg)
		return
	}

	h.publish(r, body.SessionID, model.EventSessionCreated, 0)
	writeJSON(w, http.StatusCreated, sess)
}

// Get handles GET /api/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.store.Configured() {
		writeError(w, http.StatusInternalServerError, memstore.ErrNotConfigured.Error())
		return
	}

	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.store.GetSession(r.Context(), sessionID)
	if err != nil {
		status, msg := upstreamError(err)
		if status != http.StatusNotFound {
			h.log(r).Warn("failed to get session", zap.String("session_id", sessionID), zap.Error(err))
		}
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// Delete handles DELETE /api/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.store.Configured() {
		writeError(w, http.StatusInternalServerError, memstore.ErrNotConfigured.Error())
		return
	}

	sessionID := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.DeleteSession(r.Context(), sessionID); err != nil {
		h.log(r).Warn("failed to delete session", zap.String("session_id", sessionID), zap.Error(err))
		status, msg := upstreamError(err)
		writeError(w, status, msg)
		return
	}

	h.publish(r, sessionID, model.EventSessionDeleted, 0)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) log(r *http.Request) *logger.Logger {
	return h.logger.With(zap.String("correlation_id", middleware.GetCorrelationID(r.Context())))
}

func (h *SessionHandler) publish(r *http.Request, sessionID string, eventType model.EventType, count int) {
	publishEvent(r.Context(), h.events, h.logger, sessionID, eventType, count)
}

// publishEvent records a write on the event stream. Failures are logged only.
func publishEvent(ctx context.Context, events EventPublisher, log *logger.Logger, sessionID string, eventType model.EventType, count int) {
	if events == nil {
		return
	}

	_, err := events.PublishEvent(ctx, &model.SessionEvent{
		ID:           uuid.Must(uuid.NewV7()).String(),
		SessionID:    sessionID,
		Type:         eventType,
		MessageCount: count,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		log.Warn("failed to publish session event",
			zap.String("session_id", sessionID),
			zap.String("type", string(eventType)),
			zap.Error(err),
		)
	}
}
