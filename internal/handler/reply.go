package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mutumwa-ai/chat-platform/internal/middleware"
	"github.com/mutumwa-ai/chat-platform/internal/model"
	"github.com/mutumwa-ai/chat-platform/internal/reply"
	"github.com/mutumwa-ai/chat-platform/pkg/logger"
)

// ReplyHandler answers the reply webhook contract.
type ReplyHandler struct {
	generator reply.Generator
	logger    *logger.Logger
}

// NewReplyHandler creates a new reply handler. generator may be nil.
func NewReplyHandler(generator reply.Generator, log *logger.Logger) *ReplyHandler {
	return &ReplyHandler{
		generator: generator,
		logger:    log,
	}
}

// Reply handles POST /api/reply
// Form fields: text, targetLanguage, sessionId. Answers {"output": "..."}.
func (h *ReplyHandler) Reply(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		writeError(w, http.StatusServiceUnavailable, "no reply generator configured")
		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	req := model.ReplyRequest{
		Text:           r.PostForm.Get("text"),
		TargetLanguage: r.PostForm.Get("targetLanguage"),
		SessionID:      r.PostForm.Get("sessionId"),
	}
	if err := middleware.ValidateMessageContent(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SessionID != "" {
		if err := middleware.ValidateSessionID(req.SessionID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	output, err := h.generator.Generate(r.Context(), req)
	if err != nil {
		h.logger.Warn("reply generation failed",
			zap.String("generator", h.generator.Name()),
			zap.String("session_id", req.SessionID),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "failed to generate reply")
		return
	}

	writeJSON(w, http.StatusOK, model.ReplyResponse{Output: output})
}
