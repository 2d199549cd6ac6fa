package chatsync

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mutumwa-ai/chat-platform/internal/model"
)

// Apology is shown when no reply could be produced. It is never persisted.
const Apology = "Sorry, I couldn't process your message. Please try again."

// ErrNoReplyGenerator is returned by Converse when none was configured.
var ErrNoReplyGenerator = errors.New("chatsync: no reply generator configured")

// Converse sends a user message and waits for the assistant's reply. On
// failure the apology is shown locally and the error returned. The loading
// flag is set for the duration of the call.
func (s *Synchronizer) Converse(ctx context.Context, id, text, targetLanguage string) (model.Message, error) {
	s.SendUserMessage(ctx, id, text)

	s.state.SetLoading(true)
	defer s.state.SetLoading(false)

	err := ErrNoReplyGenerator
	var out string
	if s.replies != nil {
		out, err = s.replies.Generate(ctx, model.ReplyRequest{
			Text:           text,
			TargetLanguage: targetLanguage,
			SessionID:      id,
		})
	}
	if err != nil {
		s.logger.Warn("reply failed",
			zap.String("session_id", id),
			zap.Error(err),
		)
		apology := model.Message{
			UUID:      uuid.Must(uuid.NewV7()).String(),
			Role:      model.RoleAssistant,
			RoleType:  model.RoleAssistant,
			Content:   Apology,
			CreatedAt: s.now(),
		}
		s.state.AppendTo(id, apology)
		return apology, err
	}

	return s.RecordAssistantMessage(ctx, id, out), nil
}
