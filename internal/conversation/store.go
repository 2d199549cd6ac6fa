// Package conversation holds the transcript currently on screen and the
// active session id for one client.
package conversation

import (
	"sync"

	"github.com/mutumwa-ai/chat-platform/internal/model"
)

// Store is the in-memory conversation state. Appends are never reordered.
type Store struct {
	mu       sync.RWMutex
	activeID string
	messages []model.Message
	loading  bool
}

// New creates an empty store.
func New() *Store {
	return &Store{messages: []model.Message{}}
}

// ActiveSession returns the id of the displayed session.
func (s *Store) ActiveSession() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// SetActiveSession switches the displayed session. Switching to a different id
// empties the transcript.
func (s *Store) SetActiveSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != s.activeID {
		s.messages = []model.Message{}
	}
	s.activeID = id
}

// Messages returns a copy of the transcript.
func (s *Store) Messages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SetMessages replaces the transcript wholesale.
func (s *Store) SetMessages(msgs []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make([]model.Message, len(msgs))
	copy(s.messages, msgs)
}

// Replace rewrites the transcript of sessionID with fn under the store lock,
// so confirmations cannot land between the read and the write. It reports
// whether sessionID was active.
func (s *Store) Replace(sessionID string, fn func(current []model.Message) []model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID != sessionID {
		return false
	}
	current := make([]model.Message, len(s.messages))
	copy(current, s.messages)

	next := fn(current)
	s.messages = make([]model.Message, len(next))
	copy(s.messages, next)
	return true
}

// AppendMessage adds msg at the end of the transcript.
func (s *Store) AppendMessage(msg model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// AppendTo adds msg only if sessionID is still the active session. It reports
// whether the message was appended.
func (s *Store) AppendTo(sessionID string, msg model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID != sessionID {
		return false
	}
	s.messages = append(s.messages, msg)
	return true
}

// MarkConfirmed clears the pending flag of the message with the given local id.
func (s *Store) MarkConfirmed(localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].UUID == localID {
			s.messages[i].Pending = false
			return
		}
	}
}

// SetLoading toggles the reply-in-flight indicator.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

// IsLoading reports whether a reply is in flight.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}
