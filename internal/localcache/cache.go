// Package localcache keeps a local, possibly stale projection of chat sessions
// for instant listing while the memory store is slow or unreachable.
package localcache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mutumwa-ai/chat-platform/internal/kv"
	"github.com/mutumwa-ai/chat-platform/internal/model"
	"github.com/mutumwa-ai/chat-platform/pkg/logger"
	"github.com/mutumwa-ai/chat-platform/pkg/metrics"
)

const (
	// SessionsKey holds the JSON array of session summaries.
	SessionsKey = "mutumwa_chat_sessions"
	// CurrentSessionKey holds the id of the session last displayed.
	CurrentSessionKey = "mutumwa_current_session"
	// MaxEntries caps the number of cached summaries.
	MaxEntries = 50
)

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache is the local session cache. Summaries are stored most recent first.
type Cache struct {
	store  kv.Store
	logger *logger.Logger
	now    func() time.Time

	// mu serializes read-modify-write cycles within this process only.
	mu sync.Mutex
}

// New creates a cache over store.
func New(store kv.Store, log *logger.Logger, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// All returns the cached summaries, most recently updated first. Unreadable
// or corrupt data yields an empty list.
func (c *Cache) All() []model.SessionSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

// Get returns the summary for id.
func (c *Cache) Get(id string) (model.SessionSummary, bool) {
	for _, s := range c.All() {
		if s.ID == id {
			return s, true
		}
	}
	return model.SessionSummary{}, false
}

// Upsert stores summary at the front, replacing any entry with the same id,
// and evicts the oldest entries beyond MaxEntries.
func (c *Cache) Upsert(summary model.SessionSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sessions := withoutID(c.load(), summary.ID)
	sessions = append([]model.SessionSummary{summary}, sessions...)
	return c.save(sessions)
}

// RecordUserMessage updates the summary of id after a user message, creating
// it with a title derived from text when the session is not cached yet.
func (c *Cache) RecordUserMessage(id, text string) (model.SessionSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sessions := c.load()
	now := c.now()

	summary := model.SessionSummary{
		ID:           id,
		Title:        model.DeriveTitle(text),
		LastMessage:  text,
		Timestamp:    now,
		MessageCount: 1,
	}
	for _, s := range sessions {
		if s.ID == id {
			summary = s
			summary.LastMessage = text
			summary.Timestamp = now
			summary.MessageCount++
			break
		}
	}

	sessions = append([]model.SessionSummary{summary}, withoutID(sessions, id)...)
	return summary, c.save(sessions)
}

// Remove deletes the summary for id.
func (c *Cache) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(withoutID(c.load(), id))
}

// Clear drops every summary and the current session id.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Delete(SessionsKey); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	if err := c.store.Delete(CurrentSessionKey); err != nil {
		return fmt.Errorf("failed to clear current session: %w", err)
	}
	metrics.LocalCacheEntries.Set(0)
	return nil
}

// CurrentSessionID returns the session last displayed, or "".
func (c *Cache) CurrentSessionID() string {
	id, _, err := c.store.Get(CurrentSessionKey)
	if err != nil {
		c.logger.Warn("failed to read current session id", zap.Error(err))
		return ""
	}
	return id
}

// SetCurrentSessionID remembers the session being displayed.
func (c *Cache) SetCurrentSessionID(id string) error {
	if err := c.store.Set(CurrentSessionKey, id); err != nil {
		return fmt.Errorf("failed to save current session id: %w", err)
	}
	return nil
}

func (c *Cache) load() []model.SessionSummary {
	raw, ok, err := c.store.Get(SessionsKey)
	if err != nil {
		c.logger.Warn("failed to read cached sessions", zap.Error(err))
		return []model.SessionSummary{}
	}
	if !ok || raw == "" {
		return []model.SessionSummary{}
	}

	var sessions []model.SessionSummary
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		c.logger.Warn("cached sessions are corrupt, ignoring", zap.Error(err))
		return []model.SessionSummary{}
	}
	if sessions == nil {
		return []model.SessionSummary{}
	}
	return sessions
}

func (c *Cache) save(sessions []model.SessionSummary) error {
	if len(sessions) > MaxEntries {
		sessions = sessions[:MaxEntries]
	}

	data, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}
	if err := c.store.Set(SessionsKey, string(data)); err != nil {
		return fmt.Errorf("failed to save sessions: %w", err)
	}

	metrics.LocalCacheEntries.Set(float64(len(sessions)))
	return nil
}

func withoutID(sessions []model.SessionSummary, id string) []model.SessionSummary {
	out := make([]model.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}
