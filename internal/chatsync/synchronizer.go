// Package chatsync keeps the local session cache, the on-screen conversation
// and the remote memory store in step. Local state is updated first and is
// authoritative for display; remote writes run in the background per session.
package chatsync

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mutumwa-ai/chat-platform/internal/conversation"
	"github.com/mutumwa-ai/chat-platform/internal/localcache"
	"github.com/mutumwa-ai/chat-platform/internal/memstore"
	"github.com/mutumwa-ai/chat-platform/internal/model"
	"github.com/mutumwa-ai/chat-platform/internal/reply"
	"github.com/mutumwa-ai/chat-platform/pkg/logger"
	"github.com/mutumwa-ai/chat-platform/pkg/metrics"
)

var tracer = otel.Tracer("github.com/mutumwa-ai/chat-platform/internal/chatsync")

// RemoteStore is the subset of the memory store client the synchronizer uses.
type RemoteStore interface {
	ListSessions(ctx context.Context, userID string) ([]model.Session, error)
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	CreateSession(ctx context.Context, sessionID, titleSeed string) (*model.Session, error)
	ListMessages(ctx context.Context, sessionID string) (*model.MessageList, error)
	AppendMessages(ctx context.Context, sessionID string, msgs []model.MessageInput) ([]model.Message, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Source tells where a session listing came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
)

// SessionListing is the result of LoadAllSessions. Err is set when the
// listing fell back to the local cache.
type SessionListing struct {
	Sessions []model.SessionSummary
	Source   Source
	Err      error
}

// MatchWindow bounds the clock skew between an optimistic message and its
// stored twin.
const MatchWindow = 2 * time.Minute

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithClock overrides the time source for optimistic messages.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) {
		s.now = now
	}
}

// WithIDGenerator overrides how new session ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(s *Synchronizer) {
		s.newID = newID
	}
}

// Synchronizer coordinates one client's sessions.
type Synchronizer struct {
	remote  RemoteStore
	cache   *localcache.Cache
	state   *conversation.Store
	replies reply.Generator
	logger  *logger.Logger
	now     func() time.Time
	newID   func() string

	mu        sync.Mutex
	persisted map[string]bool
	deleted   map[string]bool
	tails     map[string]chan struct{}
	wg        sync.WaitGroup
}

// New creates a synchronizer. replies may be nil when Converse is not used.
func New(
	remote RemoteStore,
	cache *localcache.Cache,
	state *conversation.Store,
	replies reply.Generator,
	log *logger.Logger,
	opts ...Option,
) *Synchronizer {
	s := &Synchronizer{
		remote:    remote,
		cache:     cache,
		state:     state,
		replies:   replies,
		logger:    log,
		now:       time.Now,
		newID:     uuid.NewString,
		persisted: make(map[string]bool),
		deleted:   make(map[string]bool),
		tails:     make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSession starts a provisional session. Nothing is written remotely until
// the first message.
func (s *Synchronizer) NewSession() string {
	id := s.newID()
	s.activate(id)
	s.logger.Debug("started provisional session", zap.String("session_id", id))
	return id
}

// Resume reactivates the session last displayed, or starts a new one.
func (s *Synchronizer) Resume() string {
	id := s.cache.CurrentSessionID()
	if id == "" {
		return s.NewSession()
	}
	s.state.SetActiveSession(id)
	return id
}

// ActiveSession returns the session currently displayed.
func (s *Synchronizer) ActiveSession() string {
	return s.state.ActiveSession()
}

// Cached returns the local listing without touching the network.
func (s *Synchronizer) Cached() []model.SessionSummary {
	return s.cache.All()
}

// LoadAllSessions lists sessions from the memory store. On failure it falls
// back to the cached listing and reports the error in the result.
func (s *Synchronizer) LoadAllSessions(ctx context.Context) SessionListing {
	ctx, span := tracer.Start(ctx, "chatsync.LoadAllSessions")
	defer span.End()

	cached := s.cache.All()

	remote, err := s.remote.ListSessions(ctx, "")
	if err != nil {
		s.logger.Warn("listing sessions from cache, memory store unavailable", zap.Error(err))
		span.RecordError(err)
		return SessionListing{Sessions: s.withoutDeleted(cached), Source: SourceCache, Err: err}
	}

	byID := make(map[string]model.SessionSummary, len(cached))
	for _, c := range cached {
		byID[c.ID] = c
	}

	out := make([]model.SessionSummary, 0, len(remote))
	seen := make(map[string]bool, len(remote))

	s.mu.Lock()
	for _, sess := range remote {
		if sess.SessionID == "" || s.deleted[sess.SessionID] || seen[sess.SessionID] {
			continue
		}
		seen[sess.SessionID] = true
		s.persisted[sess.SessionID] = true
		out = append(out, project(sess, byID[sess.SessionID]))
	}

	// Sessions whose first write is still in flight are not listed remotely yet.
	for _, c := range cached {
		if !seen[c.ID] && !s.deleted[c.ID] && s.tails[c.ID] != nil {
			out = append(out, c)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	span.SetAttributes(attribute.Int("sessions.count", len(out)))
	return SessionListing{Sessions: out, Source: SourceRemote}
}

// project turns a remote session into a summary, borrowing what only the
// local cache knows.
func project(sess model.Session, cached model.SessionSummary) model.SessionSummary {
	summary := model.SessionSummary{
		ID:           sess.SessionID,
		Title:        sess.Title(),
		LastMessage:  cached.LastMessage,
		MessageCount: cached.MessageCount,
		Timestamp:    sess.UpdatedAt,
	}
	if summary.Title == "" {
		summary.Title = cached.Title
	}
	if summary.Timestamp.IsZero() {
		summary.Timestamp = sess.CreatedAt
	}
	if cached.Timestamp.After(summary.Timestamp) {
		summary.Timestamp = cached.Timestamp
	}
	return summary
}

// LoadSessionMessages activates a session and replaces the transcript with the
// stored messages. Optimistic messages the store does not have yet are kept at
// the end. On failure the transcript is left as is and the error returned.
func (s *Synchronizer) LoadSessionMessages(ctx context.Context, id string) ([]model.Message, error) {
	ctx, span := tracer.Start(ctx, "chatsync.LoadSessionMessages")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	s.activate(id)

	list, err := s.remote.ListMessages(ctx, id)
	if err != nil {
		s.logger.Warn("failed to load session messages",
			zap.String("session_id", id),
			zap.Error(err),
		)
		span.RecordError(err)
		return s.state.Messages(), err
	}

	if len(list.Messages) > 0 {
		s.mu.Lock()
		s.persisted[id] = true
		s.mu.Unlock()
	}

	var merged []model.Message
	replaced := s.state.Replace(id, func(current []model.Message) []model.Message {
		merged = Reconcile(list.Messages, current)
		return merged
	})
	if !replaced {
		// Another session was opened meanwhile; nothing local to keep.
		merged = Reconcile(list.Messages, nil)
	}
	return merged, nil
}

// Reconcile merges the stored messages with the pending local messages the
// store does not have yet. A twin has the same role and content and a
// timestamp within MatchWindow. Stored messages already shown as confirmed
// locally are reserved first, so a pending message repeating an earlier text
// is not mistaken for it. Unmatched pending messages are placed by creation
// time, after stored messages with an equal or later timestamp.
func Reconcile(stored, local []model.Message) []model.Message {
	used := make([]bool, len(stored))
	claim := func(m model.Message) bool {
		for j := range stored {
			if !used[j] && (stored[j].UUID == m.UUID || isTwin(stored[j], m)) {
				used[j] = true
				return true
			}
		}
		return false
	}

	for _, m := range local {
		if !m.Pending {
			claim(m)
		}
	}

	var unsent []model.Message
	for _, p := range local {
		if p.Pending && !claim(p) {
			unsent = append(unsent, p)
		}
	}

	out := make([]model.Message, 0, len(stored)+len(unsent))
	i, j := 0, 0
	for i < len(stored) || j < len(unsent) {
		if j < len(unsent) && (i == len(stored) || unsent[j].CreatedAt.Before(stored[i].CreatedAt)) {
			out = append(out, unsent[j])
			j++
			continue
		}
		m := stored[i]
		m.Pending = false
		out = append(out, m)
		i++
	}
	return out
}

func isTwin(stored, pending model.Message) bool {
	if stored.Speaker() != pending.Speaker() || stored.Content != pending.Content {
		return false
	}
	if stored.CreatedAt.IsZero() {
		return true
	}
	d := stored.CreatedAt.Sub(pending.CreatedAt)
	return d <= MatchWindow && d >= -MatchWindow
}

// SendUserMessage shows the message immediately, records it in the local
// cache and persists it in the background. The session is created remotely
// on its first message.
func (s *Synchronizer) SendUserMessage(ctx context.Context, id, text string) model.Message {
	if s.state.ActiveSession() != id {
		s.activate(id)
	}

	s.mu.Lock()
	delete(s.deleted, id)
	s.mu.Unlock()

	msg := s.newMessage(model.RoleUser, text)
	s.state.AppendMessage(msg)
	metrics.MessagesTotal.WithLabelValues(string(model.RoleUser)).Inc()

	if _, err := s.cache.RecordUserMessage(id, text); err != nil {
		s.logger.Warn("failed to update local session cache",
			zap.String("session_id", id),
			zap.Error(err),
		)
	}

	s.enqueue(ctx, id, func(ctx context.Context) {
		s.persist(ctx, id, msg, text)
	})
	return msg
}

// RecordAssistantMessage shows an assistant reply and persists it in the
// background. The local cache is not touched.
func (s *Synchronizer) RecordAssistantMessage(ctx context.Context, id, text string) model.Message {
	msg := s.newMessage(model.RoleAssistant, text)
	s.state.AppendTo(id, msg)
	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()

	seed := text
	if cached, ok := s.cache.Get(id); ok && cached.Title != "" {
		seed = cached.Title
	}

	s.enqueue(ctx, id, func(ctx context.Context) {
		s.persist(ctx, id, msg, seed)
	})
	return msg
}

// DeleteSession deletes a session remotely, best effort, and always forgets it
// locally. Deleting the active session starts a new provisional one. The
// returned error describes a failed remote delete only.
func (s *Synchronizer) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	s.deleted[id] = true
	delete(s.persisted, id)
	s.mu.Unlock()

	var remoteErr error
	done := s.enqueue(ctx, id, func(ctx context.Context) {
		err := s.remote.DeleteSession(ctx, id)
		if err != nil && !errors.Is(err, memstore.ErrNotFound) {
			metrics.RemoteWriteFailures.WithLabelValues("delete_session").Inc()
			s.logger.Warn("failed to delete session from memory store",
				zap.String("session_id", id),
				zap.Error(err),
			)
			remoteErr = err
		}
	})

	if err := s.cache.Remove(id); err != nil {
		s.logger.Warn("failed to remove session from local cache",
			zap.String("session_id", id),
			zap.Error(err),
		)
	}
	if s.state.ActiveSession() == id {
		s.NewSession()
	}

	select {
	case <-done:
		return remoteErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush waits until all queued background writes have finished.
func (s *Synchronizer) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Synchronizer) activate(id string) {
	s.state.SetActiveSession(id)
	if err := s.cache.SetCurrentSessionID(id); err != nil {
		s.logger.Warn("failed to remember current session",
			zap.String("session_id", id),
			zap.Error(err),
		)
	}
}

func (s *Synchronizer) newMessage(role model.Role, text string) model.Message {
	return model.Message{
		UUID:      uuid.Must(uuid.NewV7()).String(),
		Role:      role,
		RoleType:  role,
		Content:   text,
		CreatedAt: s.now(),
		Pending:   true,
	}
}

func (s *Synchronizer) withoutDeleted(sessions []model.SessionSummary) []model.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := sessions[:0]
	for _, sess := range sessions {
		if !s.deleted[sess.ID] {
			out = append(out, sess)
		}
	}
	return out
}

// enqueue runs job after every job previously queued for the same session.
// The job gets a context detached from the caller's cancellation. The
// returned channel closes when the job is done.
func (s *Synchronizer) enqueue(ctx context.Context, id string, job func(context.Context)) <-chan struct{} {
	bg := context.WithoutCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	prev := s.tails[id]
	s.tails[id] = done
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer close(done)

		if prev != nil {
			<-prev
		}
		job(bg)

		s.mu.Lock()
		if s.tails[id] == done {
			delete(s.tails, id)
		}
		s.mu.Unlock()
	}()
	return done
}

// persist appends one message, creating the session first if needed.
func (s *Synchronizer) persist(ctx context.Context, id string, msg model.Message, titleSeed string) {
	ctx, span := tracer.Start(ctx, "chatsync.persist")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", id),
		attribute.String("message.role", string(msg.Role)),
	)

	log := s.logger.WithSession(id)

	s.mu.Lock()
	skip := s.deleted[id]
	s.mu.Unlock()
	if skip {
		log.Debug("dropping write for deleted session")
		return
	}

	if err := s.ensureSession(ctx, id, titleSeed); err != nil {
		metrics.RemoteWriteFailures.WithLabelValues("create_session").Inc()
		span.RecordError(err)
		log.Warn("failed to ensure session in memory store", zap.Error(err))
		return
	}

	_, err := s.remote.AppendMessages(ctx, id, []model.MessageInput{
		{Role: msg.Role, RoleType: msg.Role, Content: msg.Content},
	})
	if err != nil {
		metrics.RemoteWriteFailures.WithLabelValues("append_messages").Inc()
		span.RecordError(err)
		log.Warn("failed to append message to memory store",
			zap.String("role", string(msg.Role)),
			zap.Error(err),
		)
		return
	}

	s.state.MarkConfirmed(msg.UUID)
}

// ensureSession creates the session on first use. It runs on the session's
// queue, so at most one create is issued per session.
func (s *Synchronizer) ensureSession(ctx context.Context, id, titleSeed string) error {
	s.mu.Lock()
	known := s.persisted[id]
	s.mu.Unlock()
	if known {
		return nil
	}

	_, err := s.remote.GetSession(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, memstore.ErrNotFound):
		if _, err := s.remote.CreateSession(ctx, id, titleSeed); err != nil {
			if !alreadyExists(err) {
				return err
			}
		} else {
			metrics.SessionsCreatedTotal.Inc()
			s.logger.Info("created session in memory store", zap.String("session_id", id))
		}
	default:
		return err
	}

	s.mu.Lock()
	s.persisted[id] = true
	s.mu.Unlock()
	return nil
}

// alreadyExists reports whether a create failed because another writer won.
func alreadyExists(err error) bool {
	return memstore.StatusCode(err) == http.StatusConflict
}
