package chatsync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mutumwa-ai/chat-platform/internal/conversation"
	"github.com/mutumwa-ai/chat-platform/internal/kv"
	"github.com/mutumwa-ai/chat-platform/internal/localcache"
	"github.com/mutumwa-ai/chat-platform/internal/memstore"
	"github.com/mutumwa-ai/chat-platform/internal/model"
	"github.com/mutumwa-ai/chat-platform/pkg/logger"
)

type fixture struct {
	sync    *Synchronizer
	remote  *fakeRemote
	cache   *localcache.Cache
	state   *conversation.Store
	replies *fakeReplies
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	n := 0
	nextID := func() string {
		n++
		return fmt.Sprintf("session-%d", n)
	}

	f := &fixture{
		remote:  newFakeRemote(),
		cache:   localcache.New(kv.NewMemory(), logger.Nop()),
		state:   conversation.New(),
		replies: &fakeReplies{out: "Hi there!"},
	}
	f.sync = New(f.remote, f.cache, f.state, f.replies, logger.Nop(), WithIDGenerator(nextID))
	return f
}

func (f *fixture) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.sync.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
}

func contents(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var ctx = context.Background()

func TestNewSessionIsProvisional(t *testing.T) {
	f := newFixture(t)

	id := f.sync.NewSession()

	if id != "session-1" || f.state.ActiveSession() != id {
		t.Errorf("expected active session-1, got %q", f.state.ActiveSession())
	}
	if f.cache.CurrentSessionID() != id {
		t.Errorf("expected current id remembered, got %q", f.cache.CurrentSessionID())
	}
	if len(f.state.Messages()) != 0 {
		t.Error("expected empty transcript")
	}
	f.flush(t)
	if f.remote.creates != 0 {
		t.Errorf("provisional session must not be created remotely, got %d creates", f.remote.creates)
	}
}

func TestResume(t *testing.T) {
	f := newFixture(t)

	if id := f.sync.Resume(); id != "session-1" {
		t.Errorf("expected new session, got %q", id)
	}

	f.cache.SetCurrentSessionID("existing")
	if id := f.sync.Resume(); id != "existing" || f.state.ActiveSession() != "existing" {
		t.Errorf("expected existing session resumed, got %q", id)
	}
}

func TestSendUserMessageCreatesSessionOnce(t *testing.T) {
	f := newFixture(t)
	id := f.sync.NewSession()

	for _, text := range []string{"Hello", "How are you?", "Tell me a story"} {
		f.sync.SendUserMessage(ctx, id, text)
	}
	f.flush(t)

	if f.remote.creates != 1 {
		t.Errorf("expected exactly one create, got %d", f.remote.creates)
	}
	want := []string{"Hello", "How are you?", "Tell me a story"}
	if got := contents(f.remote.stored(id)); !equal(got, want) {
		t.Errorf("expected stored %v, got %v", want, got)
	}
	if title := f.remote.sessions[id].Title(); title != "Hello" {
		t.Errorf("expected title from first message, got %q", title)
	}
	for _, m := range f.state.Messages() {
		if m.Pending {
			t.Errorf("expected %q confirmed", m.Content)
		}
	}

	summary, ok := f.cache.Get(id)
	if !ok || summary.MessageCount != 3 || summary.LastMessage != "Tell me a story" || summary.Title != "Hello" {
		t.Errorf("unexpected cache entry %+v", summary)
	}
}

func TestSendUserMessageExistingSessionNotRecreated(t *testing.T) {
	f := newFixture(t)
	f.remote.CreateSession(ctx, "known", "Earlier")
	creates := f.remote.creates

	f.sync.SendUserMessage(ctx, "known", "Back again")
	f.flush(t)

	if f.remote.creates != creates {
		t.Errorf("expected no new create, got %d", f.remote.creates-creates)
	}
	if got := contents(f.remote.stored("known")); !equal(got, []string{"Back again"}) {
		t.Errorf("unexpected stored messages %v", got)
	}
}

func TestSendUserMessageSurvivesAppendFailure(t *testing.T) {
	f := newFixture(t)
	f.remote.failAppend = true
	id := f.sync.NewSession()

	msg := f.sync.SendUserMessage(ctx, id, "Hello")
	f.flush(t)

	msgs := f.state.Messages()
	if len(msgs) != 1 || msgs[0].UUID != msg.UUID || !msgs[0].Pending {
		t.Errorf("expected pending message kept, got %+v", msgs)
	}
	if _, ok := f.cache.Get(id); !ok {
		t.Error("expected cache entry despite remote failure")
	}
}

func TestHelloScenario(t *testing.T) {
	f := newFixture(t)
	id := f.sync.NewSession()

	reply, err := f.sync.Converse(ctx, id, "Hello", "english")
	if err != nil {
		t.Fatalf("Converse failed: %v", err)
	}
	f.flush(t)

	if reply.Content != "Hi there!" || reply.Speaker() != model.RoleAssistant {
		t.Errorf("unexpected reply %+v", reply)
	}
	if f.replies.got.SessionID != id || f.replies.got.TargetLanguage != "english" {
		t.Errorf("unexpected reply request %+v", f.replies.got)
	}
	if f.state.IsLoading() {
		t.Error("expected loading cleared")
	}

	want := []string{"Hello", "Hi there!"}
	if got := contents(f.state.Messages()); !equal(got, want) {
		t.Errorf("expected transcript %v, got %v", want, got)
	}
	if got := contents(f.remote.stored(id)); !equal(got, want) {
		t.Errorf("expected stored %v, got %v", want, got)
	}
	if f.remote.creates != 1 || f.remote.sessions[id].Title() != "Hello" {
		t.Errorf("expected one session titled Hello, got %d creates", f.remote.creates)
	}

	summary, _ := f.cache.Get(id)
	if summary.MessageCount != 1 || summary.LastMessage != "Hello" {
		t.Errorf("assistant replies must not touch the cache, got %+v", summary)
	}

	listing := f.sync.LoadAllSessions(ctx)
	if listing.Source != SourceRemote || len(listing.Sessions) != 1 {
		t.Fatalf("unexpected listing %+v", listing)
	}
	if s := listing.Sessions[0]; s.ID != id || s.Title != "Hello" || s.MessageCount != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestConverseReplyFailureShowsApology(t *testing.T) {
	f := newFixture(t)
	f.replies.err = errors.New("webhook down")
	id := f.sync.NewSession()

	msg, err := f.sync.Converse(ctx, id, "Hello", "english")
	if err == nil {
		t.Fatal("expected reply error")
	}
	f.flush(t)

	if msg.Content != Apology {
		t.Errorf("expected apology, got %q", msg.Content)
	}
	if f.state.IsLoading() {
		t.Error("expected loading cleared")
	}
	if got := contents(f.state.Messages()); !equal(got, []string{"Hello", Apology}) {
		t.Errorf("unexpected transcript %v", got)
	}
	if got := contents(f.remote.stored(id)); !equal(got, []string{"Hello"}) {
		t.Errorf("apology must not be persisted, stored %v", got)
	}
}

func TestConverseWithoutGenerator(t *testing.T) {
	f := newFixture(t)
	s := New(f.remote, f.cache, f.state, nil, logger.Nop())
	id := s.NewSession()

	if _, err := s.Converse(ctx, id, "Hello", ""); !errors.Is(err, ErrNoReplyGenerator) {
		t.Errorf("expected ErrNoReplyGenerator, got %v", err)
	}
}

func TestUnreachableStore(t *testing.T) {
	f := newFixture(t)
	f.remote.setDown(true)
	id := f.sync.NewSession()

	f.sync.SendUserMessage(ctx, id, "Are you there?")
	f.flush(t)

	listing := f.sync.LoadAllSessions(ctx)
	if listing.Source != SourceCache || !errors.Is(listing.Err, memstore.ErrTransport) {
		t.Errorf("expected cache listing with transport error, got %+v", listing)
	}
	if len(listing.Sessions) != 1 || listing.Sessions[0].Title != "Are you there?" {
		t.Errorf("expected cached session, got %+v", listing.Sessions)
	}

	msgs, err := f.sync.LoadSessionMessages(ctx, id)
	if err == nil {
		t.Error("expected load error")
	}
	if got := contents(msgs); !equal(got, []string{"Are you there?"}) {
		t.Errorf("expected transcript kept, got %v", got)
	}

	// The store comes back. The first message was never stored and stays visible.
	f.remote.setDown(false)
	f.sync.SendUserMessage(ctx, id, "Hello again")
	f.flush(t)

	if f.remote.creates != 1 {
		t.Errorf("expected one create, got %d", f.remote.creates)
	}
	msgs, err = f.sync.LoadSessionMessages(ctx, id)
	if err != nil {
		t.Fatalf("LoadSessionMessages failed: %v", err)
	}
	if got := contents(msgs); !equal(got, []string{"Are you there?", "Hello again"}) {
		t.Errorf("expected creation order kept, got %v", got)
	}
	if !msgs[0].Pending || msgs[1].Pending {
		t.Errorf("expected only the unsent message pending, got %+v", msgs)
	}
}

func TestRepeatedTextUnsentSurvivesReload(t *testing.T) {
	f := newFixture(t)
	id := f.sync.NewSession()

	f.sync.SendUserMessage(ctx, id, "ok")
	f.flush(t)

	f.remote.mu.Lock()
	f.remote.failAppend = true
	f.remote.mu.Unlock()
	f.sync.SendUserMessage(ctx, id, "ok")
	f.flush(t)

	f.remote.mu.Lock()
	f.remote.failAppend = false
	f.remote.mu.Unlock()

	if got := len(f.remote.stored(id)); got != 1 {
		t.Fatalf("expected 1 stored message, got %d", got)
	}

	msgs, err := f.sync.LoadSessionMessages(ctx, id)
	if err != nil {
		t.Fatalf("LoadSessionMessages failed: %v", err)
	}
	if got := contents(msgs); !equal(got, []string{"ok", "ok"}) {
		t.Fatalf("expected both messages shown, got %v", got)
	}
	if msgs[0].Pending || !msgs[1].Pending {
		t.Errorf("expected stored then pending, got %+v", msgs)
	}
	if got := contents(f.state.Messages()); !equal(got, []string{"ok", "ok"}) {
		t.Errorf("expected transcript to keep both messages, got %v", got)
	}
}

func TestLoadAllSessionsEmptyRemoteIsAuthoritative(t *testing.T) {
	f := newFixture(t)
	f.cache.Upsert(model.SessionSummary{ID: "stale", Title: "Old chat", Timestamp: time.Now()})

	if cached := f.sync.Cached(); len(cached) != 1 {
		t.Fatalf("expected cached entry, got %v", cached)
	}

	listing := f.sync.LoadAllSessions(ctx)
	if listing.Source != SourceRemote || listing.Err != nil {
		t.Errorf("unexpected listing %+v", listing)
	}
	if listing.Sessions == nil || len(listing.Sessions) != 0 {
		t.Errorf("expected empty remote listing, got %+v", listing.Sessions)
	}
}

func TestLoadAllSessionsNewestFirst(t *testing.T) {
	f := newFixture(t)
	f.remote.CreateSession(ctx, "a", "First")
	f.remote.CreateSession(ctx, "b", "Second")
	f.remote.sessions["a"].UpdatedAt = time.Now().Add(-time.Hour)

	listing := f.sync.LoadAllSessions(ctx)
	if len(listing.Sessions) != 2 || listing.Sessions[0].ID != "b" || listing.Sessions[1].Title != "First" {
		t.Errorf("unexpected order %+v", listing.Sessions)
	}
}

func TestLoadSessionMessagesAbsentIsEmpty(t *testing.T) {
	f := newFixture(t)
	f.sync.NewSession()

	msgs, err := f.sync.LoadSessionMessages(ctx, "S2")
	if err != nil {
		t.Fatalf("LoadSessionMessages failed: %v", err)
	}
	if len(msgs) != 0 || f.state.ActiveSession() != "S2" {
		t.Errorf("expected empty transcript for S2, got %v", msgs)
	}
	if f.cache.CurrentSessionID() != "S2" {
		t.Errorf("expected S2 remembered, got %q", f.cache.CurrentSessionID())
	}
}

func TestDeleteActiveSession(t *testing.T) {
	f := newFixture(t)
	id := f.sync.NewSession()
	f.sync.SendUserMessage(ctx, id, "Hello")
	f.flush(t)

	if err := f.sync.DeleteSession(ctx, id); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	if active := f.state.ActiveSession(); active == id || active == "" {
		t.Errorf("expected a new provisional session, got %q", active)
	}
	if len(f.state.Messages()) != 0 {
		t.Error("expected empty transcript")
	}
	if _, ok := f.cache.Get(id); ok {
		t.Error("expected session removed from cache")
	}
	if _, ok := f.remote.sessions[id]; ok {
		t.Error("expected session removed remotely")
	}
}

func TestDeleteSessionRemoteFailure(t *testing.T) {
	f := newFixture(t)
	id := f.sync.NewSession()
	f.sync.SendUserMessage(ctx, id, "Hello")
	f.flush(t)
	f.remote.failDelete = true

	if err := f.sync.DeleteSession(ctx, id); !errors.Is(err, memstore.ErrTransport) {
		t.Errorf("expected transport error, got %v", err)
	}
	if _, ok := f.cache.Get(id); ok {
		t.Error("expected session removed from cache")
	}

	// The store still has it, but it never reappears in the listing.
	listing := f.sync.LoadAllSessions(ctx)
	for _, s := range listing.Sessions {
		if s.ID == id {
			t.Errorf("deleted session %s reappeared", id)
		}
	}
}

func TestDeleteUnknownSession(t *testing.T) {
	f := newFixture(t)
	active := f.sync.NewSession()

	if err := f.sync.DeleteSession(ctx, "never-stored"); err != nil {
		t.Errorf("expected not found to be ignored, got %v", err)
	}
	if f.state.ActiveSession() != active {
		t.Error("deleting another session must not change the active one")
	}
}

func TestReconcile(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	stored := func(content string, role model.Role, at time.Time) model.Message {
		return model.Message{UUID: "r-" + content, Role: role, RoleType: role, Content: content, CreatedAt: at}
	}
	pending := func(content string, at time.Time) model.Message {
		return model.Message{UUID: "l-" + content, Role: model.RoleUser, Content: content, CreatedAt: at, Pending: true}
	}

	tests := []struct {
		name   string
		stored []model.Message
		local  []model.Message
		want   []string
	}{
		{
			name:   "confirmed twin replaces pending",
			stored: []model.Message{stored("Hello", model.RoleUser, base)},
			local:  []model.Message{pending("Hello", base.Add(time.Second))},
			want:   []string{"r-Hello"},
		},
		{
			name:   "unmatched pending kept after stored",
			stored: []model.Message{stored("Hello", model.RoleUser, base)},
			local:  []model.Message{pending("Unsent", base.Add(time.Second))},
			want:   []string{"r-Hello", "l-Unsent"},
		},
		{
			name:   "equal timestamps keep stored first",
			stored: []model.Message{stored("Hello", model.RoleUser, base)},
			local:  []model.Message{pending("Unsent", base)},
			want:   []string{"r-Hello", "l-Unsent"},
		},
		{
			name: "older pending placed by creation time",
			stored: []model.Message{
				stored("Hello again", model.RoleUser, base.Add(time.Minute)),
				stored("Hi", model.RoleAssistant, base.Add(2*time.Minute)),
			},
			local: []model.Message{pending("Are you there?", base)},
			want:  []string{"l-Are you there?", "r-Hello again", "r-Hi"},
		},
		{
			name:   "pending between stored messages",
			stored: []model.Message{stored("one", model.RoleUser, base), stored("three", model.RoleUser, base.Add(2*time.Minute))},
			local:  []model.Message{pending("two", base.Add(time.Minute))},
			want:   []string{"r-one", "l-two", "r-three"},
		},
		{
			name:   "confirmed copy reserves its stored twin",
			stored: []model.Message{stored("ok", model.RoleUser, base)},
			local: []model.Message{
				{UUID: "l-first", Role: model.RoleUser, Content: "ok", CreatedAt: base},
				{UUID: "l-second", Role: model.RoleUser, Content: "ok", CreatedAt: base.Add(time.Second), Pending: true},
			},
			want: []string{"r-ok", "l-second"},
		},
		{
			name:   "loaded copy reserves by id",
			stored: []model.Message{stored("ok", model.RoleUser, base)},
			local: []model.Message{
				{UUID: "r-ok", Role: model.RoleUser, RoleType: model.RoleUser, Content: "ok", CreatedAt: base},
				{UUID: "l-again", Role: model.RoleUser, Content: "ok", CreatedAt: base.Add(10 * time.Second), Pending: true},
			},
			want: []string{"r-ok", "l-again"},
		},
		{
			name:   "outside window is not a twin",
			stored: []model.Message{stored("Hello", model.RoleUser, base)},
			local:  []model.Message{pending("Hello", base.Add(10*time.Minute))},
			want:   []string{"r-Hello", "l-Hello"},
		},
		{
			name:   "role must match",
			stored: []model.Message{stored("Hello", model.RoleAssistant, base)},
			local:  []model.Message{pending("Hello", base)},
			want:   []string{"r-Hello", "l-Hello"},
		},
		{
			name:   "each stored message matches once",
			stored: []model.Message{stored("ok", model.RoleUser, base)},
			local:  []model.Message{pending("ok", base), pending("ok", base)},
			want:   []string{"r-ok", "l-ok"},
		},
		{
			name:   "confirmed local messages are replaced",
			stored: nil,
			local:  []model.Message{{UUID: "l-done", Content: "done"}},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.stored, tt.local)
			ids := make([]string, len(got))
			for i, m := range got {
				ids[i] = m.UUID
			}
			if !equal(ids, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, ids)
			}
		})
	}
}
