package chatsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mutumwa-ai/chat-platform/internal/memstore"
	"github.com/mutumwa-ai/chat-platform/internal/model"
)

// fakeRemote is an in-memory memory store.
type fakeRemote struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	order    []string
	messages map[string][]model.Message

	creates    int
	appends    int
	deletes    int
	down       bool
	failList   bool
	failAppend bool
	failDelete bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		sessions: make(map[string]*model.Session),
		messages: make(map[string][]model.Message),
	}
}

func (f *fakeRemote) unreachable(op string) error {
	return fmt.Errorf("%s: %w: connection refused", op, memstore.ErrTransport)
}

func (f *fakeRemote) ListSessions(_ context.Context, _ string) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.down || f.failList {
		return []model.Session{}, f.unreachable("list_sessions")
	}
	out := make([]model.Session, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.sessions[id])
	}
	return out, nil
}

func (f *fakeRemote) GetSession(_ context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.down {
		return nil, f.unreachable("get_session")
	}
	sess, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("get_session: %w", memstore.ErrNotFound)
	}
	cp := *sess
	return &cp, nil
}

func (f *fakeRemote) CreateSession(_ context.Context, id, titleSeed string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.down {
		return nil, f.unreachable("create_session")
	}
	if _, ok := f.sessions[id]; ok {
		return nil, &memstore.RemoteError{Operation: "create_session", StatusCode: 409}
	}
	f.creates++
	now := time.Now()
	sess := &model.Session{
		UUID:      fmt.Sprintf("uuid-%d", f.creates),
		SessionID: id,
		UserID:    "user-1",
		Metadata:  map[string]any{model.MetadataName: model.DeriveTitle(titleSeed)},
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.sessions[id] = sess
	f.order = append(f.order, id)
	return sess, nil
}

func (f *fakeRemote) ListMessages(_ context.Context, id string) (*model.MessageList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.down {
		return model.EmptyMessageList(), f.unreachable("list_messages")
	}
	msgs := f.messages[id]
	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	return &model.MessageList{Messages: out, TotalCount: len(out), RowCount: len(out)}, nil
}

func (f *fakeRemote) AppendMessages(_ context.Context, id string, in []model.MessageInput) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.down || f.failAppend {
		return nil, f.unreachable("append_messages")
	}
	if _, ok := f.sessions[id]; !ok {
		return nil, &memstore.RemoteError{Operation: "append_messages", StatusCode: 404}
	}
	var out []model.Message
	for _, m := range in {
		f.appends++
		msg := model.Message{
			UUID:      fmt.Sprintf("m-%d", f.appends),
			Role:      m.Role,
			RoleType:  m.RoleType,
			Content:   m.Content,
			CreatedAt: time.Now(),
		}
		f.messages[id] = append(f.messages[id], msg)
		out = append(out, msg)
	}
	return out, nil
}

func (f *fakeRemote) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deletes++
	if f.down || f.failDelete {
		return f.unreachable("delete_session")
	}
	if _, ok := f.sessions[id]; !ok {
		return fmt.Errorf("delete_session: %w", memstore.ErrNotFound)
	}
	delete(f.sessions, id)
	delete(f.messages, id)
	for i, sid := range f.order {
		if sid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeRemote) stored(id string) []model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Message, len(f.messages[id]))
	copy(out, f.messages[id])
	return out
}

func (f *fakeRemote) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

// fakeReplies answers with a fixed reply or error.
type fakeReplies struct {
	out string
	err error
	got model.ReplyRequest
}

func (f *fakeReplies) Name() string { return "fake" }

func (f *fakeReplies) Generate(_ context.Context, req model.ReplyRequest) (string, error) {
	f.got = req
	return f.out, f.err
}
