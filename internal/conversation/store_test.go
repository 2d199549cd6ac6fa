package conversation

import (
	"testing"
	"time"

	"github.com/mutumwa-ai/chat-platform/internal/model"
)

func TestAppendKeepsOrder(t *testing.T) {
	s := New()
	s.SetActiveSession("s1")

	for _, text := range []string{"one", "two", "three"} {
		s.AppendMessage(model.Message{Content: text})
	}

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"one", "two", "three"} {
		if msgs[i].Content != want {
			t.Errorf("message %d: expected %q, got %q", i, want, msgs[i].Content)
		}
	}
}

func TestSetActiveSessionResets(t *testing.T) {
	s := New()
	s.SetActiveSession("s1")
	s.AppendMessage(model.Message{Content: "hi"})

	s.SetActiveSession("s1")
	if len(s.Messages()) != 1 {
		t.Error("re-activating the same session must keep the transcript")
	}

	s.SetActiveSession("s2")
	if len(s.Messages()) != 0 {
		t.Error("switching sessions must clear the transcript")
	}
	if s.ActiveSession() != "s2" {
		t.Errorf("expected s2 active, got %q", s.ActiveSession())
	}
}

func TestAppendTo(t *testing.T) {
	s := New()
	s.SetActiveSession("s1")

	if !s.AppendTo("s1", model.Message{Content: "kept"}) {
		t.Error("expected append to active session")
	}
	if s.AppendTo("s2", model.Message{Content: "dropped"}) {
		t.Error("expected append to inactive session to be refused")
	}
	if len(s.Messages()) != 1 {
		t.Errorf("expected 1 message, got %d", len(s.Messages()))
	}
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := New()
	s.AppendMessage(model.Message{Content: "original"})

	msgs := s.Messages()
	msgs[0].Content = "changed"

	if s.Messages()[0].Content != "original" {
		t.Error("Messages must return a copy")
	}
}

func TestMarkConfirmed(t *testing.T) {
	s := New()
	s.AppendMessage(model.Message{UUID: "local-1", Pending: true})

	s.MarkConfirmed("local-1")
	if s.Messages()[0].Pending {
		t.Error("expected message to be confirmed")
	}
}

func TestLoading(t *testing.T) {
	s := New()
	if s.IsLoading() {
		t.Error("expected not loading initially")
	}
	s.SetLoading(true)
	if !s.IsLoading() {
		t.Error("expected loading")
	}
}

func TestReplaceOnlyActiveSession(t *testing.T) {
	s := New()
	s.SetActiveSession("s1")
	s.AppendMessage(model.Message{UUID: "m1", Content: "one"})

	if s.Replace("s2", func(cur []model.Message) []model.Message { return nil }) {
		t.Error("expected Replace of inactive session to be refused")
	}
	if len(s.Messages()) != 1 {
		t.Fatalf("expected transcript untouched, got %v", s.Messages())
	}

	ok := s.Replace("s1", func(cur []model.Message) []model.Message {
		if len(cur) != 1 || cur[0].UUID != "m1" {
			t.Errorf("unexpected current transcript %v", cur)
		}
		return append(cur, model.Message{UUID: "m2", Content: "two"})
	})
	if !ok {
		t.Fatal("expected Replace of active session")
	}
	if msgs := s.Messages(); len(msgs) != 2 || msgs[1].UUID != "m2" {
		t.Errorf("unexpected transcript %v", msgs)
	}
}

func TestReplaceKeepsConcurrentConfirmation(t *testing.T) {
	s := New()
	s.SetActiveSession("s1")
	s.AppendMessage(model.Message{UUID: "m1", Content: "one", Pending: true})

	confirmed := make(chan struct{})
	s.Replace("s1", func(cur []model.Message) []model.Message {
		go func() {
			s.MarkConfirmed("m1")
			close(confirmed)
		}()
		select {
		case <-confirmed:
			t.Error("confirmation landed while the transcript was being replaced")
		case <-time.After(20 * time.Millisecond):
		}
		return cur
	})
	<-confirmed

	if msgs := s.Messages(); len(msgs) != 1 || msgs[0].Pending {
		t.Errorf("expected confirmed message, got %+v", msgs)
	}
}

func TestSetMessagesCopies(t *testing.T) {
	s := New()
	msgs := []model.Message{{UUID: "m1", Content: "one"}}
	s.SetMessages(msgs)

	msgs[0].Content = "changed"
	if got := s.Messages(); len(got) != 1 || got[0].Content != "one" {
		t.Errorf("expected stored copy, got %+v", got)
	}
}
