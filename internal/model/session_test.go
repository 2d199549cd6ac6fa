package model

import (
	"strings"
	"testing"
)

func TestDeriveTitle(t *testing.T) {
	exact := strings.Repeat("a", TitleMaxLength)
	long := strings.Repeat("b", TitleMaxLength+1)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "Hello", "Hello"},
		{"exactly fifty", exact, exact},
		{"fifty one", long, strings.Repeat("b", TitleMaxLength) + "..."},
		{"trims whitespace", "   Hello there  ", "Hello there"},
		{"trim before measuring", "  " + exact + "  ", exact},
		{"multibyte counted as characters", strings.Repeat("ሰ", TitleMaxLength), strings.Repeat("ሰ", TitleMaxLength)},
		{"multibyte truncated", strings.Repeat("ሰ", TitleMaxLength+3), strings.Repeat("ሰ", TitleMaxLength) + "..."},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.in); got != tt.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSessionTitle(t *testing.T) {
	s := Session{SessionID: "s1"}
	if s.Title() != "" {
		t.Errorf("expected empty title without metadata, got %q", s.Title())
	}

	s.Metadata = map[string]any{MetadataName: "Hello"}
	if s.Title() != "Hello" {
		t.Errorf("expected Hello, got %q", s.Title())
	}

	s.Metadata = map[string]any{MetadataName: 42}
	if s.Title() != "" {
		t.Errorf("expected empty title for non-string name, got %q", s.Title())
	}
}

func TestMessageSpeaker(t *testing.T) {
	m := Message{Role: "Mutumwa", RoleType: RoleAssistant}
	if m.Speaker() != RoleAssistant {
		t.Errorf("expected assistant, got %q", m.Speaker())
	}

	m = Message{Role: RoleUser}
	if m.Speaker() != RoleUser {
		t.Errorf("expected user, got %q", m.Speaker())
	}
}
