// Package model defines data structures for the chat platform.
package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// TitleMaxLength is the number of characters kept from the first user message.
const TitleMaxLength = 50

// MetadataName is the session metadata key carrying the display title.
const MetadataName = "name"

// Session is a conversation thread as recorded by the memory store.
type Session struct {
	UUID      string         `json:"uuid,omitempty"`
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt *time.Time     `json:"deleted_at,omitempty"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
}

// Title returns the display title stored under the metadata name key.
func (s *Session) Title() string {
	if s.Metadata == nil {
		return ""
	}
	name, _ := s.Metadata[MetadataName].(string)
	return name
}

// SessionList is the memory store response for listing sessions.
type SessionList struct {
	Sessions      []Session `json:"sessions"`
	TotalCount    int       `json:"total_count,omitempty"`
	ResponseCount int       `json:"response_count,omitempty"`
}

// CreateSessionRequest is the memory store request to create a session.
type CreateSessionRequest struct {
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// SessionSummary is the lightweight, possibly stale projection of a session
// kept in local storage for instant listing.
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastMessage  string    `json:"lastMessage"`
	Timestamp    time.Time `json:"timestamp"`
	MessageCount int       `json:"messageCount"`
}

// DeriveTitle builds a session title from the first user message: the trimmed
// text, cut to TitleMaxLength characters with "..." appended when cut.
func DeriveTitle(text string) string {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) <= TitleMaxLength {
		return trimmed
	}
	runes := []rune(trimmed)
	return string(runes[:TitleMaxLength]) + "..."
}
