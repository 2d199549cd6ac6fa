package model

import (
	"time"
)

// EventType represents the type of session event.
type EventType string

const (
	EventSessionCreated   EventType = "session_created"
	EventSessionDeleted   EventType = "session_deleted"
	EventMessagesAppended EventType = "messages_appended"
)

// SessionEvent records a successful write forwarded to the memory store.
type SessionEvent struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	Type         EventType `json:"type"`
	MessageCount int       `json:"message_count,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
