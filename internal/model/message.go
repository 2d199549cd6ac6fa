package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is one turn in a conversation.
type Message struct {
	UUID       string         `json:"uuid"`
	Role       Role           `json:"role"`
	RoleType   Role           `json:"role_type,omitempty"`
	Content    string         `json:"content"`
	CreatedAt  time.Time      `json:"created_at"`
	TokenCount int            `json:"token_count,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`

	// Pending marks an optimistic local message not yet confirmed by the memory store.
	Pending bool `json:"-" yaml:"-"`
}

// Speaker returns the normalized role of the message. The memory store keeps
// the enum in role_type and lets role carry a free-form name.
func (m *Message) Speaker() Role {
	if m.RoleType.Valid() {
		return m.RoleType
	}
	return m.Role
}

// MessageList is the memory store response for listing messages.
type MessageList struct {
	Messages   []Message `json:"messages"`
	TotalCount int       `json:"total_count"`
	RowCount   int       `json:"row_count"`
}

// EmptyMessageList returns the response used for absent sessions.
func EmptyMessageList() *MessageList {
	return &MessageList{Messages: []Message{}}
}

// MessageInput is one role/content pair to append.
type MessageInput struct {
	Role     Role   `json:"role"`
	RoleType Role   `json:"role_type,omitempty"`
	Content  string `json:"content"`
}

// AppendMessagesRequest is the memory store request to append messages.
type AppendMessagesRequest struct {
	Messages []MessageInput `json:"messages"`
}

// AppendMessagesResponse is the memory store response after appending.
type AppendMessagesResponse struct {
	Messages []Message `json:"messages"`
}

// ReplyRequest is the form posted to the reply webhook.
type ReplyRequest struct {
	Text           string
	TargetLanguage string
	SessionID      string
}

// ReplyResponse is the reply webhook response.
type ReplyResponse struct {
	Output string `json:"output"`
}
