package middleware

import (
	"errors"
	"regexp"
	"unicode/utf8"

	"github.com/mutumwa-ai/chat-platform/internal/model"
)

const (
	maxSessionIDLength = 128
	maxContentLength   = 100000
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateSessionID validates a client-generated session ID.
func ValidateSessionID(id string) error {
	if len(id) == 0 {
		return errors.New("session ID cannot be empty")
	}
	if len(id) > maxSessionIDLength {
		return errors.New("session ID exceeds maximum length")
	}
	if !sessionIDPattern.MatchString(id) {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > maxContentLength {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateRole validates a message role.
func ValidateRole(role model.Role) error {
	if !role.Valid() {
		return errors.New("role must be one of user, assistant or system")
	}
	return nil
}

// ValidateTitle validates a session title.
func ValidateTitle(title string) error {
	if len(title) > 256 {
		return errors.New("title exceeds maximum length")
	}
	if !utf8.ValidString(title) {
		return errors.New("title must be valid UTF-8")
	}
	return nil
}
