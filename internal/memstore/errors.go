package memstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when no API key is available. No request is sent.
	ErrNotConfigured = errors.New("memory store is not configured")
	// ErrNotFound is returned when the session does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTransport wraps network-level failures.
	ErrTransport = errors.New("memory store unreachable")
	// ErrRemoteRejected is returned for non-2xx responses.
	ErrRemoteRejected = errors.New("memory store rejected request")
)

// RemoteError carries the status and body of a rejected request.
type RemoteError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: memory store returned %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("%s: memory store returned %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Is lets errors.Is match ErrRemoteRejected.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteRejected
}

// StatusCode extracts the HTTP status of a rejected request, or 0.
func StatusCode(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
