// Package memstore is the HTTP client for the remote conversational memory store.
package memstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mutumwa-ai/chat-platform/internal/model"
	"github.com/mutumwa-ai/chat-platform/pkg/metrics"
)

// DefaultBaseURL is the hosted memory store API.
const DefaultBaseURL = "https://api.getzep.com/api/v2"

const maxErrorBody = 4096

var tracer = otel.Tracer("github.com/mutumwa-ai/chat-platform/internal/memstore")

// Config holds memory store client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	// UserID is the identity sessions are created and listed under.
	UserID  string
	Timeout time.Duration
	// SkipAuth targets a proxy that injects the API key itself.
	SkipAuth bool
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Client issues authenticated calls against the memory store API.
type Client struct {
	baseURL  string
	apiKey   string
	userID   string
	skipAuth bool
	http     *http.Client
}

// New creates a new memory store client.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   cfg.APIKey,
		userID:   cfg.UserID,
		skipAuth: cfg.SkipAuth,
		http:     httpClient,
	}
}

// Configured reports whether calls can be attempted.
func (c *Client) Configured() bool {
	return c.skipAuth || c.apiKey != ""
}

// UserID returns the configured user identity.
func (c *Client) UserID() string {
	return c.userID
}

// ListSessions lists the sessions of a user. It fails open: the returned slice
// is never nil and is empty on failure, with err telling why.
func (c *Client) ListSessions(ctx context.Context, userID string) ([]model.Session, error) {
	if userID == "" {
		userID = c.userID
	}

	path := "/sessions"
	if userID != "" {
		path += "?user_id=" + url.QueryEscape(userID)
	}

	var resp model.SessionList
	if err := c.do(ctx, "list_sessions", http.MethodGet, path, "", nil, &resp); err != nil {
		return []model.Session{}, err
	}
	if resp.Sessions == nil {
		return []model.Session{}, nil
	}
	return resp.Sessions, nil
}

// GetSession fetches one session. A missing session yields ErrNotFound.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	var sess model.Session
	if err := c.do(ctx, "get_session", http.MethodGet, sessionPath(sessionID), sessionID, nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// CreateSession creates a session titled from titleSeed.
func (c *Client) CreateSession(ctx context.Context, sessionID, titleSeed string) (*model.Session, error) {
	req := model.CreateSessionRequest{
		SessionID: sessionID,
		UserID:    c.userID,
		Metadata: map[string]any{
			model.MetadataName: model.DeriveTitle(titleSeed),
		},
	}
	return c.CreateSessionWith(ctx, &req)
}

// CreateSessionWith creates a session from a prepared request.
func (c *Client) CreateSessionWith(ctx context.Context, req *model.CreateSessionRequest) (*model.Session, error) {
	if req.UserID == "" {
		req.UserID = c.userID
	}

	var sess model.Session
	if err := c.do(ctx, "create_session", http.MethodPost, "/sessions", req.SessionID, req, &sess); err != nil {
		return nil, err
	}
	if sess.SessionID == "" {
		sess.SessionID = req.SessionID
	}
	return &sess, nil
}

// ListMessages lists the messages of a session. A missing session yields an
// empty list, not an error.
func (c *Client) ListMessages(ctx context.Context, sessionID string) (*model.MessageList, error) {
	var resp model.MessageList
	err := c.do(ctx, "list_messages", http.MethodGet, sessionPath(sessionID)+"/messages", sessionID, nil, &resp)
	if errors.Is(err, ErrNotFound) {
		return model.EmptyMessageList(), nil
	}
	if err != nil {
		return model.EmptyMessageList(), err
	}
	if resp.Messages == nil {
		resp.Messages = []model.Message{}
	}
	return &resp, nil
}

// AppendMessages appends role/content pairs. The store assigns identity and timestamps.
func (c *Client) AppendMessages(ctx context.Context, sessionID string, msgs []model.MessageInput) ([]model.Message, error) {
	in := make([]model.MessageInput, len(msgs))
	for i, m := range msgs {
		in[i] = m
		if in[i].RoleType == "" {
			in[i].RoleType = m.Role
		}
	}

	var raw json.RawMessage
	err := c.do(ctx, "append_messages", http.MethodPost, sessionPath(sessionID)+"/messages", sessionID,
		&model.AppendMessagesRequest{Messages: in}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeAppended(raw)
}

// DeleteSession deletes a session.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, "delete_session", http.MethodDelete, sessionPath(sessionID), sessionID, nil, nil)
}

// decodeAppended accepts either a bare array or a {"messages": [...]} object.
func decodeAppended(raw json.RawMessage) ([]model.Message, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var msgs []model.Message
		if err := json.Unmarshal(trimmed, &msgs); err != nil {
			return nil, fmt.Errorf("append_messages: %w: invalid response body: %w", ErrRemoteRejected, err)
		}
		return msgs, nil
	}

	var resp model.AppendMessagesResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("append_messages: %w: invalid response body: %w", ErrRemoteRejected, err)
	}
	return resp.Messages, nil
}

func sessionPath(sessionID string) string {
	return "/sessions/" + url.PathEscape(sessionID)
}

func (c *Client) do(ctx context.Context, op, method, path, sessionID string, body, out any) (err error) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		metrics.RecordMemoryStore(op, outcome, time.Since(start).Seconds())
	}()

	if !c.Configured() {
		outcome = "not_configured"
		return fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	ctx, span := tracer.Start(ctx, "memstore."+op)
	defer func() {
		if err != nil && !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("session.id", sessionID),
	)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			outcome = "encode"
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		outcome = "encode"
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Api-Key "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		outcome = "transport"
		return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusNotFound {
		outcome = "not_found"
		return fmt.Errorf("%s: session %q: %w", op, sessionID, ErrNotFound)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "rejected"
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &RemoteError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome = "transport"
		return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		outcome = "decode"
		return fmt.Errorf("%s: %w: invalid response body: %w", op, ErrRemoteRejected, err)
	}
	return nil
}
