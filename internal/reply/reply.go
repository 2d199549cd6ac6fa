// Package reply produces assistant replies for a user message, either by
// calling an external webhook or by asking an LLM directly.
package reply

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mutumwa-ai/chat-platform/internal/language"
	"github.com/mutumwa-ai/chat-platform/internal/llm"
	"github.com/mutumwa-ai/chat-platform/internal/model"
	"github.com/mutumwa-ai/chat-platform/pkg/metrics"
)

// ErrEmptyReply is returned when a generator produces no text.
var ErrEmptyReply = errors.New("reply: empty output")

// Generator produces the assistant reply for one user message.
type Generator interface {
	Generate(ctx context.Context, req model.ReplyRequest) (string, error)
	Name() string
}

// WebhookGenerator posts the message as a form to a webhook that answers with
// {"output": "..."}.
type WebhookGenerator struct {
	url  string
	http *http.Client
}

// NewWebhookGenerator creates a webhook generator. A zero timeout means 60s.
func NewWebhookGenerator(webhookURL string, timeout time.Duration) *WebhookGenerator {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &WebhookGenerator{
		url:  webhookURL,
		http: &http.Client{Timeout: timeout},
	}
}

// Name returns the generator name.
func (g *WebhookGenerator) Name() string {
	return "webhook"
}

// Generate posts text, targetLanguage and sessionId to the webhook.
func (g *WebhookGenerator) Generate(ctx context.Context, req model.ReplyRequest) (out string, err error) {
	start := time.Now()
	defer func() { record(g.Name(), err, start) }()

	form := url.Values{}
	form.Set("text", req.Text)
	form.Set("targetLanguage", req.TargetLanguage)
	form.Set("sessionId", req.SessionID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("reply webhook: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("reply webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("reply webhook: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded model.ReplyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return "", fmt.Errorf("reply webhook: invalid response: %w", err)
	}
	if strings.TrimSpace(decoded.Output) == "" {
		return "", ErrEmptyReply
	}
	return decoded.Output, nil
}

// LLMGenerator asks an LLM to answer in the requested language.
type LLMGenerator struct {
	client llm.Client
	model  string
}

// NewLLMGenerator wraps an LLM client. An empty model uses the provider default.
func NewLLMGenerator(client llm.Client, model string) *LLMGenerator {
	return &LLMGenerator{client: client, model: model}
}

// Name returns the generator name.
func (g *LLMGenerator) Name() string {
	return "llm_" + g.client.Name()
}

// Generate completes a single-turn conversation.
func (g *LLMGenerator) Generate(ctx context.Context, req model.ReplyRequest) (out string, err error) {
	start := time.Now()
	defer func() { record(g.Name(), err, start) }()

	resp, err := g.client.Complete(ctx, &llm.CompletionRequest{
		Model:  g.model,
		System: SystemPrompt(req.TargetLanguage),
		Messages: []llm.ChatMessage{
			{Role: string(model.RoleUser), Content: req.Text},
		},
	})
	if err != nil {
		return "", err
	}
	metrics.RecordLLMTokens(resp.Model, resp.TokensIn, resp.TokensOut)

	if strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyReply
	}
	return resp.Content, nil
}

// SystemPrompt instructs the assistant to answer in the target language.
func SystemPrompt(targetLanguage string) string {
	lang := language.Resolve(targetLanguage)
	return fmt.Sprintf("You are Mutumwa, a friendly multilingual assistant. "+
		"Reply in %s, keep answers concise and culturally aware. "+
		"If the user writes in another language, still answer in %s.", lang.Label, lang.Label)
}

func record(generator string, err error, start time.Time) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordReply(generator, status, time.Since(start).Seconds())
}

// Chain tries generators in order and returns the first reply.
type Chain []Generator

// Name returns the generator names joined by "+".
func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, g := range c {
		names[i] = g.Name()
	}
	return strings.Join(names, "+")
}

// Generate returns the first successful reply, or all errors joined.
func (c Chain) Generate(ctx context.Context, req model.ReplyRequest) (string, error) {
	if len(c) == 0 {
		return "", errors.New("reply: no generator configured")
	}

	var errs []error
	for _, g := range c {
		out, err := g.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", g.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", errors.Join(errs...)
}
