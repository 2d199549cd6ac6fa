// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mutumwa-ai/chat-platform/internal/config"
	"github.com/mutumwa-ai/chat-platform/internal/handler"
	"github.com/mutumwa-ai/chat-platform/internal/llm"
	"github.com/mutumwa-ai/chat-platform/internal/memstore"
	natsclient "github.com/mutumwa-ai/chat-platform/internal/nats"
	"github.com/mutumwa-ai/chat-platform/internal/reply"
	"github.com/mutumwa-ai/chat-platform/pkg/logger"
	"github.com/mutumwa-ai/chat-platform/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "mutumwa-chat-api", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	store := memstore.New(memstore.Config{
		BaseURL: cfg.MemoryStoreURL,
		APIKey:  cfg.MemoryStoreAPIKey,
		UserID:  cfg.UserID,
		Timeout: cfg.MemoryStoreTimeout,
	})
	if !store.Configured() {
		log.Warn("ZEP_API_KEY is not set, session endpoints will answer 500")
	}

	deps := handler.Deps{
		Store:             store,
		Replies:           newReplyGenerator(cfg, log),
		Logger:            log,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	}

	// The event stream is optional.
	if cfg.NATSURL != "" {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
			Name:     "mutumwa-chat-api",
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()

		streamManager := natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure stream", zap.Error(err))
			os.Exit(1)
		}

		deps.Events = streamManager
		deps.EventSource = streamManager
		deps.NATS = natsClient
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler.NewRouter(deps),
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// newReplyGenerator prefers the configured webhook and falls back to an LLM.
// It returns nil when neither is available.
func newReplyGenerator(cfg *config.Config, log *logger.Logger) reply.Generator {
	var chain reply.Chain

	if cfg.WebhookURL != "" {
		chain = append(chain, reply.NewWebhookGenerator(cfg.WebhookURL, cfg.ReplyTimeout))
	}

	providers := []struct {
		provider llm.Provider
		key      string
	}{
		{llm.ProviderAnthropic, cfg.AnthropicAPIKey},
		{llm.ProviderOpenAI, cfg.OpenAIAPIKey},
	}
	if llm.Provider(cfg.DefaultLLM) == llm.ProviderOpenAI {
		providers[0], providers[1] = providers[1], providers[0]
	}

	for _, p := range providers {
		if p.key == "" {
			continue
		}
		client, err := llm.NewClient(p.provider, p.key)
		if err != nil {
			log.Warn("failed to create LLM client", zap.String("provider", string(p.provider)), zap.Error(err))
			continue
		}
		// The model name only applies to the preferred provider.
		model := ""
		if string(p.provider) == cfg.DefaultLLM {
			model = cfg.LLMModel
		}
		chain = append(chain, reply.NewLLMGenerator(client, model))
	}

	if len(chain) == 0 {
		log.Warn("no reply webhook or LLM key configured, /api/reply is disabled")
		return nil
	}
	log.Info("reply generator ready", zap.String("generator", chain.Name()))
	return chain
}
