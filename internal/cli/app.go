package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mutumwa-ai/chat-platform/internal/chatsync"
	"github.com/mutumwa-ai/chat-platform/internal/config"
	"github.com/mutumwa-ai/chat-platform/internal/conversation"
	"github.com/mutumwa-ai/chat-platform/internal/kv"
	"github.com/mutumwa-ai/chat-platform/internal/localcache"
	"github.com/mutumwa-ai/chat-platform/internal/memstore"
	natsclient "github.com/mutumwa-ai/chat-platform/internal/nats"
	"github.com/mutumwa-ai/chat-platform/internal/reply"
	"github.com/mutumwa-ai/chat-platform/pkg/logger"
)

// App is one client: a local cache, the on-screen conversation and the
// synchronizer tying them to the proxy.
type App struct {
	cfg   *config.ClientConfig
	log   *logger.Logger
	cache *localcache.Cache
	state *conversation.Store
	sync  *chatsync.Synchronizer

	closers []io.Closer
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

// openApp wires the client from configuration.
func openApp(ctx context.Context, cfg *config.ClientConfig) (*App, error) {
	log, err := logger.NewFile(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &App{cfg: cfg, log: log}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	remote := memstore.New(memstore.Config{
		BaseURL:  cfg.APIURL,
		UserID:   cfg.UserID,
		Timeout:  cfg.RequestTimeout,
		SkipAuth: true,
	})

	a.cache = localcache.New(store, log)
	a.state = conversation.New()
	a.sync = chatsync.New(remote, a.cache, a.state,
		reply.NewWebhookGenerator(cfg.ReplyURL, cfg.RequestTimeout), log)
	return a, nil
}

// openStore opens the configured local cache backend.
func (a *App) openStore(ctx context.Context) (kv.Store, error) {
	switch a.cfg.CacheBackend {
	case "memory":
		return kv.NewMemory(), nil

	case "nats":
		client, err := natsclient.Connect(ctx, natsclient.Config{
			URL:  a.cfg.NATSURL,
			Name: "mutumwa-chat",
		}, a.log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		a.closers = append(a.closers, closeFunc(func() error { client.Close(); return nil }))

		store, err := natsclient.OpenKV(ctx, client, a.cfg.NATSBucket)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache bucket: %w", err)
		}
		return store, nil

	case "sqlite", "":
		if dir := filepath.Dir(a.cfg.CachePath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create cache directory: %w", err)
			}
		}
		store, err := kv.OpenSQLite(a.cfg.CachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		a.closers = append(a.closers, store)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q", a.cfg.CacheBackend)
	}
}

// Close waits for queued writes and releases the cache backend.
func (a *App) Close() error {
	if a.sync != nil {
		timeout := a.cfg.RequestTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := a.sync.Flush(ctx); err != nil {
			a.log.Warn("pending writes abandoned on exit")
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
	a.log.Sync()
	return nil
}
