// Package nats provides NATS JetStream connectivity: a key/value backend for the
// local session cache and a stream of session events.
package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/mutumwa-ai/chat-platform/pkg/logger"
)

const defaultConnectTimeout = 5 * time.Second

// Config holds NATS connection configuration.
type Config struct {
	URL string
	// Name identifies the connection in server monitoring.
	Name string

	// TLS is enabled when all three files are set.
	CAFile   string
	CertFile string
	KeyFile  string
	Token    string
}

// Client holds a NATS connection and its JetStream context.
type Client struct {
	conn *nats.Conn
	js   jetstream.JetStream
	log  *logger.Logger
}

// Connect dials the server. A deadline on ctx bounds the initial dial; after
// that the connection reconnects forever.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	c := &Client{log: log.With(zap.String("nats_url", cfg.URL))}

	nc, err := nats.Connect(cfg.URL, c.options(ctx, cfg)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	c.conn, c.js = nc, js
	return c, nil
}

func (c *Client) options(ctx context.Context, cfg Config) []nats.Option {
	timeout := defaultConnectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	opts := []nats.Option{
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.ReconnectBufSize(8 * 1024 * 1024),
		nats.DisconnectErrHandler(c.onDisconnect),
		nats.ReconnectHandler(c.onReconnect),
		nats.ErrorHandler(c.onError),
	}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}
	if cfg.CAFile != "" && cfg.CertFile != "" && cfg.KeyFile != "" {
		opts = append(opts,
			nats.RootCAs(cfg.CAFile),
			nats.ClientCert(cfg.CertFile, cfg.KeyFile),
		)
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}
	return opts
}

func (c *Client) onDisconnect(_ *nats.Conn, err error) {
	c.log.Warn("NATS disconnected", zap.Error(err))
}

func (c *Client) onReconnect(nc *nats.Conn) {
	c.log.Info("NATS reconnected", zap.String("server", nc.ConnectedUrl()))
}

func (c *Client) onError(_ *nats.Conn, sub *nats.Subscription, err error) {
	fields := []zap.Field{zap.Error(err)}
	if sub != nil {
		fields = append(fields, zap.String("subject", sub.Subject))
	}
	c.log.Error("NATS error", fields...)
}

// JetStream returns the JetStream context.
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// IsConnected reports whether the connection is currently up.
func (c *Client) IsConnected() bool {
	return c != nil && c.conn != nil && c.conn.IsConnected()
}

// Close closes the connection.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
