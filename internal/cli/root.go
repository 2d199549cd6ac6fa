// Package cli implements the terminal chat client.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mutumwa-ai/chat-platform/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

// NewRootCmd builds the command tree. Flags override the environment.
func NewRootCmd() *cobra.Command {
	cfg := config.LoadClient()

	root := &cobra.Command{
		Use:   "mutumwa",
		Short: "Chat with Mutumwa from the terminal",
		Long: `A terminal client for the Mutumwa multilingual assistant.

Sessions are listed instantly from a local cache and kept in sync with the
memory store through the chat API server.

Quick Start:
  mutumwa chat                     # Resume the last conversation
  mutumwa chat --language swahili  # Answer in Swahili
  mutumwa sessions                 # List your sessions
  mutumwa export <session-id>      # Export a transcript as YAML`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.APIURL, "api", cfg.APIURL, "Chat API base URL")
	flags.StringVar(&cfg.ReplyURL, "reply-url", cfg.ReplyURL, "Reply webhook URL")
	flags.StringVar(&cfg.UserID, "user", cfg.UserID, "User identity sessions are recorded under")
	flags.StringVar(&cfg.CacheBackend, "backend", cfg.CacheBackend, "Local cache backend: sqlite, nats or memory")
	flags.StringVar(&cfg.CachePath, "cache-path", cfg.CachePath, "SQLite cache file")
	flags.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server for the nats backend")
	flags.StringVar(&cfg.TargetLanguage, "language", cfg.TargetLanguage, "Language the assistant answers in")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Write logs to this file")
	flags.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "Timeout for each server request")

	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(
		newChatCmd(cfg),
		newSessionsCmd(cfg),
		newShowCmd(cfg),
		newDeleteCmd(cfg),
		newExportCmd(cfg),
		newLanguagesCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withApp opens the client for the duration of fn.
func withApp(cmd *cobra.Command, cfg *config.ClientConfig, fn func(*App) error) error {
	app, err := openApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
