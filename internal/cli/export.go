package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mutumwa-ai/chat-platform/internal/config"
	"github.com/mutumwa-ai/chat-platform/internal/model"
)

// transcript is the exported form of a session.
type transcript struct {
	SessionID  string              `json:"session_id" yaml:"session_id"`
	Title      string              `json:"title,omitempty" yaml:"title,omitempty"`
	ExportedAt time.Time           `json:"exported_at" yaml:"exported_at"`
	Messages   []transcriptMessage `json:"messages" yaml:"messages"`
}

type transcriptMessage struct {
	Role      model.Role `json:"role" yaml:"role"`
	Content   string     `json:"content" yaml:"content"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
}

func newTranscript(sessionID, title string, msgs []model.Message, now time.Time) transcript {
	t := transcript{
		SessionID:  sessionID,
		Title:      title,
		ExportedAt: now,
		Messages:   make([]transcriptMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		t.Messages = append(t.Messages, transcriptMessage{
			Role:      m.Speaker(),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return t
}

// writeTranscript encodes t as yaml or json.
func writeTranscript(w io.Writer, t transcript, format string) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		defer func() { _ = enc.Close() }()
		return enc.Encode(t)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	default:
		return fmt.Errorf("unsupported format %q (use yaml or json)", format)
	}
}

func newExportCmd(cfg *config.ClientConfig) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, func(a *App) error {
				id := args[0]
				msgs, err := a.sync.LoadSessionMessages(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("failed to load session: %w", err)
				}

				var title string
				if s, ok := a.cache.Get(id); ok {
					title = s.Title
				}
				t := newTranscript(id, title, msgs, time.Now())

				w := cmd.OutOrStdout()
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", output, err)
					}
					defer f.Close()
					w = f
				}
				return writeTranscript(w, t, format)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}
