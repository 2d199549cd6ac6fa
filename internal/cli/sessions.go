package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mutumwa-ai/chat-platform/internal/config"
	"github.com/mutumwa-ai/chat-platform/internal/language"
)

func newSessionsCmd(cfg *config.ClientConfig) *cobra.Command {
	var cachedOnly bool

	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"list", "ls"},
		Short:   "List chat sessions",
		Long:    `List chat sessions from the server, falling back to the local cache when it is unreachable.`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, func(a *App) error {
				out := cmd.OutOrStdout()
				if cachedOnly {
					renderSessions(out, a.sync.Cached(), time.Now())
					return nil
				}
				renderListing(out, a.sync.LoadAllSessions(cmd.Context()), time.Now())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&cachedOnly, "cached", false, "Only show the local cache")
	return cmd
}

func newShowCmd(cfg *config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, func(a *App) error {
				msgs, err := a.sync.LoadSessionMessages(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to load session: %w", err)
				}
				renderTranscript(cmd.OutOrStdout(), msgs)
				return nil
			})
		},
	}
}

func newDeleteCmd(cfg *config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <session-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a session",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, func(a *App) error {
				if err := a.sync.DeleteSession(cmd.Context(), args[0]); err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), warnStyle.Render("Removed locally, the server could not be reached: "+err.Error()))
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages [code]",
		Short: "List target languages, or starter prompts for one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				lang := language.Resolve(args[0])
				fmt.Fprintln(out, headerStyle.Render(lang.Label))
				for _, s := range language.Suggestions(args[0]) {
					fmt.Fprintf(out, "  • %s\n", s)
				}
				return nil
			}
			for _, l := range language.All() {
				fmt.Fprintf(out, "%-12s %s\n", l.Value, l.Label)
			}
			return nil
		},
	}
}
