package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mutumwa-ai/chat-platform/internal/config"
	"github.com/mutumwa-ai/chat-platform/internal/language"
)

const chatHelp = `Commands:
  /new              start a new chat
  /sessions         list sessions
  /open <id>        switch to a session
  /delete [id]      delete a session, the current one by default
  /lang <code>      change the reply language
  /suggest          show starter prompts
  /help             show this help
  /quit             exit`

func newChatCmd(cfg *config.ClientConfig) *cobra.Command {
	var fresh bool

	cmd := &cobra.Command{
		Use:   "chat [session-id]",
		Short: "Start an interactive chat",
		Long:  `Start an interactive chat. Without arguments the last conversation is resumed.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, cfg, func(a *App) error {
				r := &repl{
					app:      a,
					in:       cmd.InOrStdin(),
					out:      cmd.OutOrStdout(),
					language: cfg.TargetLanguage,
				}

				ctx := cmd.Context()
				switch {
				case len(args) == 1:
					r.open(ctx, args[0])
				case fresh:
					a.sync.NewSession()
				default:
					r.open(ctx, a.sync.Resume())
				}
				return r.run(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&fresh, "new", false, "Start a new chat instead of resuming")
	return cmd
}

// repl reads lines and turns them into messages or commands.
type repl struct {
	app      *App
	in       io.Reader
	out      io.Writer
	language string
}

func (r *repl) run(ctx context.Context) error {
	lang := language.Resolve(r.language)
	fmt.Fprintln(r.out, headerStyle.Render("Mutumwa · "+lang.Label))
	fmt.Fprintln(r.out, dateStyle.Render("Type /help for commands."))

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(r.out, userStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := r.command(ctx, line); quit {
				return nil
			}
			continue
		}

		r.send(ctx, line)
	}
}

func (r *repl) send(ctx context.Context, text string) {
	id := r.app.sync.ActiveSession()

	// Failures are logged by the synchronizer and answered with the apology.
	msg, _ := r.app.sync.Converse(ctx, id, text, r.language)
	renderMessage(r.out, msg)
}

// command runs a slash command and reports whether to quit.
func (r *repl) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Fprintln(r.out, chatHelp)

	case "/new":
		id := r.app.sync.NewSession()
		fmt.Fprintln(r.out, dateStyle.Render("New chat "+id))

	case "/sessions":
		renderSessions(r.out, r.app.sync.Cached(), time.Now())
		listing := r.app.sync.LoadAllSessions(ctx)
		if listing.Err != nil {
			fmt.Fprintln(r.out, warnStyle.Render("The server is unreachable, the list above may be stale."))
		} else {
			fmt.Fprintln(r.out)
			renderSessions(r.out, listing.Sessions, time.Now())
		}

	case "/open":
		if arg == "" {
			fmt.Fprintln(r.out, warnStyle.Render("usage: /open <session-id>"))
			break
		}
		r.open(ctx, arg)

	case "/delete":
		id := arg
		if id == "" {
			id = r.app.sync.ActiveSession()
		}
		if err := r.app.sync.DeleteSession(ctx, id); err != nil {
			fmt.Fprintln(r.out, warnStyle.Render("Removed locally, the server could not be reached."))
		} else {
			fmt.Fprintln(r.out, dateStyle.Render("Deleted "+id))
		}

	case "/lang":
		if _, ok := language.Lookup(arg); !ok {
			fmt.Fprintln(r.out, warnStyle.Render("Unknown language. Run `mutumwa languages` for the list."))
			break
		}
		r.language = arg
		fmt.Fprintln(r.out, dateStyle.Render("Replies now in "+language.Resolve(arg).Label))

	case "/suggest":
		for _, s := range language.Suggestions(r.language) {
			fmt.Fprintf(r.out, "  • %s\n", s)
		}

	default:
		fmt.Fprintln(r.out, warnStyle.Render("Unknown command "+fields[0]+". Type /help."))
	}
	return false
}

// open switches to a session and prints its transcript.
func (r *repl) open(ctx context.Context, id string) {
	msgs, err := r.app.sync.LoadSessionMessages(ctx, id)
	if err != nil {
		fmt.Fprintln(r.out, warnStyle.Render("Could not load messages from the server."))
	}
	renderTranscript(r.out, msgs)
}
