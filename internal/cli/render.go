package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/mutumwa-ai/chat-platform/internal/chatsync"
	"github.com/mutumwa-ai/chat-platform/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

// renderSessions writes the session sidebar as a table.
func renderSessions(w io.Writer, sessions []model.SessionSummary, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, headerStyle.Render("No sessions yet"))
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d session(s)", len(sessions))))
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Last message")+"\t"+titleStyle.Render("Updated"))

	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "New Chat"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			idStyle.Render(s.ID),
			title,
			countStyle.Render(fmt.Sprint(s.MessageCount)),
			truncate(s.LastMessage, 40),
			dateStyle.Render(relativeTime(s.Timestamp, now)),
		)
	}
	tw.Flush()
}

// renderListing writes a listing and notes when it came from the cache.
func renderListing(w io.Writer, listing chatsync.SessionListing, now time.Time) {
	if listing.Err != nil {
		fmt.Fprintln(w, warnStyle.Render("Showing cached sessions, the server is unreachable."))
	}
	renderSessions(w, listing.Sessions, now)
}

// renderMessage writes one transcript line.
func renderMessage(w io.Writer, m model.Message) {
	var speaker string
	switch m.Speaker() {
	case model.RoleUser:
		speaker = userStyle.Render("You")
	case model.RoleAssistant:
		speaker = assistantStyle.Render("Mutumwa")
	default:
		speaker = dateStyle.Render(string(m.Speaker()))
	}

	line := fmt.Sprintf("%s: %s", speaker, m.Content)
	if m.Pending {
		line += " " + pendingStyle.Render("(not saved yet)")
	}
	fmt.Fprintln(w, line)
}

func renderTranscript(w io.Writer, msgs []model.Message) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, dateStyle.Render("No messages yet. Say hello!"))
		return
	}
	for _, m := range msgs {
		renderMessage(w, m)
	}
}

// relativeTime formats t the way the session sidebar does.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 02")
	}
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
