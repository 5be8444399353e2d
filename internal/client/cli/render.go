package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/common"
)

var (
	ColorPrimary   = lipgloss.Color("#FF79C6")
	ColorSecondary = lipgloss.Color("#8BE9FD")
	ColorSuccess   = lipgloss.Color("#50FA7B")
	ColorError     = lipgloss.Color("#FF5555")
	ColorMuted     = lipgloss.Color("#6272A4")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	// Role styles for message headers.
	UserStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	AssistantStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	SystemStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Italic(true)

	ErrorNoteStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorError).
			PaddingLeft(1)
)

const timeLayout = "2006-01-02 15:04"

func roleLabel(role string) string {
	switch role {
	case common.RoleUser:
		return UserStyle.Render("You")
	case common.RoleAssistant:
		return AssistantStyle.Render("Assistant")
	default:
		return SystemStyle.Render("System")
	}
}

// renderMessage formats one message. Error notes and failed sends are
// drawn in the error style.
func renderMessage(m models.Message) string {
	if m.IsAnnotation() && m.Role == common.RoleSystem {
		return ErrorNoteStyle.Render(m.Content)
	}

	header := roleLabel(m.Role)
	switch {
	case m.Pending:
		header += " " + MutedStyle.Render("(sending...)")
	case m.Error != "":
		header += " " + ErrorStyle.Render("(not sent)")
	case !m.CreatedAt.IsZero():
		header += " " + MutedStyle.Render(m.CreatedAt.Local().Format(timeLayout))
	}
	return header + "\n" + m.Content
}

func renderMessages(list []models.Message) string {
	if len(list) == 0 {
		return MutedStyle.Render("No messages yet. Type something to start.")
	}
	parts := make([]string, 0, len(list))
	for _, m := range list {
		parts = append(parts, renderMessage(m))
	}
	return strings.Join(parts, "\n\n")
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// renderSessions lists the sessions numbered from 1, marking the active one.
func renderSessions(v models.View) string {
	if len(v.Sessions) == 0 {
		return MutedStyle.Render("No sessions in workspace " + v.WorkspaceID)
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Sessions in " + v.WorkspaceID))
	if v.Offline {
		b.WriteString(" " + MutedStyle.Render("(cached)"))
	}
	for i, s := range v.Sessions {
		marker := " "
		if s.ID == v.ActiveID {
			marker = SelectedStyle.Render("*")
		}
		line := fmt.Sprintf("%s%2d. %s  %s", marker, i+1, s.Title, MutedStyle.Render(s.UpdatedAt.Local().Format(timeLayout)))
		if s.LastMessage != nil {
			line += "\n     " + MutedStyle.Render(preview(*s.LastMessage, 60))
		}
		b.WriteString("\n" + line)
	}
	return b.String()
}

// timeLeft renders the time remaining until t.
func timeLeft(t time.Time, now time.Time) string {
	d := t.Sub(now).Round(time.Minute)
	if d <= 0 {
		return "expired"
	}
	return "in " + d.String()
}
