package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	userStyle = lipgloss.NewStyle().Bold(true)
	botStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	if m.IsLoading {
		b.WriteString(m.Spinner.View() + " " + dimStyle.Render("thinking..."))
	} else {
		b.WriteString(m.Input.View())
	}
	b.WriteString("\n")
	return b.String()
}

// refreshViewport re-renders the transcript and pins the view to the
// newest exchange.
func (m *Model) refreshViewport() {
	var b strings.Builder
	for _, ex := range m.history {
		b.WriteString(userStyle.Render("you: "+ex.user) + "\n")
		if ex.bot != "" {
			b.WriteString(botStyle.Render(m.botName+": ") + m.renderReply(ex.bot) + "\n")
		}
		b.WriteString("\n")
	}
	m.Viewport.SetContent(b.String())
	m.Viewport.GotoBottom()
}

// renderReply passes multi-line replies (those carrying `\n` line breaks)
// through glamour; single-line replies, and any reply the renderer fails
// on, are shown as raw text.
func (m *Model) renderReply(text string) string {
	if m.Renderer == nil || !strings.Contains(text, "\n") {
		return text
	}
	out, err := m.Renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(out)
}
