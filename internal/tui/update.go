package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.Input.Value())
			if text == "" || m.IsLoading {
				return m, nil
			}
			m.Input.Reset()
			m.IsLoading = true
			m.history = append(m.history, exchange{user: text})
			m.refreshViewport()
			return m, tea.Batch(m.askEngine(text), m.Spinner.Tick)
		}

	case tea.WindowSizeMsg:
		m.terminalWidth = msg.Width
		m.terminalHeight = msg.Height
		m.Viewport.Width = msg.Width
		m.Viewport.Height = msg.Height - 3
		m.Input.Width = msg.Width - 4
		m.refreshViewport()

	case replyMsg:
		m.IsLoading = false
		last := &m.history[len(m.history)-1]
		if msg.err != nil {
			last.bot = "error: " + msg.err.Error()
		} else {
			last.bot = msg.text
		}
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		if m.IsLoading {
			var cmd tea.Cmd
			m.Spinner, cmd = m.Spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// askEngine runs the (potentially tag-recursing) Reply call off the
// update loop so the UI keeps spinning.
func (m Model) askEngine(text string) tea.Cmd {
	engine, username := m.engine, m.username
	return func() tea.Msg {
		reply, err := engine.Reply(context.Background(), username, text)
		return replyMsg{text: reply, err: err}
	}
}
