// Package tui is the interactive chat REPL: one engine Reply call per
// submitted line, rendered in a scrolling conversation view.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/hanspeak/kivescript"
)

// -- Messages --

// replyMsg carries the result of one asynchronous engine call back into
// the update loop.
type replyMsg struct {
	text string
	err  error
}

// exchange is one rendered user/bot turn in the transcript.
type exchange struct {
	user string
	bot  string
}

// -- Model --

type Model struct {
	engine   *kivescript.Engine
	username string
	botName  string

	Viewport  viewport.Model
	Input     textinput.Model
	Spinner   spinner.Model
	IsLoading bool

	Renderer *glamour.TermRenderer

	history []exchange

	terminalWidth  int
	terminalHeight int
	quitting       bool
}

// NewModel builds the REPL around engine. username keys the session the
// whole conversation runs under; botName labels the bot's lines.
func NewModel(engine *kivescript.Engine, username, botName string) Model {
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(78),
	)

	ti := textinput.New()
	ti.Placeholder = "Say something..."
	ti.Focus()
	ti.CharLimit = 0
	ti.Prompt = "> "

	vp := viewport.New(80, 20)
	vp.SetContent(fmt.Sprintf("Chatting with %s. Type a message and press Enter; ctrl+c to quit.\n", botName))

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	return Model{
		engine:   engine,
		username: username,
		botName:  botName,
		Viewport: vp,
		Input:    ti,
		Spinner:  sp,
		Renderer: renderer,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.Spinner.Tick)
}
