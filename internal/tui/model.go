// Package tui is the terminal front-end for the dashboard controller. It owns
// no state beyond the last view received and the prompt line.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/allisson/btsguard/internal/dashboard"
)

type viewMsg struct {
	view *dashboard.ViewModel
}

// Model is the bubbletea model. It forwards parsed commands as intents and
// renders whatever view the controller publishes last.
type Model struct {
	ctx     context.Context
	intents chan<- dashboard.Intent
	views   <-chan *dashboard.ViewModel

	input    textinput.Model
	view     *dashboard.ViewModel
	hint string
	width    int
	quitting bool
}

// NewModel creates a model bound to the controller's channels. ctx ends the
// background reads and sends when the program stops.
func NewModel(ctx context.Context, intents chan<- dashboard.Intent, views <-chan *dashboard.ViewModel) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "set radio.power_dbm 33 | commit | apply | help"
	input.Focus()

	return Model{
		ctx:     ctx,
		intents: intents,
		views:   views,
		input:   input,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForView())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		m.view = msg.view
		return m, m.waitForView()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit

		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			return m.submit(line)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(line string) (tea.Model, tea.Cmd) {
	switch line {
	case "":
		return m, nil
	case "q", "quit", "exit":
		m.quitting = true
		return m, tea.Quit
	case "help", "?":
		m.hint = helpText
		return m, nil
	}

	intent, err := ParseCommand(line)
	if err != nil {
		m.hint = err.Error()
		return m, nil
	}
	m.hint = ""
	return m, m.send(intent)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	if m.view == nil {
		b.WriteString(mutedStyle.Render("Loading station state..."))
	} else {
		b.WriteString(Render(m.view, m.width))
	}
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	if m.hint != "" {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(m.hint))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) waitForView() tea.Cmd {
	return func() tea.Msg {
		select {
		case view := <-m.views:
			return viewMsg{view: view}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m Model) send(intent dashboard.Intent) tea.Cmd {
	return func() tea.Msg {
		select {
		case m.intents <- intent:
		case <-m.ctx.Done():
		}
		return nil
	}
}

const helpText = "commands: set <section>.<key> <value>, commit, discard, apply [version], " +
	"generate-cert [days], rotate-cert <id>, snapshot, restore <id>, refresh, reload, quit"
