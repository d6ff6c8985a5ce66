package cliui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/mathpad/pkg/llm"
)

// StreamFunc runs one streaming call and reports its progress.
type StreamFunc func(ctx context.Context, progress llm.ProgressFunc) error

// tailLines is how much of the growing text the live view keeps on screen.
const tailLines = 12

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	thinkingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("215")).Italic(true)
)

type progressMsg struct {
	state     llm.StreamState
	reasoning bool
}

type finishedMsg struct {
	err error
}

type streamKeyMap struct {
	Cancel    key.Binding
	Reasoning key.Binding
}

func (k streamKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Reasoning, k.Cancel}
}

func (k streamKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// streamModel shows the tail of a stream while it runs. The spinner keeps
// turning while reasoning arrives so a long think does not look stalled.
type streamModel struct {
	title  string
	cancel context.CancelFunc

	spinner spinner.Model
	help    help.Model
	keys    streamKeyMap

	state         llm.StreamState
	thinking      bool
	showReasoning bool
	cancelling    bool
	width         int

	err error
}

func newStreamModel(title string, cancel context.CancelFunc) streamModel {
	return streamModel{
		title:   title,
		cancel:  cancel,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		help:    help.New(),
		keys: streamKeyMap{
			Cancel:    key.NewBinding(key.WithKeys("ctrl+c", "esc", "q"), key.WithHelp("ctrl+c", "stop")),
			Reasoning: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reasoning")),
		},
		width: 80,
	}
}

func (m streamModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m streamModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			// The stream settles as cancelled and finishedMsg ends the program.
			m.cancelling = true
			m.cancel()
		case key.Matches(msg, m.keys.Reasoning):
			m.showReasoning = !m.showReasoning
		}
		return m, nil

	case progressMsg:
		m.state = msg.state
		m.thinking = msg.reasoning
		return m, nil

	case finishedMsg:
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m streamModel) View() string {
	var b strings.Builder

	status := ""
	switch {
	case m.cancelling:
		status = StepStyle.Render("stopping…")
	case m.thinking:
		status = thinkingStyle.Render("thinking…")
	}
	fmt.Fprintf(&b, "%s %s %s\n\n", m.spinner.View(), titleStyle.Render(m.title), status)

	if m.showReasoning && m.state.Reasoning != "" {
		for _, line := range tail(m.state.Reasoning, tailLines/2) {
			b.WriteString(ReasonStyle.Render(ansi.Truncate(line, m.width, "…")) + "\n")
		}
		b.WriteString("\n")
	}
	for _, line := range tail(m.state.Content, tailLines) {
		b.WriteString(ansi.Truncate(line, m.width, "…") + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys) + "\n")
	return b.String()
}

// tail returns the last n lines of s.
func tail(s string, n int) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// RunStream runs fn behind a live terminal view until it settles and
// returns fn's error. Pressing ctrl+c cancels fn's context.
func RunStream(ctx context.Context, w io.Writer, title string, fn StreamFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newStreamModel(title, cancel), tea.WithOutput(w))

	go func() {
		err := fn(ctx, func(state llm.StreamState, reasoning bool) {
			p.Send(progressMsg{state: state, reasoning: reasoning})
		})
		p.Send(finishedMsg{err: err})
	}()

	final, err := p.Run()
	if err != nil {
		cancel()
		return fmt.Errorf("running stream view: %w", err)
	}
	return final.(streamModel).err
}

// PrintStream runs fn and copies new content to w as it arrives, for output
// that is not a terminal.
func PrintStream(ctx context.Context, w io.Writer, fn StreamFunc) error {
	written := 0
	err := fn(ctx, func(state llm.StreamState, _ bool) {
		if len(state.Content) > written {
			_, _ = io.WriteString(w, state.Content[written:])
			written = len(state.Content)
		}
	})
	if written > 0 {
		_, _ = io.WriteString(w, "\n")
	}
	return err
}
