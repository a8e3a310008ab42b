package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/verdictlabs/verdict/pkg/domain/decision"
	"github.com/verdictlabs/verdict/pkg/domain/events"
)

var (
	stepDoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	stepActiveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	stepPendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type progressMsg struct {
	event *events.ProgressEvent
}

type finishedMsg struct{}

// progressModel renders the pipeline stages as a live checklist.
type progressModel struct {
	runID    string
	spinner  spinner.Model
	steps    []decision.Step
	current  int
	messages map[decision.Step]string
	done     bool
}

func newProgressModel(runID string) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return progressModel{
		runID:    runID,
		spinner:  s,
		steps:    decision.Steps(),
		current:  -1,
		messages: make(map[decision.Step]string),
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case progressMsg:
		if msg.event.Terminal {
			m.done = true
			return m, tea.Quit
		}
		for i, step := range m.steps {
			if step == msg.event.Step {
				m.current = i
				m.messages[step] = msg.event.Message
			}
		}
		return m, nil
	case finishedMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Deciding (%s)\n\n", m.runID)
	for i, step := range m.steps {
		switch {
		case i < m.current:
			fmt.Fprintf(&b, "  %s %s\n", stepDoneStyle.Render("✓"), step)
		case i == m.current:
			fmt.Fprintf(&b, "  %s %s: %s\n", m.spinner.View(), stepActiveStyle.Render(string(step)), m.messages[step])
		default:
			fmt.Fprintf(&b, "  %s\n", stepPendingStyle.Render("· "+string(step)))
		}
	}
	return b.String()
}
