// Package ui renders analysis progress as a Bubble Tea program.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"pyscope/internal/analyzer"
)

type progressModel struct {
	title   string
	events  <-chan analyzer.Event
	spinner spinner.Model
	prog    progress.Model
	total   int
	done    int
	failed  int
	current string
	width   int
	closed  bool
}

type eventMsg analyzer.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders per-file
// analysis progress from the analyzer's event stream.
func NewProgressModel(title string, total int, events <-chan analyzer.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 60

	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		total:   total,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		ev := analyzer.Event(msg)
		var cmd tea.Cmd
		if ev.Done {
			m.done++
			if ev.Failed {
				m.failed++
			}
			if m.total > 0 {
				cmd = m.prog.SetPercent(float64(m.done) / float64(m.total))
			}
		} else {
			m.current = ev.Path
		}
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.closed = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.closed {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.closed {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")
	b.WriteString(m.prog.View())
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d/%d files", m.done, m.total)
	if m.failed > 0 {
		fmt.Fprintf(&b, " (%d failed to parse)", m.failed)
	}
	if m.current != "" && !m.closed {
		maxw := m.width - 4
		if maxw < 20 {
			maxw = 20
		}
		b.WriteString("\n")
		b.WriteString(runewidth.Truncate(m.current, maxw, "…"))
	}
	b.WriteString("\n")
	return b.String()
}
