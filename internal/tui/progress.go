// Package tui shows render progress in the terminal, either as a bubbletea
// view or as plain status lines.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/givis/internal/frame"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const (
	barWidth   = 40
	historyLen = 48
)

var sparks = []rune("▁▂▃▄▅▆▇█")

// FrameMsg reports one finished frame.
type FrameMsg frame.Stats

// DoneMsg ends the view; Err is the run's error, if any.
type DoneMsg struct{ Err error }

// Model is the bubbletea model behind the progress view.
type Model struct {
	title  string
	total  int
	done   int
	last   frame.Stats
	groups []int
	start  time.Time
	cancel func()

	err      error
	finished bool
	aborted  bool
}

// NewModel builds a view for a run of total frames. cancel, if set, is
// called when the user quits early.
func NewModel(title string, total int, cancel func()) Model {
	return Model{
		title:  title,
		total:  total,
		start:  time.Now(),
		cancel: cancel,
		groups: make([]int, 0, historyLen),
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.aborted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case FrameMsg:
		m.done++
		m.last = frame.Stats(msg)
		m.groups = append(m.groups, msg.Groups)
		if len(m.groups) > historyLen {
			m.groups = m.groups[1:]
		}
	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString("\n  " + cyan.Render(m.title) + "\n\n")
	b.WriteString("  " + bar(m.done, m.total) + "  " + white.Render(fmt.Sprintf("%d/%d", m.done, m.total)) + "\n\n")

	if m.done > 0 {
		b.WriteString(dim.Render(fmt.Sprintf("  frame %04d  particles %d  classes %d  %s",
			m.last.Index, m.last.Particles, m.last.Groups, m.last.Elapsed.Round(time.Millisecond))) + "\n")
		b.WriteString("  " + green.Render(sparkline(m.groups)) + "\n")
	}

	switch {
	case m.err != nil:
		b.WriteString("\n  " + red.Render("error: "+m.err.Error()) + "\n")
	case m.aborted:
		b.WriteString("\n  " + red.Render("canceled") + "\n")
	case m.finished:
		b.WriteString("\n  " + green.Render(fmt.Sprintf("done in %s", time.Since(m.start).Round(time.Millisecond))) + "\n")
	default:
		b.WriteString("\n  " + dimmer.Render("q quit") + "\n")
	}
	return b.String()
}

// Aborted reports whether the user quit before the run finished.
func (m Model) Aborted() bool { return m.aborted }

func bar(done, total int) string {
	filled := 0
	if total > 0 {
		filled = done * barWidth / total
	}
	if filled > barWidth {
		filled = barWidth
	}
	return green.Render(strings.Repeat("█", filled)) + dimmer.Render(strings.Repeat("░", barWidth-filled))
}

func sparkline(vals []int) string {
	hi := 0
	for _, v := range vals {
		hi = max(hi, v)
	}
	out := make([]rune, len(vals))
	for i, v := range vals {
		k := 0
		if hi > 0 {
			k = v * (len(sparks) - 1) / hi
		}
		out[i] = sparks[k]
	}
	return string(out)
}

// Observer forwards frame stats to a running program.
func Observer(p *tea.Program) frame.Observer {
	return frame.ObserverFunc(func(s frame.Stats) { p.Send(FrameMsg(s)) })
}
