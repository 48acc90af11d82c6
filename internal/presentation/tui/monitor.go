package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/cueline/pkg/domain"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#fbbf24"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666"))
	currentStyle = lipgloss.NewStyle().Reverse(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))

	stateStyles = map[domain.TransportState]lipgloss.Style{
		domain.StateIdle:    lipgloss.NewStyle().Foreground(lipgloss.Color("#888")),
		domain.StatePlaying: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4ade80")),
		domain.StateVamping: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#facc15")),
		domain.StateStopped: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f87171")),
	}
)

// RefreshInterval bounds how often the monitor redraws.
const RefreshInterval = 50 * time.Millisecond

// NudgeStep is the tempo change of one +/- key press.
const NudgeStep = 1.0

// StatusSource is the read side of the status publisher.
type StatusSource interface {
	Load() domain.Snapshot
	Watch() (<-chan struct{}, func())
}

// Submitter queues a control command.
type Submitter interface {
	Submit(cmd domain.Command) (uint64, error)
}

// StatusMsg signals that a new snapshot was published.
type StatusMsg struct{}

type rearmMsg struct{}

// Model is the operator monitor: live transport status, the cue list and keyboard
// control.
type Model struct {
	ShowName string
	Cues     []domain.CueNode

	status  StatusSource
	watch   <-chan struct{}
	cancel  func()
	control Submitter

	snap     domain.Snapshot
	lastErr  string
	quitting bool
}

// NewModel builds a monitor reading from status and sending keys to control.
func NewModel(show *domain.Show, status StatusSource, control Submitter) Model {
	watch, cancel := status.Watch()
	m := Model{
		status:  status,
		watch:   watch,
		cancel:  cancel,
		control: control,
		snap:    status.Load(),
	}
	if show != nil {
		m.ShowName = show.Name
		m.Cues = show.Cues
	}
	return m
}

// ListenForUpdates waits for the next publish.
func ListenForUpdates(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return StatusMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.watch)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case " ", "space", "g":
			m.submit(domain.GoCue())
		case "p":
			m.submit(domain.Play())
		case "s", "esc":
			m.submit(domain.Stop())
		case "r":
			m.submit(domain.Reset())
		case "v":
			m.submit(domain.VampRelease())
		case "h":
			m.submit(domain.HoldAtBar())
		case "+", "=":
			m.submit(domain.TempoNudge(NudgeStep))
		case "-":
			m.submit(domain.TempoNudge(-NudgeStep))
		case "n", "down":
			m.submit(domain.Command{Kind: domain.CommandNext})
		case "b", "up":
			m.submit(domain.Command{Kind: domain.CommandPrev})
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			m.submit(domain.LoadCue(int(msg.String()[0] - '1')))
		}

	case StatusMsg:
		m.snap = m.status.Load()
		return m, tea.Tick(RefreshInterval, func(time.Time) tea.Msg { return rearmMsg{} })

	case rearmMsg:
		return m, ListenForUpdates(m.watch)
	}

	return m, nil
}

func (m *Model) submit(cmd domain.Command) {
	m.lastErr = ""
	if _, err := m.control.Submit(cmd); err != nil {
		var full *domain.QueueFullError
		if errors.As(err, &full) {
			m.lastErr = fmt.Sprintf("queue full, dropped %s", full.Dropped.Kind)
			return
		}
		m.lastErr = err.Error()
	}
}

// Snapshot returns the snapshot the monitor last drew.
func (m Model) Snapshot() domain.Snapshot { return m.snap }

// LastError returns the last submission failure shown in the footer.
func (m Model) LastError() string { return m.lastErr }

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	s := m.snap
	var b strings.Builder

	title := "cueline"
	if m.ShowName != "" {
		title += "  " + m.ShowName
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")

	state := strings.ToUpper(string(s.State))
	if style, ok := stateStyles[s.State]; ok {
		state = style.Render(state)
	}
	b.WriteString(fmt.Sprintf("%s  cue %s", state, s.CueID))
	if s.CueName != "" {
		b.WriteString(dimStyle.Render(" " + s.CueName))
	}
	if s.Armed {
		b.WriteString(warnStyle.Render("  [ARMED]"))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("bar %3d beat %d   %6.2f bpm   %s\n", s.Musical.Bar, s.Musical.Beat, s.TempoBPM, s.Timecode))

	if s.Halted {
		b.WriteString(warnStyle.Render("HALTED: "+s.Diagnostic) + "\n")
	} else if s.Diagnostic != "" {
		b.WriteString(warnStyle.Render(s.Diagnostic) + "\n")
	}
	b.WriteString("\n")

	for _, c := range m.Cues {
		line := fmt.Sprintf(" %3d  %-12s %s", c.Index, c.ID, c.Name)
		switch {
		case c.ID == s.CueID:
			line = currentStyle.Render(line)
		default:
			line = dimStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	if m.lastErr != "" {
		b.WriteString(warnStyle.Render(m.lastErr) + "\n")
	}
	b.WriteString(helpStyle.Render("space go  p play  s stop  r reset  v release  h hold  +/- tempo  n/b next/prev  1-9 load  q quit"))
	return b.String()
}

// Run drives the monitor in the alternate screen until the operator quits or ctx ends.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
