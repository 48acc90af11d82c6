package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/cueline/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// Plain falls back to the notty style for pipes and log files.
func NewRenderer(plain bool) (func(string) (string, error), error) {
	opt := glamour.WithAutoStyle()
	if plain {
		opt = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(100))
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}

// CueSheetMarkdown lays a show out as the operator's cue sheet: the tempo plan, a table
// of cues in show order and every cue's notes.
func CueSheetMarkdown(show *domain.Show) string {
	var sb strings.Builder

	name := show.Name
	if name == "" {
		name = "Untitled show"
	}
	fmt.Fprintf(&sb, "# %s\n\n", name)
	fmt.Fprintf(&sb, "%d Hz, %d/4, timecode %d fps", show.SampleRate, show.BeatsPerBar, show.Timecode.FPS)
	if show.Timecode.Start != "" {
		fmt.Fprintf(&sb, " from %s", show.Timecode.Start)
	}
	sb.WriteString("\n\n")

	if len(show.Tempo) > 0 {
		sb.WriteString("## Tempo\n\n")
		for _, mk := range show.Tempo {
			switch {
			case mk.BPM == 0 && mk.Vamp:
				fmt.Fprintf(&sb, "- beat %g: vamp", mk.AtBeat)
			case mk.RampTo > 0 && mk.RampBeats > 0:
				fmt.Fprintf(&sb, "- beat %g: %g bpm ramping to %g over %g beats", mk.AtBeat, mk.BPM, mk.RampTo, mk.RampBeats)
			default:
				fmt.Fprintf(&sb, "- beat %g: %g bpm", mk.AtBeat, mk.BPM)
				if mk.Vamp {
					sb.WriteString(", vamp")
				}
			}
			if mk.Release != "" {
				fmt.Fprintf(&sb, " (released by %s)", mk.Release)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Cues\n\n")
	sb.WriteString("| # | Cue | Name | Entry | Exit | Policy | Clips |\n")
	sb.WriteString("|---|-----|------|-------|------|--------|-------|\n")
	for _, c := range show.Cues {
		id := c.ID
		if c.ID == show.StartCue {
			id = "**" + id + "**"
		}
		exit := "open"
		if c.HasExit() {
			exit = fmt.Sprintf("%g", c.Exit)
		}
		fmt.Fprintf(&sb, "| %d | %s | %s | %g | %s | %s | %d |\n",
			c.Index, id, cell(c.Name), c.Entry, exit, policy(c.Policy), len(c.Clips))
	}

	for _, c := range show.Cues {
		if strings.TrimSpace(c.Notes) == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n### %s\n\n%s\n", c.ID, strings.TrimSpace(c.Notes))
	}
	return sb.String()
}

func policy(p domain.ExitPolicy) string {
	switch p.Kind {
	case domain.PolicyVamp:
		if p.Target == "" {
			return "vamp"
		}
		return "vamp, then " + p.Target
	case domain.PolicyJump:
		return "go to " + p.Target
	}
	if p.Target == "" {
		return "continue"
	}
	return "next " + p.Target
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
