package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/cueline/pkg/domain"
)

// Severity of an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding about a show.
type Issue struct {
	Severity Severity `json:"severity"`
	CueID    string   `json:"cue_id,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.CueID == "" {
		return i.Message
	}
	return fmt.Sprintf("cue '%s': %s", i.CueID, i.Message)
}

// Report collects the findings of ValidateShow.
type Report struct {
	Issues    []Issue `json:"issues"`
	Reachable int     `json:"reachable"`
	Total     int     `json:"total"`
}

func (r *Report) add(sev Severity, cue, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: sev, CueID: cue, Message: fmt.Sprintf(format, args...)})
}

// Errors returns the error-level issues.
func (r *Report) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns the warning-level issues.
func (r *Report) Warnings() []Issue { return r.filter(SeverityWarning) }

func (r *Report) filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

// Err folds the error-level issues into one error, or returns nil.
func (r *Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = e.String()
	}
	return fmt.Errorf("found %d errors:\n- %s", len(errs), strings.Join(lines, "\n- "))
}

// ValidateShow checks a show for broken links, unreachable cues and values the engine
// would reject. Broken links and bad values are errors; unreachable cues, which an
// operator can still jump to, are warnings.
func ValidateShow(show *domain.Show) *Report {
	r := &Report{Total: len(show.Cues)}

	byID := make(map[string]domain.CueNode, len(show.Cues))
	order := make([]string, 0, len(show.Cues))
	for _, c := range show.Cues {
		if c.ID == "" {
			r.add(SeverityError, "", "cue at index %d has no id", c.Index)
			continue
		}
		if _, dup := byID[c.ID]; dup {
			r.add(SeverityError, c.ID, "duplicate cue id")
			continue
		}
		byID[c.ID] = c
		order = append(order, c.ID)
	}

	for _, id := range order {
		checkCue(r, byID[id], show)
	}
	for i, m := range show.Tempo {
		if !m.Vamp && (m.BPM < domain.MinBPM || m.BPM > domain.MaxBPM) {
			r.add(SeverityError, "", "tempo mark %d: %g bpm is outside %g..%g", i, m.BPM, domain.MinBPM, domain.MaxBPM)
		}
		if m.AtBeat < 0 {
			r.add(SeverityError, "", "tempo mark %d: negative beat %g", i, m.AtBeat)
		}
	}

	if len(order) == 0 {
		r.add(SeverityWarning, "", "show has no cues")
		return r
	}
	start := show.StartCue
	if start == "" {
		start = order[0]
	}
	if _, ok := byID[start]; !ok {
		r.add(SeverityError, "", "start cue '%s' not found", start)
		return r
	}

	// Crawl the edges plus the show-order successor a Go reaches from an open cue.
	next := make(map[string]string, len(order))
	for i := 0; i+1 < len(order); i++ {
		next[order[i]] = order[i+1]
	}
	visited := map[string]bool{}
	queue := []string{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		c := byID[id]
		targets := []string{c.Policy.Target}
		if c.Policy.Kind == domain.PolicyFallThrough && c.Policy.Target == "" {
			targets = append(targets, next[id])
		}
		for _, t := range targets {
			if _, ok := byID[t]; ok && !visited[t] {
				queue = append(queue, t)
			}
		}
	}
	r.Reachable = len(visited)
	for _, id := range order {
		if !visited[id] {
			r.add(SeverityWarning, id, "unreachable from start cue '%s'", start)
		}
	}
	return r
}

func checkCue(r *Report, c domain.CueNode, show *domain.Show) {
	switch c.Policy.Kind {
	case domain.PolicyFallThrough, domain.PolicyVamp, domain.PolicyJump:
	default:
		r.add(SeverityError, c.ID, "unknown exit policy '%s'", c.Policy.Kind)
	}
	if t := c.Policy.Target; t != "" && !hasCue(show, t) {
		r.add(SeverityError, c.ID, "missing target '%s'", t)
	}
	if c.Entry < 0 {
		r.add(SeverityError, c.ID, "negative entry %g", c.Entry)
	}
	if c.Exit != 0 && c.Exit <= c.Entry {
		r.add(SeverityError, c.ID, "exit %g is not after entry %g", c.Exit, c.Entry)
	}
	if c.Policy.Kind == domain.PolicyVamp && !c.HasExit() {
		r.add(SeverityWarning, c.ID, "vamp cue has no exit, so it never holds")
	}
	if c.Policy.Kind == domain.PolicyJump && c.Policy.Target == "" {
		r.add(SeverityWarning, c.ID, "jump cue has no target")
	}
	for _, o := range c.Tempo {
		if o.BPM < domain.MinBPM || o.BPM > domain.MaxBPM {
			r.add(SeverityError, c.ID, "tempo override %g bpm is outside %g..%g", o.BPM, domain.MinBPM, domain.MaxBPM)
		}
	}
	for _, clip := range c.Clips {
		if clip.Channel < 0 || clip.Channel >= domain.Channels {
			r.add(SeverityError, c.ID, "clip channel %d out of range", clip.Channel)
		}
	}
}

func hasCue(show *domain.Show, id string) bool {
	for _, c := range show.Cues {
		if c.ID == id {
			return true
		}
	}
	return false
}
