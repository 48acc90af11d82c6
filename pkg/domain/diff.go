package domain

import "math"

// SnapshotDiff represents the changes between two snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SnapshotDiff struct {
	// Tick is always present to order updates.
	Tick uint64 `json:"tick"`

	State   *TransportState `json:"state,omitempty"`
	CueID   *string         `json:"cue_id,omitempty"`
	CueName *string         `json:"cue_name,omitempty"`

	// Musical is sent when the bar or beat changes, not on every fraction.
	Musical *MusicalPosition `json:"musical,omitempty"`

	// TempoBPM is sent when the tempo moved by at least a hundredth of a beat per minute.
	TempoBPM *float64 `json:"tempo_bpm,omitempty"`

	Armed      *bool   `json:"armed,omitempty"`
	Halted     *bool   `json:"halted,omitempty"`
	Diagnostic *string `json:"diagnostic,omitempty"`
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, it returns a diff representing the entire newSnap (initial load).
// It returns nil when nothing a client cares about changed.
func Diff(oldSnap, newSnap *Snapshot) *SnapshotDiff {
	if newSnap == nil {
		return nil
	}

	diff := &SnapshotDiff{Tick: newSnap.Tick}

	if oldSnap == nil || oldSnap.State != newSnap.State {
		diff.State = &newSnap.State
	}
	if oldSnap == nil || oldSnap.CueID != newSnap.CueID {
		diff.CueID = &newSnap.CueID
		diff.CueName = &newSnap.CueName
	}
	if oldSnap == nil || oldSnap.Musical.Bar != newSnap.Musical.Bar || oldSnap.Musical.Beat != newSnap.Musical.Beat {
		diff.Musical = &newSnap.Musical
	}
	if oldSnap == nil || math.Abs(oldSnap.TempoBPM-newSnap.TempoBPM) >= 0.01 {
		diff.TempoBPM = &newSnap.TempoBPM
	}
	if oldSnap == nil {
		if newSnap.Armed {
			diff.Armed = &newSnap.Armed
		}
		if newSnap.Halted {
			diff.Halted = &newSnap.Halted
		}
		if newSnap.Diagnostic != "" {
			diff.Diagnostic = &newSnap.Diagnostic
		}
	} else {
		if oldSnap.Armed != newSnap.Armed {
			diff.Armed = &newSnap.Armed
		}
		if oldSnap.Halted != newSnap.Halted {
			diff.Halted = &newSnap.Halted
		}
		if oldSnap.Diagnostic != newSnap.Diagnostic {
			diff.Diagnostic = &newSnap.Diagnostic
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.State == nil &&
		d.CueID == nil &&
		d.Musical == nil &&
		d.TempoBPM == nil &&
		d.Armed == nil &&
		d.Halted == nil &&
		d.Diagnostic == nil
}
