package cuegraph

import "fmt"

// DuplicateCueError is returned when two cues share an id.
type DuplicateCueError struct {
	CueID string
}

func (e *DuplicateCueError) Error() string {
	return fmt.Sprintf("duplicate cue id %q", e.CueID)
}
