package domain

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. The typed errors below match them through Is.
var (
	// ErrPastMutation is returned when a tempo edit targets an already-elapsed position.
	ErrPastMutation = errors.New("tempo map mutation targets the past")

	// ErrUnknownCue is returned when a cue id does not exist in the graph.
	ErrUnknownCue = errors.New("unknown cue")

	// ErrQueueFull is returned when a command had to be dropped under backpressure.
	ErrQueueFull = errors.New("command queue full")

	// ErrInconsistentGraph is fatal: the cue graph references a node it does not hold.
	ErrInconsistentGraph = errors.New("inconsistent cue graph")

	// ErrInvalidTransition is returned when a command is not legal in the current state.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrSessionNotFound is returned when a session ID cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")
)

// PastMutationError reports a tempo edit at or before the playhead.
type PastMutationError struct {
	Target   SamplePosition
	Playhead SamplePosition
}

func (e *PastMutationError) Error() string {
	return fmt.Sprintf("tempo map mutation at sample %d is not after playhead %d", e.Target, e.Playhead)
}

func (e *PastMutationError) Is(target error) bool { return target == ErrPastMutation }

// UnknownCueError reports a reference to a cue that is not in the graph.
type UnknownCueError struct {
	CueID string
}

func (e *UnknownCueError) Error() string {
	return fmt.Sprintf("unknown cue %q", e.CueID)
}

func (e *UnknownCueError) Is(target error) bool { return target == ErrUnknownCue }

// QueueFullError is returned to the sender whose oldest pending command was dropped.
type QueueFullError struct {
	Source  string
	Dropped Command
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("command queue %q full: dropped %s (seq %d)", e.Source, e.Dropped.Kind, e.Dropped.Seq)
}

func (e *QueueFullError) Is(target error) bool { return target == ErrQueueFull }

// InconsistentGraphError names the cue and the missing reference.
type InconsistentGraphError struct {
	CueID   string
	Missing string
}

func (e *InconsistentGraphError) Error() string {
	if e.CueID == "" {
		return fmt.Sprintf("inconsistent cue graph: missing cue %q", e.Missing)
	}
	return fmt.Sprintf("inconsistent cue graph: cue %q references missing cue %q", e.CueID, e.Missing)
}

func (e *InconsistentGraphError) Is(target error) bool { return target == ErrInconsistentGraph }

// InvalidTransitionError reports a command that the current state does not accept.
type InvalidTransitionError struct {
	From    TransportState
	Command CommandKind
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s is not allowed while %s", e.Command, e.From)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// IsFatal reports whether err must halt playback.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInconsistentGraph)
}
