package runtime

import (
	"errors"
	"fmt"

	"github.com/aretw0/cueline/pkg/domain"
)

var (
	// ErrNoAdjacentCue is returned by Next/Prev at either end of the show.
	ErrNoAdjacentCue = errors.New("no adjacent cue")

	// ErrBadReloadPayload is returned when a reload carries no compiled program.
	ErrBadReloadPayload = errors.New("reload needs a compiled program")
)

// UnknownCommandError is returned for a command kind the engine does not implement.
type UnknownCommandError struct {
	Kind domain.CommandKind
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Kind)
}

// ChannelRangeError reports a gain or mute change for a channel that does not exist.
type ChannelRangeError struct {
	Channel int
}

func (e *ChannelRangeError) Error() string {
	return fmt.Sprintf("channel %d out of range [0, %d)", e.Channel, domain.Channels)
}

// CueIndexError reports a load for a show-order index with no cue.
type CueIndexError struct {
	Index int
	Len   int
}

func (e *CueIndexError) Error() string {
	return fmt.Sprintf("cue index %d out of range [0, %d)", e.Index, e.Len)
}

// BeatRangeError reports a seek outside the current cue.
type BeatRangeError struct {
	CueID string
	Beat  float64
}

func (e *BeatRangeError) Error() string {
	return fmt.Sprintf("beat %g is outside cue %q", e.Beat, e.CueID)
}

// PlayrateRangeError reports a playback rate outside the legal range.
type PlayrateRangeError struct {
	Percent int
}

func (e *PlayrateRangeError) Error() string {
	return fmt.Sprintf("playrate %d%% out of range [%d, %d]", e.Percent, domain.MinPlayrate, domain.MaxPlayrate)
}
