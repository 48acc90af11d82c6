package domain

// EventKind classifies timeline records.
type EventKind string

const (
	EventBeat          EventKind = "beat"
	EventPulse         EventKind = "pulse"
	EventTimecodeFrame EventKind = "timecode_frame"
	EventCueChanged    EventKind = "cue_changed"
	EventVampEntered   EventKind = "vamp_entered"
	EventVampReleased  EventKind = "vamp_released"
	EventClipStart     EventKind = "clip_start"
	EventClipStop      EventKind = "clip_stop"
	EventStateChanged  EventKind = "state_changed"
	EventChannelGain   EventKind = "channel_gain"
	EventChannelMute   EventKind = "channel_mute"
	EventPlayrate      EventKind = "playrate"
)

// Event is one time-stamped record of a tick timeline. Offset is the sample offset
// inside the block; Position is the show position the record refers to.
type Event struct {
	Kind     EventKind      `json:"kind"`
	Offset   int            `json:"offset"`
	Position SamplePosition `json:"position"`

	// Discontinuity marks the first record after a relocation. Consumers holding
	// phase (click voices, LTC) must restart instead of interpolating.
	Discontinuity bool `json:"discontinuity,omitempty"`

	// A cue_changed record whose CueID equals PrevCueID is a seek inside the cue.
	CueID     string `json:"cue_id,omitempty"`
	PrevCueID string `json:"prev_cue_id,omitempty"`

	// Detail carries the release condition of a vamp.
	Detail string `json:"detail,omitempty"`

	// Beat and pulse records.
	Bar      int  `json:"bar,omitempty"`
	Beat     int  `json:"beat,omitempty"`
	Downbeat bool `json:"downbeat,omitempty"`

	// Timecode frame records. Phase is the sample offset into the frame at Offset;
	// it is non-zero only when the stream resynchronises mid-frame.
	Timecode Timecode `json:"timecode,omitempty"`
	Phase    int      `json:"phase,omitempty"`

	// Clip, gain and mute records. ClipOffset is where a resumed clip picks up, in
	// samples from its start.
	Channel    int     `json:"channel,omitempty"`
	Clip       int     `json:"clip,omitempty"`
	ClipOffset int     `json:"clip_offset,omitempty"`
	GainDB     float64 `json:"gain_db,omitempty"`
	Mute       bool    `json:"mute,omitempty"`

	// Playrate records.
	Percent int `json:"percent,omitempty"`

	// State change records.
	From TransportState `json:"from,omitempty"`
	To   TransportState `json:"to,omitempty"`
}

// Span maps Length output samples, starting at block offset Offset, onto show
// positions. An advancing span covers [Start, Start+Length); a held span stays at Start.
type Span struct {
	Offset  int            `json:"offset"`
	Length  int            `json:"length"`
	Start   SamplePosition `json:"start"`
	Holding bool           `json:"holding,omitempty"`
}

// Timeline is everything one tick produced, in output order.
type Timeline struct {
	Block  int     `json:"block"`
	Events []Event `json:"events"`
	Spans  []Span  `json:"spans"`
}

// Reset empties the timeline for reuse without releasing its storage.
func (t *Timeline) Reset(block int) {
	t.Block = block
	t.Events = t.Events[:0]
	t.Spans = t.Spans[:0]
}

// Count returns how many events of kind the timeline holds.
func (t *Timeline) Count(kind EventKind) int {
	n := 0
	for i := range t.Events {
		if t.Events[i].Kind == kind {
			n++
		}
	}
	return n
}
