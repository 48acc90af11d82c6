package domain

// PolicyKind selects how a cue is left.
type PolicyKind string

const (
	// PolicyFallThrough advances to Target when the exit boundary is reached.
	PolicyFallThrough PolicyKind = "fall_through"
	// PolicyVamp holds at the exit boundary until released, then advances to Target.
	PolicyVamp PolicyKind = "vamp"
	// PolicyJump jumps to Target when the cue is triggered with Go.
	PolicyJump PolicyKind = "jump"
)

// ExitPolicy is the outgoing edge of a cue. Target is a cue id; empty means "none".
type ExitPolicy struct {
	Kind   PolicyKind `json:"kind"`
	Target string     `json:"target,omitempty"`
}

// TempoOverride replaces the tempo from AtBeat (relative to the cue entry) onwards
// when the cue is activated.
type TempoOverride struct {
	AtBeat    float64 `json:"at_beat" mapstructure:"at_beat"`
	BPM       float64 `json:"bpm" mapstructure:"bpm"`
	RampTo    float64 `json:"ramp_to,omitempty" mapstructure:"ramp_to"`
	RampBeats float64 `json:"ramp_beats,omitempty" mapstructure:"ramp_beats"`
}

// ClipCue schedules a playback asset relative to the cue entry.
type ClipCue struct {
	Channel int     `json:"channel" mapstructure:"channel"`
	Clip    int     `json:"clip" mapstructure:"clip"`
	AtBeat  float64 `json:"at_beat" mapstructure:"at_beat"`
	Stop    bool    `json:"stop,omitempty" mapstructure:"stop"`
}

// CueNode is one node of the cue graph. Entry and Exit are absolute beats from show
// zero; an Exit of zero leaves the cue open-ended.
type CueNode struct {
	ID     string          `json:"id"`
	Name   string          `json:"name,omitempty"`
	Index  int             `json:"index"`
	Entry  float64         `json:"entry"`
	Exit   float64         `json:"exit,omitempty"`
	Policy ExitPolicy      `json:"policy"`
	Tempo  []TempoOverride `json:"tempo,omitempty"`
	Clips  []ClipCue       `json:"clips,omitempty"`
	Notes  string          `json:"notes,omitempty"`
}

// HasExit reports whether the cue has an exit boundary after its entry.
func (c CueNode) HasExit() bool {
	return c.Exit > c.Entry
}

// Trigger is the stimulus passed to cue resolution.
type Trigger string

const (
	TriggerNone    Trigger = ""
	TriggerRelease Trigger = "release"
	TriggerGo      Trigger = "go"
)

// ActionKind enumerates the outcomes of resolving a cue.
type ActionKind string

const (
	ActionAdvance ActionKind = "advance"
	ActionHold    ActionKind = "hold"
	ActionJump    ActionKind = "jump"
)

// NextAction is what the engine should do after resolving the current cue.
type NextAction struct {
	Kind  ActionKind
	CueID string
}
