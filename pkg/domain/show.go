package domain

// DefaultSampleRate and friends apply when a show leaves them unset.
const (
	DefaultSampleRate   = 48000
	DefaultBeatsPerBar  = 4
	DefaultTimecodeRate = 25
	DefaultTempo        = 120.0
)

// Channels is the number of output channels the renderer produces.
const Channels = 30

// TempoMark is a tempo change at an absolute beat. RampTo and RampBeats describe an
// optional linear ramp starting at the mark.
type TempoMark struct {
	AtBeat    float64 `json:"at_beat" mapstructure:"at_beat"`
	BPM       float64 `json:"bpm" mapstructure:"bpm"`
	RampTo    float64 `json:"ramp_to,omitempty" mapstructure:"ramp_to"`
	RampBeats float64 `json:"ramp_beats,omitempty" mapstructure:"ramp_beats"`
	Vamp      bool    `json:"vamp,omitempty" mapstructure:"vamp"`
	Release   string  `json:"release,omitempty" mapstructure:"release"`
}

// TimecodeSettings configures the LTC output.
type TimecodeSettings struct {
	FPS   int    `json:"fps" mapstructure:"fps"`
	Start string `json:"start,omitempty" mapstructure:"start"`
}

// Show is a compiled-ready show definition: tempo marks in beats plus the cue list.
type Show struct {
	Name        string           `json:"name"`
	SampleRate  int              `json:"sample_rate"`
	BeatsPerBar int              `json:"beats_per_bar"`
	Timecode    TimecodeSettings `json:"timecode"`
	Tempo       []TempoMark      `json:"tempo"`
	Cues        []CueNode        `json:"cues"`
	StartCue    string           `json:"start_cue,omitempty"`
}
