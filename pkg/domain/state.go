package domain

// TransportState defines the current mode of the engine mechanics.
type TransportState string

const (
	StateIdle    TransportState = "idle"    // Pre-roll, a cue may be selected
	StatePlaying TransportState = "playing" // Advancing
	StateVamping TransportState = "vamping" // Holding at a vamp point
	StateStopped TransportState = "stopped" // Halted until reset
)

// Running reports whether the transport produces output.
func (s TransportState) Running() bool {
	return s == StatePlaying || s == StateVamping
}

// Snapshot is the read-only view of the execution state published at tick boundaries.
type Snapshot struct {
	Tick       uint64          `json:"tick"`
	State      TransportState  `json:"state"`
	CueID      string          `json:"cue_id"`
	CueName    string          `json:"cue_name,omitempty"`
	Musical    MusicalPosition `json:"musical"`
	Sample     SamplePosition  `json:"sample"`
	TempoBPM   float64         `json:"tempo_bpm"`
	Playrate   int             `json:"playrate,omitempty"`
	Timecode   Timecode        `json:"timecode"`
	Armed      bool            `json:"armed,omitempty"`
	Halted     bool            `json:"halted,omitempty"`
	Diagnostic string          `json:"diagnostic,omitempty"`
	Rejected   uint64          `json:"rejected,omitempty"`
}
