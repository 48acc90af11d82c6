package domain

// SegmentKind distinguishes constant tempo from linear ramps.
type SegmentKind string

const (
	SegmentConstant SegmentKind = "constant"
	SegmentRamp     SegmentKind = "ramp"
)

// Legal tempo range, in beats per minute.
const (
	MinBPM = 1.0
	MaxBPM = 999.0
)

// Legal playback rate range, in percent of the authored tempo.
const (
	MinPlayrate = 10
	MaxPlayrate = 400
)

// TempoSegment describes the tempo from Start until the next segment's Start.
//
// A ramp moves linearly from BPM to EndBPM over Length samples and holds EndBPM
// afterwards. A segment flagged Vamp is a hold point: playback freezes at Start until
// released.
type TempoSegment struct {
	Start   SamplePosition `json:"start"`
	Kind    SegmentKind    `json:"kind"`
	BPM     float64        `json:"bpm"`
	EndBPM  float64        `json:"end_bpm,omitempty"`
	Length  int64          `json:"length,omitempty"`
	Vamp    bool           `json:"vamp,omitempty"`
	Release string         `json:"release,omitempty"`
}

// TempoAt returns the instantaneous tempo at offset samples into the segment.
func (s TempoSegment) TempoAt(offset int64) float64 {
	if s.Kind != SegmentRamp || s.Length <= 0 {
		return s.BPM
	}
	if offset >= s.Length {
		return s.EndBPM
	}
	if offset <= 0 {
		return s.BPM
	}
	return s.BPM + (s.EndBPM-s.BPM)*float64(offset)/float64(s.Length)
}

// Constant is shorthand for a constant-tempo segment.
func Constant(start SamplePosition, bpm float64) TempoSegment {
	return TempoSegment{Start: start, Kind: SegmentConstant, BPM: bpm}
}

// Ramp is shorthand for a linear ramp over length samples.
func Ramp(start SamplePosition, from, to float64, length int64) TempoSegment {
	return TempoSegment{Start: start, Kind: SegmentRamp, BPM: from, EndBPM: to, Length: length}
}
