package domain

import "fmt"

// SamplePosition counts audio samples since show zero. It is the only ground-truth unit
// of time in the engine; everything else is derived from it.
type SamplePosition int64

// MusicalPosition is a SamplePosition seen through a tempo map.
// Bar and Beat are 1-based; Beats is the absolute, 0-based beat count it was derived from.
type MusicalPosition struct {
	Bar      int     `json:"bar"`
	Beat     int     `json:"beat"`
	Fraction float64 `json:"fraction"`
	Beats    float64 `json:"beats"`
}

func (m MusicalPosition) String() string {
	return fmt.Sprintf("%d.%d.%03d", m.Bar, m.Beat, int(m.Fraction*1000))
}

// Timecode is an SMPTE hh:mm:ss:ff label.
type Timecode struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
	Frames  int `json:"frames"`
	Rate    int `json:"rate"`
}

func (t Timecode) String() string {
	return fmt.Sprintf("%02d:%02d:%02d:%02d", t.Hours, t.Minutes, t.Seconds, t.Frames)
}

// MarshalText writes the hh:mm:ss:ff label. The frame rate is not part of the label.
func (t Timecode) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText reads a label written by MarshalText, leaving Rate zero.
func (t *Timecode) UnmarshalText(b []byte) error {
	var tc Timecode
	if _, err := fmt.Sscanf(string(b), "%d:%d:%d:%d", &tc.Hours, &tc.Minutes, &tc.Seconds, &tc.Frames); err != nil {
		return fmt.Errorf("invalid timecode %q: %w", b, err)
	}
	*t = tc
	return nil
}

// TotalFrames returns the number of frames since 00:00:00:00.
func (t Timecode) TotalFrames() int64 {
	return ((int64(t.Hours)*60+int64(t.Minutes))*60+int64(t.Seconds))*int64(t.Rate) + int64(t.Frames)
}

// ParseTimecode reads "hh:mm:ss:ff" for the given frame rate.
func ParseTimecode(s string, rate int) (Timecode, error) {
	var tc Timecode
	if s == "" {
		return Timecode{Rate: rate}, nil
	}
	if _, err := fmt.Sscanf(s, "%d:%d:%d:%d", &tc.Hours, &tc.Minutes, &tc.Seconds, &tc.Frames); err != nil {
		return Timecode{}, fmt.Errorf("invalid timecode %q: %w", s, err)
	}
	tc.Rate = rate
	if tc.Hours < 0 || tc.Hours > 23 || tc.Minutes < 0 || tc.Minutes > 59 ||
		tc.Seconds < 0 || tc.Seconds > 59 || tc.Frames < 0 || tc.Frames >= rate {
		return Timecode{}, fmt.Errorf("timecode %q out of range for %d fps", s, rate)
	}
	return tc, nil
}
