// Package clock converts sample positions into musical, wall-clock and timecode time.
package clock

import (
	"math"
	"time"

	"github.com/aretw0/cueline/pkg/domain"
)

// TempoMap is the part of a tempo map the clock needs.
type TempoMap interface {
	BeatsAt(pos domain.SamplePosition) float64
	SampleRate() int
	BeatsPerBar() int
}

// Clock is the sample counter of one show session. It is owned by a single goroutine.
type Clock struct {
	pos domain.SamplePosition
}

// New returns a clock at pos.
func New(pos domain.SamplePosition) *Clock {
	return &Clock{pos: pos}
}

func (c *Clock) Position() domain.SamplePosition { return c.pos }

// Advance moves the clock forward by n samples. Negative n is ignored.
func (c *Clock) Advance(n int) {
	if n > 0 {
		c.pos += domain.SamplePosition(n)
	}
}

// Reset relocates the clock.
func (c *Clock) Reset(pos domain.SamplePosition) { c.pos = pos }

// ToMusical derives bar, beat and fraction from the exact beat count at pos.
func ToMusical(pos domain.SamplePosition, m TempoMap) domain.MusicalPosition {
	return Musical(m.BeatsAt(pos), m.BeatsPerBar())
}

// Musical labels an absolute beat count. Bars and beats are 1-based.
func Musical(beats float64, beatsPerBar int) domain.MusicalPosition {
	if beatsPerBar <= 0 {
		beatsPerBar = domain.DefaultBeatsPerBar
	}
	whole := math.Floor(beats)
	n := int64(whole)
	bar := floorDiv(n, int64(beatsPerBar))
	return domain.MusicalPosition{
		Bar:      int(bar) + 1,
		Beat:     int(n-bar*int64(beatsPerBar)) + 1,
		Fraction: beats - whole,
		Beats:    beats,
	}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ToWallTime returns the elapsed wall time at pos. Samples are the time base, so the
// tempo content does not enter the result.
func ToWallTime(pos domain.SamplePosition, m TempoMap) time.Duration {
	sr := int64(m.SampleRate())
	secs := int64(pos) / sr
	rem := int64(pos) % sr
	return time.Duration(secs)*time.Second + time.Duration(rem)*time.Second/time.Duration(sr)
}

const framesPerDay = 24 * 60 * 60

// ToTimecode labels pos with the SMPTE frame that contains it, offset by start and
// wrapped at 24 hours.
func ToTimecode(pos domain.SamplePosition, sampleRate int, start domain.Timecode) domain.Timecode {
	rate := start.Rate
	if rate <= 0 {
		rate = domain.DefaultTimecodeRate
	}
	frame := FrameIndex(pos, sampleRate, rate)
	return FromFrames(frame+start.TotalFrames(), rate)
}

// FrameIndex returns the index of the timecode frame containing pos.
func FrameIndex(pos domain.SamplePosition, sampleRate, rate int) int64 {
	return floorDiv(int64(pos)*int64(rate), int64(sampleRate))
}

// FrameStart returns the first sample of frame f.
func FrameStart(f int64, sampleRate, rate int) domain.SamplePosition {
	// ceil(f*sr/rate)
	num := f * int64(sampleRate)
	d := int64(rate)
	q := floorDiv(num, d)
	if q*d != num {
		q++
	}
	return domain.SamplePosition(q)
}

// FromFrames converts a frame count into hh:mm:ss:ff.
func FromFrames(frames int64, rate int) domain.Timecode {
	day := int64(framesPerDay) * int64(rate)
	frames %= day
	if frames < 0 {
		frames += day
	}
	r := int64(rate)
	return domain.Timecode{
		Hours:   int(frames / (3600 * r)),
		Minutes: int(frames / (60 * r) % 60),
		Seconds: int(frames / r % 60),
		Frames:  int(frames % r),
		Rate:    rate,
	}
}
