// Package tempomap holds the authoritative tempo timeline of a show.
//
// A Map is an immutable value. Every mutation returns a new Map and never writes to
// segment storage shared with earlier copies, so a Map captured in an engine state stays
// valid after later edits.
package tempomap

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/aretw0/cueline/pkg/domain"
)

// ErrInvalidSegment is returned for segment lists that break the ordering or range rules.
var ErrInvalidSegment = errors.New("invalid tempo segment")

// Map is an ordered list of tempo segments covering [0, +inf).
type Map struct {
	segments   []domain.TempoSegment
	startBeats []float64

	playhead    domain.SamplePosition
	sampleRate  int
	beatsPerBar int
	version     uint64
}

// New builds a map. The first segment must start at sample 0 and starts must be strictly
// increasing. The playhead starts before show zero, so every position is still mutable.
func New(sampleRate, beatsPerBar int, segments ...domain.TempoSegment) (Map, error) {
	if sampleRate <= 0 {
		return Map{}, fmt.Errorf("%w: sample rate %d", ErrInvalidSegment, sampleRate)
	}
	if beatsPerBar <= 0 {
		beatsPerBar = domain.DefaultBeatsPerBar
	}
	if len(segments) == 0 {
		segments = []domain.TempoSegment{domain.Constant(0, domain.DefaultTempo)}
	}
	if segments[0].Start != 0 {
		return Map{}, fmt.Errorf("%w: first segment starts at %d, want 0", ErrInvalidSegment, segments[0].Start)
	}
	if err := checkSegments(segments, -1); err != nil {
		return Map{}, err
	}

	m := Map{
		segments:    append([]domain.TempoSegment(nil), segments...),
		playhead:    -1,
		sampleRate:  sampleRate,
		beatsPerBar: beatsPerBar,
	}
	m.startBeats = m.integrate()
	return m, nil
}

// MustNew is New for fixtures; it panics on error.
func MustNew(sampleRate, beatsPerBar int, segments ...domain.TempoSegment) Map {
	m, err := New(sampleRate, beatsPerBar, segments...)
	if err != nil {
		panic(err)
	}
	return m
}

func checkSegments(segs []domain.TempoSegment, after domain.SamplePosition) error {
	prev := after
	for i, s := range segs {
		if i > 0 || after >= 0 {
			if s.Start <= prev {
				return fmt.Errorf("%w: segment %d starts at %d, not after %d", ErrInvalidSegment, i, s.Start, prev)
			}
		}
		if s.BPM < domain.MinBPM || s.BPM > domain.MaxBPM {
			return fmt.Errorf("%w: tempo %.3f out of range", ErrInvalidSegment, s.BPM)
		}
		if s.Kind == domain.SegmentRamp {
			if s.Length <= 0 {
				return fmt.Errorf("%w: ramp at %d has no length", ErrInvalidSegment, s.Start)
			}
			if s.EndBPM < domain.MinBPM || s.EndBPM > domain.MaxBPM {
				return fmt.Errorf("%w: ramp target %.3f out of range", ErrInvalidSegment, s.EndBPM)
			}
		}
		prev = s.Start
	}
	return nil
}

// integrate returns the absolute beat count at the start of every segment.
func (m Map) integrate() []float64 {
	out := make([]float64, len(m.segments))
	for i := 1; i < len(m.segments); i++ {
		prev := m.segments[i-1]
		out[i] = out[i-1] + m.segmentBeats(prev, int64(m.segments[i].Start-prev.Start))
	}
	return out
}

func (m Map) samplesPerMinute() float64 {
	return 60 * float64(m.sampleRate)
}

// segmentBeats integrates the tempo of s over its first x samples.
func (m Map) segmentBeats(s domain.TempoSegment, x int64) float64 {
	spm := m.samplesPerMinute()
	if s.Kind != domain.SegmentRamp || x <= 0 {
		return float64(x) * s.BPM / spm
	}
	l := s.Length
	if x <= l {
		k := (s.EndBPM - s.BPM) / float64(l)
		fx := float64(x)
		return (s.BPM*fx + k*fx*fx/2) / spm
	}
	ramp := float64(l) * (s.BPM + s.EndBPM) / 2
	return (ramp + float64(x-l)*s.EndBPM) / spm
}

// segmentOffset inverts segmentBeats: the real-valued sample offset into s at which
// beats have elapsed.
func (m Map) segmentOffset(s domain.TempoSegment, beats float64) float64 {
	spm := m.samplesPerMinute()
	need := beats * spm
	if s.Kind != domain.SegmentRamp || need <= 0 {
		return need / s.BPM
	}
	l := float64(s.Length)
	ramp := l * (s.BPM + s.EndBPM) / 2
	if need > ramp {
		return l + (need-ramp)/s.EndBPM
	}
	k := (s.EndBPM - s.BPM) / l
	// Stable root of k/2 x^2 + b0 x - need = 0.
	return 2 * need / (s.BPM + math.Sqrt(s.BPM*s.BPM+2*k*need))
}

func (m Map) index(pos domain.SamplePosition) int {
	i := sort.Search(len(m.segments), func(i int) bool { return m.segments[i].Start > pos })
	if i == 0 {
		return 0
	}
	return i - 1
}

// SegmentAt returns the segment covering pos. A segment starting exactly at pos wins.
func (m Map) SegmentAt(pos domain.SamplePosition) domain.TempoSegment {
	return m.segments[m.index(pos)]
}

// TempoAt returns the instantaneous tempo at pos.
func (m Map) TempoAt(pos domain.SamplePosition) float64 {
	s := m.SegmentAt(pos)
	return s.TempoAt(int64(pos - s.Start))
}

// BeatsAt returns the exact number of beats elapsed between show zero and pos.
// It depends only on segments starting at or before pos.
func (m Map) BeatsAt(pos domain.SamplePosition) float64 {
	if pos < 0 {
		return float64(pos) * m.segments[0].BPM / m.samplesPerMinute()
	}
	i := m.index(pos)
	return m.startBeats[i] + m.segmentBeats(m.segments[i], int64(pos-m.segments[i].Start))
}

// TimeAt returns the real-valued sample time at which beats have elapsed.
func (m Map) TimeAt(beats float64) float64 {
	if beats <= 0 {
		return beats * m.samplesPerMinute() / m.segments[0].BPM
	}
	i := sort.Search(len(m.startBeats), func(i int) bool { return m.startBeats[i] > beats }) - 1
	if i < 0 {
		i = 0
	}
	s := m.segments[i]
	return float64(s.Start) + m.segmentOffset(s, beats-m.startBeats[i])
}

// SampleAt returns the sample a grid point at beats lands on: round half up.
func (m Map) SampleAt(beats float64) domain.SamplePosition {
	return domain.SamplePosition(math.Floor(m.TimeAt(beats) + 0.5))
}

// GridPoints calls fn for every grid point with perBeat subdivisions whose sample lies in
// [from, to), in order. Index counts subdivisions from show zero.
func (m Map) GridPoints(from, to domain.SamplePosition, perBeat int, fn func(index int64, at domain.SamplePosition)) {
	if to <= from || perBeat <= 0 {
		return
	}
	div := float64(perBeat)
	n := int64(math.Floor(m.BeatsAt(from)*div)) - 1
	if n < 0 {
		n = 0
	}
	for {
		at := m.SampleAt(float64(n) / div)
		if at >= to {
			return
		}
		if at >= from {
			fn(n, at)
		}
		n++
	}
}

// NextVamp returns the first vamp point in (after, until].
func (m Map) NextVamp(after, until domain.SamplePosition) (domain.TempoSegment, bool) {
	for i := m.index(after); i < len(m.segments); i++ {
		s := m.segments[i]
		if s.Start > until {
			break
		}
		if s.Vamp && s.Start > after {
			return s, true
		}
	}
	return domain.TempoSegment{}, false
}

// IsVamp reports whether a vamp point starts exactly at pos.
func (m Map) IsVamp(pos domain.SamplePosition) (domain.TempoSegment, bool) {
	s := m.SegmentAt(pos)
	if s.Vamp && s.Start == pos {
		return s, true
	}
	return domain.TempoSegment{}, false
}

// Segments returns a copy of the segment list.
func (m Map) Segments() []domain.TempoSegment {
	return append([]domain.TempoSegment(nil), m.segments...)
}

// Playhead is the last elapsed position; mutations must target positions after it.
func (m Map) Playhead() domain.SamplePosition { return m.playhead }

// WithPlayhead returns the map with its playhead moved to pos.
func (m Map) WithPlayhead(pos domain.SamplePosition) Map {
	m.playhead = pos
	return m
}

// Version increases with every successful mutation.
func (m Map) Version() uint64 { return m.version }

// SampleRate of the samples the map is indexed by.
func (m Map) SampleRate() int { return m.sampleRate }

// BeatsPerBar used for bar/beat labels.
func (m Map) BeatsPerBar() int { return m.beatsPerBar }

// IsZero reports whether m was never built.
func (m Map) IsZero() bool { return len(m.segments) == 0 }

func (m Map) with(segs []domain.TempoSegment) Map {
	m.segments = segs
	m.startBeats = m.integrate()
	m.version++
	return m
}

func (m Map) checkFuture(pos domain.SamplePosition) error {
	if pos <= m.playhead {
		return &domain.PastMutationError{Target: pos, Playhead: m.playhead}
	}
	return nil
}

// ReplaceAfter drops every segment starting at or after pos and appends segs. The segment
// containing pos keeps running until the first new start.
func (m Map) ReplaceAfter(pos domain.SamplePosition, segs []domain.TempoSegment) (Map, error) {
	if err := m.checkFuture(pos); err != nil {
		return m, err
	}
	for _, s := range segs {
		if err := m.checkFuture(s.Start); err != nil {
			return m, err
		}
		if s.Start < pos {
			return m, fmt.Errorf("%w: segment at %d precedes replacement point %d", ErrInvalidSegment, s.Start, pos)
		}
	}
	if err := checkSegments(segs, pos-1); err != nil {
		return m, err
	}

	keep := sort.Search(len(m.segments), func(i int) bool { return m.segments[i].Start >= pos })
	if keep == 0 {
		// pos > playhead >= -1 and the first segment starts at 0, so pos == 0 here.
		if len(segs) == 0 || segs[0].Start != 0 {
			return m, fmt.Errorf("%w: map would not cover sample 0", ErrInvalidSegment)
		}
	}
	out := make([]domain.TempoSegment, 0, keep+len(segs))
	out = append(out, m.segments[:keep]...)
	out = append(out, segs...)
	return m.with(out), nil
}

// split returns a fresh copy of the segment list in which a segment starts at pos,
// plus that segment's index. Ramps continue along the same line across the split.
func (m Map) split(pos domain.SamplePosition) ([]domain.TempoSegment, int) {
	i := m.index(pos)
	out := make([]domain.TempoSegment, 0, len(m.segments)+1)
	out = append(out, m.segments...)
	s := out[i]
	if s.Start == pos {
		return out, i
	}

	// The head keeps its shape; the vamp flag belongs to its start only.
	out = append(out[:i+1], append([]domain.TempoSegment{continuation(s, pos)}, out[i+1:]...)...)
	return out, i + 1
}

// continuation returns the segment that carries s on from pos along the same line.
func continuation(s domain.TempoSegment, pos domain.SamplePosition) domain.TempoSegment {
	off := int64(pos - s.Start)
	switch {
	case s.Kind == domain.SegmentRamp && off < s.Length:
		return domain.Ramp(pos, s.TempoAt(off), s.EndBPM, s.Length-off)
	case s.Kind == domain.SegmentRamp:
		return domain.Constant(pos, s.EndBPM)
	default:
		return domain.Constant(pos, s.BPM)
	}
}

// Override makes seg govern the span from seg.Start up to the next tempo mark already in
// the map. Later marks survive and keep their beat positions, so their sample starts move
// with the new tempo. A vamp point that only splits the overridden span keeps holding and
// follows the new tempo, as does a vamp flag at seg.Start itself.
func (m Map) Override(seg domain.TempoSegment) (Map, error) {
	if err := m.checkFuture(seg.Start); err != nil {
		return m, err
	}
	if err := checkSegments([]domain.TempoSegment{seg}, -1); err != nil {
		return m, err
	}

	segs, i := m.split(seg.Start)
	beats := make([]float64, len(segs))
	for j := i + 1; j < len(segs); j++ {
		beats[j] = m.BeatsAt(segs[j].Start)
	}

	governing := segs[i]
	seg.Vamp, seg.Release = governing.Vamp, governing.Release
	segs[i] = seg
	inherited := true
	for j := i + 1; j < len(segs); j++ {
		old := segs[j]
		start := m.with(segs[:j]).SampleAt(beats[j])
		if start <= segs[j-1].Start {
			start = segs[j-1].Start + 1
		}
		if inherited && old.Vamp && splits(governing, old) {
			governing = old
			segs[j] = continuation(seg, start)
			segs[j].Vamp, segs[j].Release = true, old.Release
			continue
		}
		inherited = false
		segs[j].Start = start
	}
	return m.with(segs), nil
}

// splits reports whether next only marks a point on prev's line rather than a new tempo.
func splits(prev, next domain.TempoSegment) bool {
	want := continuation(prev, next.Start)
	return next.Kind == want.Kind && next.BPM == want.BPM && next.EndBPM == want.EndBPM && next.Length == want.Length
}

// InsertVamp flags pos as a hold point with the given release condition.
func (m Map) InsertVamp(pos domain.SamplePosition, release string) (Map, error) {
	if err := m.checkFuture(pos); err != nil {
		return m, err
	}
	segs, i := m.split(pos)
	segs[i].Vamp = true
	segs[i].Release = release
	return m.with(segs), nil
}

// Nudge shifts all tempo after the playhead by delta bpm. Tempos pushed out of the legal
// range are clamped to it, and limited reports whether that happened.
func (m Map) Nudge(delta float64) (n Map, limited bool) {
	return m.retempo(func(bpm float64) float64 { return bpm + delta })
}

// Scale multiplies all tempo after the playhead by factor, clamping like Nudge.
func (m Map) Scale(factor float64) (n Map, limited bool) {
	return m.retempo(func(bpm float64) float64 { return bpm * factor })
}

func (m Map) retempo(fn func(float64) float64) (Map, bool) {
	at := m.playhead + 1
	if at < 0 {
		at = 0
	}
	segs, i := m.split(at)
	limited := false
	for j := i; j < len(segs); j++ {
		var c bool
		segs[j].BPM, c = clamp(fn(segs[j].BPM))
		limited = limited || c
		if segs[j].Kind == domain.SegmentRamp {
			segs[j].EndBPM, c = clamp(fn(segs[j].EndBPM))
			limited = limited || c
		}
	}
	return m.with(segs), limited
}

func clamp(bpm float64) (float64, bool) {
	c := math.Max(domain.MinBPM, math.Min(domain.MaxBPM, bpm))
	return c, c != bpm
}

// RampLength returns the number of samples a linear ramp from -> to needs to cover beats.
func (m Map) RampLength(from, to, beats float64) int64 {
	if beats <= 0 || from+to <= 0 {
		return 0
	}
	return int64(math.Round(2 * beats * m.samplesPerMinute() / (from + to)))
}
