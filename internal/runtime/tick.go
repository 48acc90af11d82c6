package runtime

import (
	"cmp"
	"math"
	"slices"

	"github.com/aretw0/cueline/internal/clock"
	"github.com/aretw0/cueline/pkg/domain"
)

// Tick advances s by one block of n samples after applying cmds in order. It is a pure
// function: s is not modified and the returned state shares no mutable storage with it.
func Tick(s State, cmds []domain.Command, n int) (State, domain.Timeline, []domain.CommandResult) {
	var tl domain.Timeline
	results := s.Step(cmds, n, &tl, nil, nil)
	return s, tl, results
}

// Step is Tick in place. It resets tl, appends one result per command to results, and
// polls preempt (when non-nil) between sub-blocks; a true answer stops the transport at
// that sample.
func (s *State) Step(cmds []domain.Command, n int, tl *domain.Timeline, results []domain.CommandResult, preempt func() bool) []domain.CommandResult {
	tl.Reset(n)
	tick := s.Tick
	s.Tick++

	halt := false
	for _, c := range cmds {
		err := s.apply(c, tl)
		if err != nil {
			s.reject(err, tl)
		}
		results = append(results, domain.CommandResult{Command: c, Tick: tick, Err: err})
		if (c.Kind == domain.CommandStop && err == nil) || s.Halted {
			halt = true
		}
	}

	if !halt && s.Status.Running() {
		s.advance(n, tl, preempt)
	}

	slices.SortStableFunc(tl.Events, func(a, b domain.Event) int { return cmp.Compare(a.Offset, b.Offset) })
	return results
}

// reject records a failed command. Fatal errors halt playback.
func (s *State) reject(err error, tl *domain.Timeline) {
	s.Diagnostic = err.Error()
	if domain.IsFatal(err) {
		s.halt(err, tl)
		return
	}
	s.Rejected++
}

func (s *State) halt(err error, tl *domain.Timeline) {
	s.Halted = true
	s.Armed = false
	s.Diagnostic = err.Error()
	s.setStatus(domain.StateStopped, 0, tl)
}

func (s *State) setStatus(to domain.TransportState, off int, tl *domain.Timeline) {
	if s.Status == to {
		return
	}
	from := s.Status
	s.Status = to
	if !to.Running() {
		s.ltc.synced = false
	}
	tl.Events = append(tl.Events, domain.Event{
		Kind:          domain.EventStateChanged,
		Offset:        off,
		Position:      s.Position,
		Discontinuity: !to.Running(),
		CueID:         s.CueID,
		From:          from,
		To:            to,
	})
}

// advance consumes n output samples, splitting the block at cue exits and vamp points.
func (s *State) advance(n int, tl *domain.Timeline, preempt func() bool) {
	off := 0
	for off < n {
		if preempt != nil && preempt() {
			s.Armed = false
			s.setStatus(domain.StateStopped, off, tl)
			return
		}
		switch s.Status {
		case domain.StateVamping:
			s.holdFor(off, n-off, tl)
			return
		case domain.StatePlaying:
		default:
			return
		}

		if !s.boundariesCurrent() {
			s.resolveBoundaries()
		}

		a := s.Position
		next := a + domain.SamplePosition(n-off)
		if s.exit > a && s.exit < next {
			next = s.exit
		}
		if v, ok := s.Map.NextVamp(a, next); ok {
			next = v.Start
		}

		length := int(next - a)
		s.run(off, a, next, tl)
		off += length
		s.Position = next
		s.Map = s.Map.WithPlayhead(next)

		if s.exit == next {
			if err := s.onExit(off, tl); err != nil {
				s.reject(err, tl)
				continue
			}
		}
		if s.Status == domain.StatePlaying && s.Position == next {
			if v, ok := s.Map.IsVamp(next); ok {
				s.enterVamp(off, v.Release, false, tl)
			}
		}
	}
}

// onExit follows the current cue's exit edge at output offset off. A cue with no
// automatic successor keeps playing, except a vamp cue, which holds for release.
func (s *State) onExit(off int, tl *domain.Timeline) error {
	node, err := s.Graph.Node(s.CueID)
	if err != nil {
		return err
	}
	action, err := s.Graph.ResolveNext(s.CueID, domain.TriggerNone)
	if err != nil {
		return err
	}
	switch action.Kind {
	case domain.ActionAdvance:
		return s.activate(action.CueID, off, false, tl)
	case domain.ActionJump:
		return s.activate(action.CueID, off, true, tl)
	}
	if node.Policy.Kind == domain.PolicyVamp {
		s.enterVamp(off, "release", true, tl)
	}
	return nil
}

// run emits everything in the advancing stretch [a, b) that starts at output offset off.
func (s *State) run(off int, a, b domain.SamplePosition, tl *domain.Timeline) {
	tl.Spans = append(tl.Spans, domain.Span{Offset: off, Length: int(b - a), Start: a})

	bpb := int64(s.Map.BeatsPerBar())
	s.Map.GridPoints(a, b, 1, func(n int64, at domain.SamplePosition) {
		beat := int(n%bpb) + 1
		tl.Events = append(tl.Events, domain.Event{
			Kind:     domain.EventBeat,
			Offset:   off + int(at-a),
			Position: at,
			Bar:      int(n/bpb) + 1,
			Beat:     beat,
			Downbeat: beat == 1,
		})
	})
	if s.PulsesPerBeat > 0 {
		ppq := int64(s.PulsesPerBeat)
		s.Map.GridPoints(a, b, s.PulsesPerBeat, func(n int64, at domain.SamplePosition) {
			tl.Events = append(tl.Events, domain.Event{
				Kind:     domain.EventPulse,
				Offset:   off + int(at-a),
				Position: at,
				Beat:     int(n%ppq) + 1,
				Downbeat: n%ppq == 0,
			})
		})
	}
	for _, c := range s.clips {
		if c.at < a || c.at >= b {
			continue
		}
		kind := domain.EventClipStart
		if c.Stop {
			kind = domain.EventClipStop
		}
		tl.Events = append(tl.Events, domain.Event{
			Kind:     kind,
			Offset:   off + int(c.at-a),
			Position: c.at,
			CueID:    s.CueID,
			Channel:  c.Channel,
			Clip:     c.Clip,
		})
	}
	s.frames(off, int(b-a), a, false, tl)
}

// enterVamp freezes the position and starts the hold accumulators.
func (s *State) enterVamp(off int, release string, fromCue bool, tl *domain.Timeline) {
	s.Armed = true
	s.vampCue = fromCue
	s.vampRelease = release

	p := s.Position
	b := s.Map.BeatsAt(p)
	s.hold = holdState{
		beats:    b,
		nextBeat: s.firstGridAtOrAfter(b, 1, p),
		bar:      clock.Musical(b, s.Map.BeatsPerBar()).Bar,
	}
	if s.PulsesPerBeat > 0 {
		s.hold.nextPulse = s.firstGridAtOrAfter(b, s.PulsesPerBeat, p)
	}

	tl.Events = append(tl.Events, domain.Event{
		Kind:     domain.EventVampEntered,
		Offset:   off,
		Position: p,
		CueID:    s.CueID,
		Detail:   release,
	})
	s.setStatus(domain.StateVamping, off, tl)
}

func (s *State) firstGridAtOrAfter(beats float64, perBeat int, p domain.SamplePosition) int64 {
	div := float64(perBeat)
	n := int64(math.Floor(beats * div))
	if n < 0 {
		n = 0
	}
	for s.Map.SampleAt(float64(n)/div) < p {
		n++
	}
	return n
}

// holdFor fills a held stretch of length samples at output offset off. Beats and pulses
// keep coming at the tempo just after the vamp point, labelled within the held bar.
func (s *State) holdFor(off, length int, tl *domain.Timeline) {
	p := s.Position
	tl.Spans = append(tl.Spans, domain.Span{Offset: off, Length: length, Start: p, Holding: true})

	inc := s.Map.TempoAt(p+1) / (60 * float64(s.sampleRate()))
	base := s.hold.beats
	bpb := int64(s.Map.BeatsPerBar())

	for {
		i, ok := holdOffset(float64(s.hold.nextBeat), base, inc, length)
		if !ok {
			break
		}
		beat := int(s.hold.nextBeat%bpb) + 1
		tl.Events = append(tl.Events, domain.Event{
			Kind:     domain.EventBeat,
			Offset:   off + i,
			Position: p,
			Bar:      s.hold.bar,
			Beat:     beat,
			Downbeat: beat == 1,
		})
		s.hold.nextBeat++
	}
	if s.PulsesPerBeat > 0 {
		ppq := int64(s.PulsesPerBeat)
		for {
			i, ok := holdOffset(float64(s.hold.nextPulse)/float64(ppq), base, inc, length)
			if !ok {
				break
			}
			tl.Events = append(tl.Events, domain.Event{
				Kind:     domain.EventPulse,
				Offset:   off + i,
				Position: p,
				Beat:     int(s.hold.nextPulse%ppq) + 1,
				Downbeat: s.hold.nextPulse%ppq == 0,
			})
			s.hold.nextPulse++
		}
	}
	s.hold.beats = base + float64(length)*inc

	s.frames(off, length, p, true, tl)
}

// holdOffset returns the sample offset, rounded half up, at which the virtual beat count
// reaches target, if that falls within length samples.
func holdOffset(target, base, inc float64, length int) (int, bool) {
	i := int(math.Floor((target-base)/inc + 0.5))
	if i < 0 {
		i = 0
	}
	return i, i < length
}

// frames emits timecode frame boundaries for an output stretch of length samples at
// offset off whose first sample plays position start. Held stretches repeat the label of
// start. After a discontinuity the stream resynchronises mid-frame and reports the phase.
func (s *State) frames(off, length int, start domain.SamplePosition, holding bool, tl *domain.Timeline) {
	sr := s.sampleRate()
	rate := s.TimecodeStart.Rate

	if !s.ltc.synced || s.disc {
		f := clock.FrameIndex(start, sr, rate)
		phase := int64(start - clock.FrameStart(f, sr, rate))
		tl.Events = append(tl.Events, domain.Event{
			Kind:          domain.EventTimecodeFrame,
			Offset:        off,
			Position:      start,
			Discontinuity: true,
			Timecode:      s.timecode(start),
			Phase:         int(phase),
		})
		s.ltc = ltcState{synced: true, out: phase, frames: 1}
		s.disc = false
	}

	for {
		rel := int64(clock.FrameStart(s.ltc.frames, sr, rate)) - s.ltc.out
		if rel >= int64(length) {
			break
		}
		pos := start
		if !holding {
			pos = start + domain.SamplePosition(rel)
		}
		tl.Events = append(tl.Events, domain.Event{
			Kind:     domain.EventTimecodeFrame,
			Offset:   off + int(rel),
			Position: pos,
			Timecode: s.timecode(pos),
		})
		s.ltc.frames++
	}
	s.ltc.out += int64(length)
}
