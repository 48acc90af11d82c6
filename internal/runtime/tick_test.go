package runtime_test

import (
	"testing"

	"github.com/aretw0/cueline/internal/runtime"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTick_BeatGridAt120(t *testing.T) {
	p := compile(t, nil, cue("A", 0, 0, domain.PolicyFallThrough, ""))
	s := runtime.NewState(p)

	// Ten seconds at 48 kHz in blocks of 256.
	const ticks = 480000 / block
	type hit struct{ tick, offset int }
	var got []hit
	var downbeats int
	var frames int

	for i := 0; i < ticks; i++ {
		var cmds []domain.Command
		if i == 0 {
			cmds = []domain.Command{domain.Play()}
		}
		var tl domain.Timeline
		s, tl, _ = runtime.Tick(s, cmds, block)
		for _, ev := range tl.Events {
			switch ev.Kind {
			case domain.EventBeat:
				got = append(got, hit{i, ev.Offset})
				if ev.Downbeat {
					downbeats++
				}
			case domain.EventTimecodeFrame:
				frames++
			}
		}
	}

	require.Len(t, got, 20)
	for n, h := range got {
		wantTick := beat * n / block
		assert.Equal(t, wantTick, h.tick, "beat %d", n)
		assert.Equal(t, beat*n-wantTick*block, h.offset, "beat %d", n)
	}
	assert.Equal(t, []int{0, 93, 187, 281, 375}, []int{got[0].tick, got[1].tick, got[2].tick, got[3].tick, got[4].tick})
	assert.Equal(t, 5, downbeats)
	assert.Equal(t, 250, frames, "25 fps for ten seconds")
	assert.Equal(t, domain.SamplePosition(480000), s.Position)
	assert.Equal(t, uint64(ticks), s.Tick)
}

func TestTick_IsPure(t *testing.T) {
	p := compile(t, nil, cue("A", 0, 8, domain.PolicyFallThrough, "B"), cue("B", 8, 0, domain.PolicyFallThrough, ""))
	s0, _ := tickN(runtime.NewState(p), 50, domain.Play())
	segs := s0.Map.Segments()
	pos := s0.Position

	cmds := []domain.Command{domain.TempoNudge(7), domain.JumpTo("B")}
	s1, tl1, r1 := runtime.Tick(s0, cmds, block)
	s2, tl2, r2 := runtime.Tick(s0, cmds, block)

	assert.Equal(t, s1, s2)
	assert.Equal(t, tl1, tl2)
	assert.Equal(t, r1, r2)

	assert.Equal(t, pos, s0.Position, "input state untouched")
	assert.Equal(t, segs, s0.Map.Segments(), "input tempo map untouched")
	assert.Equal(t, "A", s0.CueID)
}

func TestTick_UnknownCueKeepsCurrent(t *testing.T) {
	p := compile(t, nil, cue("A", 0, 0, domain.PolicyFallThrough, ""))
	s, _ := tickN(runtime.NewState(p), 3, domain.Play())

	s, tl, results := runtime.Tick(s, []domain.Command{domain.JumpTo("nope"), domain.TempoNudge(1)}, block)

	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, domain.ErrUnknownCue)
	assert.NoError(t, results[1].Err, "later commands still apply")
	assert.Equal(t, "A", s.CueID)
	assert.Equal(t, domain.StatePlaying, s.Status)
	assert.Equal(t, uint64(1), s.Rejected)
	assert.Contains(t, s.Snapshot().Diagnostic, "nope")
	assert.Len(t, tl.Spans, 1, "tick continued")
}

func TestTick_VampHoldAndRelease(t *testing.T) {
	p := compile(t,
		[]domain.TempoMark{{AtBeat: 0, BPM: 120}, {AtBeat: 4, Vamp: true, Release: "actor"}},
		cue("A", 0, 0, domain.PolicyFallThrough, ""),
	)
	s, tls := tickN(runtime.NewState(p), 375, domain.Play())

	require.Equal(t, domain.StateVamping, s.Status)
	assert.Equal(t, domain.SamplePosition(4*beat), s.Position)
	assert.True(t, s.Armed)
	entered := eventsOf(tls, domain.EventVampEntered)
	require.Len(t, entered, 1)
	assert.Equal(t, "actor", entered[0].Detail)
	assert.Equal(t, block, entered[0].Offset, "vamp point is the last sample of tick 374")

	s, held := tickN(s, 200)
	assert.Equal(t, domain.SamplePosition(4*beat), s.Position, "position frozen")
	for _, tl := range held {
		require.Len(t, tl.Spans, 1)
		assert.True(t, tl.Spans[0].Holding)
	}

	beats := eventsOf(held, domain.EventBeat)
	require.NotEmpty(t, beats, "click keeps running while held")
	assert.Equal(t, 0, beats[0].Offset)
	assert.Equal(t, 2, beats[0].Bar)
	assert.Equal(t, 1, beats[0].Beat)
	assert.True(t, beats[0].Downbeat)
	assert.Equal(t, 2, beats[1].Beat)
	assert.Equal(t, 2, beats[1].Bar, "held bar repeats")
	assert.NotEmpty(t, eventsOf(held, domain.EventTimecodeFrame), "timecode keeps running while held")

	s, tl, results := runtime.Tick(s, []domain.Command{domain.VampRelease()}, block)
	require.NoError(t, results[0].Err)
	assert.Equal(t, domain.StatePlaying, s.Status)
	assert.False(t, s.Armed)
	require.Len(t, tl.Spans, 1)
	assert.Equal(t, domain.SamplePosition(4*beat), tl.Spans[0].Start, "resumes from exactly the vamp point")
	assert.False(t, tl.Spans[0].Holding)
	assert.Equal(t, domain.SamplePosition(4*beat+block), s.Position)
	assert.Equal(t, 1, tl.Count(domain.EventVampReleased))
}

func TestTick_NudgeAudibleWhileHeld(t *testing.T) {
	p := compile(t,
		[]domain.TempoMark{{AtBeat: 0, BPM: 120}, {AtBeat: 4, Vamp: true}},
		cue("A", 0, 0, domain.PolicyFallThrough, ""),
	)
	s, _ := tickN(runtime.NewState(p), 375, domain.Play())
	require.Equal(t, domain.StateVamping, s.Status)

	// Doubling the tempo halves the distance between held clicks.
	s, held := tickN(s, 200, domain.TempoNudge(120))
	beats := eventsOf(held, domain.EventBeat)
	require.GreaterOrEqual(t, len(beats), 3)
	assert.Equal(t, 120.0, s.Map.TempoAt(s.Position))
	assert.Equal(t, 240.0, s.Map.TempoAt(s.Position+1))
}

func TestTick_CueLoopCountsReleases(t *testing.T) {
	p := compile(t, nil,
		cue("A", 0, 4, domain.PolicyFallThrough, "B"),
		cue("B", 4, 8, domain.PolicyVamp, "A"),
	)
	s := runtime.NewState(p)

	var tl domain.Timeline
	s, tl, _ = runtime.Tick(s, []domain.Command{domain.Play()}, block)
	entries := map[string]int{}
	count := func(tl domain.Timeline) {
		for _, ev := range tl.Events {
			if ev.Kind == domain.EventCueChanged {
				entries[ev.CueID]++
			}
		}
	}
	count(tl)

	vamping := func(s runtime.State) bool { return s.Status == domain.StateVamping }
	const releases = 3
	for i := 0; i < releases; i++ {
		for !vamping(s) {
			s, tl, _ = runtime.Tick(s, nil, block)
			count(tl)
		}
		assert.Equal(t, "B", s.CueID)
		assert.Equal(t, domain.SamplePosition(8*beat), s.Position)

		var results []domain.CommandResult
		s, tl, results = runtime.Tick(s, []domain.Command{domain.VampRelease()}, block)
		require.NoError(t, results[0].Err)
		count(tl)
		assert.Equal(t, "A", s.CueID)
	}

	assert.Equal(t, 1+releases, entries["A"], "one entry from play plus one per release")
	assert.Equal(t, releases, entries["B"])
}

func TestTick_FallThroughIsContinuous(t *testing.T) {
	p := compile(t, nil,
		cue("A", 0, 1, domain.PolicyFallThrough, "B"),
		cue("B", 1, 0, domain.PolicyFallThrough, ""),
	)
	s, tls := tickN(runtime.NewState(p), 100, domain.Play())

	changes := eventsOf(tls, domain.EventCueChanged)
	require.Len(t, changes, 2)
	assert.Equal(t, "B", changes[1].CueID)
	assert.Equal(t, "A", changes[1].PrevCueID)
	assert.Equal(t, domain.SamplePosition(beat), changes[1].Position)
	assert.Equal(t, beat-93*block, changes[1].Offset, "cue change is sample accurate")
	assert.False(t, changes[1].Discontinuity)
	assert.Equal(t, domain.SamplePosition(100*block), s.Position)

	// The exit splits tick 93 into two spans.
	assert.Len(t, tls[93].Spans, 2)
}

func TestTick_JumpIsDiscontinuous(t *testing.T) {
	p := compile(t, nil,
		cue("A", 0, 0, domain.PolicyFallThrough, ""),
		cue("B", 4.5, 0, domain.PolicyFallThrough, ""),
	)
	s, _ := tickN(runtime.NewState(p), 10, domain.Play())

	s, tl, results := runtime.Tick(s, []domain.Command{domain.JumpTo("B")}, block)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "B", s.CueID)
	assert.Equal(t, domain.SamplePosition(108000+block), s.Position)

	var cueEv, frameEv *domain.Event
	for i := range tl.Events {
		ev := &tl.Events[i]
		switch {
		case ev.Kind == domain.EventCueChanged && cueEv == nil:
			cueEv = ev
		case ev.Kind == domain.EventTimecodeFrame && frameEv == nil:
			frameEv = ev
		}
	}
	require.NotNil(t, cueEv)
	require.NotNil(t, frameEv)
	assert.True(t, cueEv.Discontinuity)
	assert.True(t, frameEv.Discontinuity)
	assert.Equal(t, 0, frameEv.Offset)
	// 108000 samples is 56 frames of 1920 plus 480.
	assert.Equal(t, 480, frameEv.Phase)
	assert.Equal(t, "00:00:02:06", frameEv.Timecode.String())
}

func TestTick_StopDiscardsTimeline(t *testing.T) {
	p := compile(t, nil, cue("A", 0, 0, domain.PolicyFallThrough, ""))
	s, _ := tickN(runtime.NewState(p), 5, domain.Play())
	pos := s.Position

	s, tl, results := runtime.Tick(s, []domain.Command{domain.Stop(), domain.TempoNudge(3)}, block)
	require.Len(t, results, 2)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, domain.StateStopped, s.Status)
	assert.Equal(t, pos, s.Position)
	assert.Empty(t, tl.Spans)
	require.Len(t, tl.Events, 1)
	assert.Equal(t, domain.EventStateChanged, tl.Events[0].Kind)
	assert.True(t, tl.Events[0].Discontinuity)

	_, tls := tickN(s, 3)
	for _, tl := range tls {
		assert.Empty(t, tl.Events, "stopped transport is silent")
	}
}

func TestStep_StopRequestPreemptsSubBlocks(t *testing.T) {
	p := compile(t, nil,
		cue("A", 0, 1, domain.PolicyFallThrough, "B"),
		cue("B", 1, 0, domain.PolicyFallThrough, ""),
	)
	s, _ := tickN(runtime.NewState(p), 93, domain.Play())

	calls := 0
	preempt := func() bool {
		calls++
		return calls > 1
	}
	var tl domain.Timeline
	s.Step(nil, block, &tl, nil, preempt)

	assert.Equal(t, domain.StateStopped, s.Status)
	require.Len(t, tl.Spans, 1)
	assert.Equal(t, beat-93*block, tl.Spans[0].Length)
	assert.Equal(t, domain.SamplePosition(beat), s.Position)

	last := tl.Events[len(tl.Events)-1]
	assert.Equal(t, domain.EventStateChanged, last.Kind)
	assert.Equal(t, beat-93*block, last.Offset)
}

func TestTick_InvalidTransitions(t *testing.T) {
	p := compile(t, nil, cue("A", 0, 0, domain.PolicyFallThrough, ""))

	playing, _ := tickN(runtime.NewState(p), 1, domain.Play())
	stopped, _ := tickN(playing, 1, domain.Stop())

	tests := []struct {
		name string
		s    runtime.State
		cmd  domain.Command
	}{
		{"Play While Stopped", stopped, domain.Play()},
		{"Reset While Playing", playing, domain.Reset()},
		{"Release While Playing", playing, domain.VampRelease()},
		{"Jump While Stopped", stopped, domain.JumpTo("A")},
		{"Go While Idle", runtime.NewState(p), domain.GoCue()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, _, results := runtime.Tick(tt.s, []domain.Command{tt.cmd}, block)
			require.Len(t, results, 1)
			assert.ErrorIs(t, results[0].Err, domain.ErrInvalidTransition)
			assert.Equal(t, tt.s.Status, next.Status)
			assert.False(t, next.Halted)
		})
	}

	next, _, results := runtime.Tick(playing, []domain.Command{domain.Play()}, block)
	assert.NoError(t, results[0].Err, "play while playing is a no-op")
	assert.Equal(t, domain.StatePlaying, next.Status)
}

func TestTick_ResetReturnsToIdle(t *testing.T) {
	p := compile(t, nil,
		cue("A", 2, 0, domain.PolicyFallThrough, ""),
		cue("B", 8, 0, domain.PolicyFallThrough, ""),
	)
	s, _ := tickN(runtime.NewState(p), 4, domain.Play(), domain.JumpTo("B"))
	s, _ = tickN(s, 1, domain.Stop(), domain.Reset())

	assert.Equal(t, domain.StateIdle, s.Status)
	assert.Equal(t, "A", s.CueID)
	assert.Equal(t, domain.SamplePosition(2*beat), s.Position)
}

func TestTick_JumpWhileIdleSelects(t *testing.T) {
	p := compile(t, nil,
		cue("A", 0, 0, domain.PolicyFallThrough, ""),
		cue("B", 8, 0, domain.PolicyFallThrough, ""),
	)
	s, tl, results := runtime.Tick(runtime.NewState(p), []domain.Command{domain.JumpTo("B")}, block)
	require.NoError(t, results[0].Err)
	assert.Equal(t, domain.StateIdle, s.Status)
	assert.Equal(t, "B", s.CueID)
	assert.Equal(t, domain.SamplePosition(8*beat), s.Position)
	assert.Empty(t, tl.Spans)

	s, tl, _ = runtime.Tick(s, []domain.Command{domain.Play()}, block)
	assert.Equal(t, domain.StatePlaying, s.Status)
	assert.Equal(t, domain.SamplePosition(8*beat), tl.Spans[0].Start)
}

func TestTick_FatalReloadHalts(t *testing.T) {
	p := compile(t, nil, cue("A", 0, 0, domain.PolicyFallThrough, ""))
	other := compile(t, nil, cue("X", 0, 0, domain.PolicyFallThrough, ""))

	s, _ := tickN(runtime.NewState(p), 2, domain.Play())
	reload := domain.Command{Kind: domain.CommandReload, Payload: other}
	s, _, results := runtime.Tick(s, []domain.Command{reload}, block)

	require.Len(t, results, 1)
	assert.True(t, domain.IsFatal(results[0].Err))
	assert.Equal(t, domain.StateStopped, s.Status)
	assert.True(t, s.Halted)
	snap := s.Snapshot()
	assert.True(t, snap.Halted)
	assert.Contains(t, snap.Diagnostic, `"A"`)

	s, _, results = runtime.Tick(s, []domain.Command{domain.Reset()}, block)
	require.NoError(t, results[0].Err)
	assert.Equal(t, domain.StateIdle, s.Status)
	assert.False(t, s.Halted)
	assert.Equal(t, "X", s.CueID)
}

func TestTick_NudgeAffectsFutureOnly(t *testing.T) {
	p := compile(t, nil, cue("A", 0, 0, domain.PolicyFallThrough, ""))
	s, _ := tickN(runtime.NewState(p), 20, domain.Play())
	pos := s.Position

	s, _, results := runtime.Tick(s, []domain.Command{domain.TempoNudge(10)}, block)
	require.NoError(t, results[0].Err)

	assert.Equal(t, 120.0, s.Map.SegmentAt(pos).BPM)
	assert.Equal(t, 130.0, s.Map.SegmentAt(pos+1).BPM)
	assert.Equal(t, 130.0, s.Map.SegmentAt(s.Position+beat).BPM)
}

func TestTick_CueTempoOverrideStartsAfterPlayhead(t *testing.T) {
	a := cue("A", 0, 0, domain.PolicyFallThrough, "")
	a.Tempo = []domain.TempoOverride{{AtBeat: 0, BPM: 90}, {AtBeat: 4, BPM: 100, RampTo: 140, RampBeats: 4}}
	p := compile(t, nil, a)

	s, _, _ := runtime.Tick(runtime.NewState(p), []domain.Command{domain.Play()}, block)

	assert.Equal(t, 120.0, s.Map.TempoAt(0), "elapsed sample keeps its tempo")
	assert.Equal(t, 90.0, s.Map.TempoAt(1))
	at := s.Map.SampleAt(4)
	seg := s.Map.SegmentAt(at)
	assert.Equal(t, domain.SegmentRamp, seg.Kind)
	assert.Equal(t, 140.0, seg.EndBPM)
}

func TestTick_GoFollowsJumpPolicy(t *testing.T) {
	p := compile(t, nil,
		cue("A", 0, 0, domain.PolicyJump, "C"),
		cue("B", 4, 0, domain.PolicyFallThrough, ""),
		cue("C", 16, 0, domain.PolicyFallThrough, ""),
	)
	s, _ := tickN(runtime.NewState(p), 3, domain.Play())

	s, _, results := runtime.Tick(s, []domain.Command{domain.GoCue()}, block)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "C", s.CueID)
	assert.Equal(t, domain.SamplePosition(16*beat+block), s.Position)

	s, _, results = runtime.Tick(s, []domain.Command{{Kind: domain.CommandPrev}}, block)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "B", s.CueID)

	_, _, results = runtime.Tick(s, []domain.Command{{Kind: domain.CommandNext}, {Kind: domain.CommandNext}}, block)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, runtime.ErrNoAdjacentCue)
}

func TestTick_HoldAtNextBar(t *testing.T) {
	p := compile(t, nil, cue("A", 0, 0, domain.PolicyFallThrough, ""))
	s, _ := tickN(runtime.NewState(p), 10, domain.Play())

	s, _, results := runtime.Tick(s, []domain.Command{domain.HoldAtBar()}, block)
	require.NoError(t, results[0].Err)

	s = tickUntil(t, s, 1000, func(s runtime.State) bool { return s.Status == domain.StateVamping })
	assert.Equal(t, domain.SamplePosition(4*beat), s.Position)
}

func TestTick_ClipEvents(t *testing.T) {
	a := cue("A", 0, 0, domain.PolicyFallThrough, "")
	a.Clips = []domain.ClipCue{{Channel: 3, Clip: 7, AtBeat: 1}, {Channel: 3, Clip: 7, AtBeat: 3, Stop: true}}
	p := compile(t, nil, a)

	_, tls := tickN(runtime.NewState(p), 300, domain.Play())

	starts := eventsOf(tls, domain.EventClipStart)
	require.Len(t, starts, 1)
	assert.Equal(t, domain.SamplePosition(beat), starts[0].Position)
	assert.Equal(t, 3, starts[0].Channel)
	assert.Equal(t, 7, starts[0].Clip)
	assert.Len(t, eventsOf(tls, domain.EventClipStop), 1)
}

func TestTick_ChannelGain(t *testing.T) {
	p := compile(t, nil, cue("A", 0, 0, domain.PolicyFallThrough, ""))

	s, tl, results := runtime.Tick(runtime.NewState(p), []domain.Command{
		domain.ChannelGain(4, -6),
		domain.ChannelGain(30, 0),
	}, block)

	assert.NoError(t, results[0].Err)
	var rangeErr *runtime.ChannelRangeError
	assert.ErrorAs(t, results[1].Err, &rangeErr)
	assert.Equal(t, -6.0, s.Gains[4])
	assert.Equal(t, 1, tl.Count(domain.EventChannelGain))
}

func TestTick_PulsesAt24PPQN(t *testing.T) {
	p := compile(t, nil, cue("A", 0, 0, domain.PolicyFallThrough, ""))
	s := runtime.NewState(p)
	s.PulsesPerBeat = 24

	_, tls := tickN(s, beat/block+1, domain.Play())
	// One beat of samples (plus a partial block) holds pulses 0 through 24.
	assert.Len(t, eventsOf(tls, domain.EventPulse), 25)
}

func TestTick_ShowVampSurvivesCueTempoOverride(t *testing.T) {
	a := cue("A", 0, 0, domain.PolicyFallThrough, "")
	a.Tempo = []domain.TempoOverride{{AtBeat: 0, BPM: 90}}
	p := compile(t, []domain.TempoMark{
		{AtBeat: 0, BPM: 120},
		{AtBeat: 8, Vamp: true, Release: "x"},
		{AtBeat: 16, BPM: 60},
	}, a)

	s, _, results := runtime.Tick(runtime.NewState(p), []domain.Command{domain.Play()}, block)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 90.0, s.Map.TempoAt(s.Map.SampleAt(12)))
	assert.Equal(t, 60.0, s.Map.TempoAt(s.Map.SampleAt(17)), "later tempo mark survives")

	s = tickUntil(t, s, 2000, func(s runtime.State) bool { return s.Status == domain.StateVamping })
	assert.InDelta(t, 8.0, s.Map.BeatsAt(s.Position), 1e-4)

	held := s.Position
	s, _ = tickN(s, 5)
	assert.Equal(t, held, s.Position)
}

func TestTick_JumpOntoVampPointHolds(t *testing.T) {
	p := compile(t, []domain.TempoMark{
		{AtBeat: 0, BPM: 120},
		{AtBeat: 4, Vamp: true, Release: "door"},
	},
		cue("A", 0, 0, domain.PolicyFallThrough, ""),
		cue("B", 4, 0, domain.PolicyFallThrough, ""),
	)

	t.Run("While Playing", func(t *testing.T) {
		s, _ := tickN(runtime.NewState(p), 2, domain.Play())

		s, tls := tickN(s, 6, domain.JumpTo("B"))
		assert.Equal(t, domain.StateVamping, s.Status)
		assert.Equal(t, domain.SamplePosition(4*beat), s.Position)
		require.Len(t, eventsOf(tls, domain.EventVampEntered), 1)
		assert.Equal(t, "door", eventsOf(tls, domain.EventVampEntered)[0].Detail)
	})

	t.Run("Selected Then Played", func(t *testing.T) {
		s, _, results := runtime.Tick(runtime.NewState(p), []domain.Command{domain.JumpTo("B")}, block)
		require.NoError(t, results[0].Err)
		assert.Equal(t, domain.StateIdle, s.Status)

		s, _ = tickN(s, 6, domain.Play())
		assert.Equal(t, domain.StateVamping, s.Status)
		assert.Equal(t, domain.SamplePosition(4*beat), s.Position)
	})
}

func TestTick_NudgeLimitReported(t *testing.T) {
	p := compile(t, nil, cue("A", 0, 0, domain.PolicyFallThrough, ""))
	s, _ := tickN(runtime.NewState(p), 4, domain.Play())

	s, _, results := runtime.Tick(s, []domain.Command{domain.TempoNudge(-5000)}, block)
	require.NoError(t, results[0].Err)
	assert.Equal(t, domain.MinBPM, s.Map.TempoAt(s.Position+1))
	assert.Contains(t, s.Snapshot().Diagnostic, "limited")
}

func TestSnapshot_TimecodeIsAValue(t *testing.T) {
	p := compile(t, nil, cue("A", 0, 0, domain.PolicyFallThrough, ""))
	s, _, _ := runtime.Tick(runtime.NewState(p), []domain.Command{domain.Play()}, block)
	s = tickUntil(t, s, 1000, func(s runtime.State) bool { return s.Position >= 2*sampleRate })

	snap := s.Snapshot()
	assert.Equal(t, domain.Timecode{Seconds: 2, Rate: 25}, snap.Timecode)
	assert.Equal(t, "00:00:02:00", snap.Timecode.String())
}

func TestTick_JumpBeatInsideCue(t *testing.T) {
	a := cue("A", 0, 16, domain.PolicyFallThrough, "")
	a.Clips = []domain.ClipCue{
		{Channel: 3, Clip: 7, AtBeat: 1},
		{Channel: 4, Clip: 2, AtBeat: 1},
		{Channel: 4, AtBeat: 2, Stop: true},
	}
	p := compile(t, nil, a, cue("B", 16, 0, domain.PolicyFallThrough, ""))
	s, _ := tickN(runtime.NewState(p), 2, domain.Play())

	s, tl, results := runtime.Tick(s, []domain.Command{domain.JumpBeat(3)}, block)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "A", s.CueID)
	assert.Equal(t, domain.SamplePosition(3*beat+block), s.Position)

	changed := eventsOf([]domain.Timeline{tl}, domain.EventCueChanged)
	require.Len(t, changed, 1)
	assert.True(t, changed[0].Discontinuity)
	assert.Equal(t, "A", changed[0].PrevCueID)

	starts := eventsOf([]domain.Timeline{tl}, domain.EventClipStart)
	require.Len(t, starts, 1, "a stopped clip is not resumed")
	assert.Equal(t, 3, starts[0].Channel)
	assert.Equal(t, 2*beat, starts[0].ClipOffset)
}

func TestTick_SeekKeepsBeatPhase(t *testing.T) {
	p := compile(t, nil, cue("A", 0, 0, domain.PolicyFallThrough, ""))
	s, _ := tickN(runtime.NewState(p), 10, domain.Play())
	toNextBeat := beat - s.Position

	s, _, results := runtime.Tick(s, []domain.Command{domain.SeekBeat(4)}, block)
	require.NoError(t, results[0].Err)
	assert.Equal(t, domain.SamplePosition(4*beat)-toNextBeat+block, s.Position)
}

func TestTick_SeekRejections(t *testing.T) {
	p := compile(t, nil, cue("A", 0, 8, domain.PolicyFallThrough, ""), cue("B", 8, 0, domain.PolicyFallThrough, ""))

	_, _, results := runtime.Tick(runtime.NewState(p), []domain.Command{domain.SeekBeat(1)}, block)
	var invalid *domain.InvalidTransitionError
	assert.ErrorAs(t, results[0].Err, &invalid, "seek needs a running transport")

	s, _ := tickN(runtime.NewState(p), 1, domain.Play())
	_, _, results = runtime.Tick(s, []domain.Command{domain.JumpBeat(8), domain.JumpBeat(-1)}, block)
	var outside *runtime.BeatRangeError
	assert.ErrorAs(t, results[0].Err, &outside, "exit belongs to the next cue")
	assert.ErrorAs(t, results[1].Err, &outside)
}

func TestTick_LoadCueByIndex(t *testing.T) {
	p := compile(t, nil,
		cue("A", 0, 0, domain.PolicyFallThrough, ""),
		cue("B", 4, 0, domain.PolicyFallThrough, ""),
		cue("C", 16, 0, domain.PolicyFallThrough, ""),
	)

	s, _, results := runtime.Tick(runtime.NewState(p), []domain.Command{domain.LoadCue(1)}, block)
	require.NoError(t, results[0].Err)
	assert.Equal(t, domain.StateIdle, s.Status, "selects while idle")
	assert.Equal(t, "B", s.CueID)

	s, _ = tickN(s, 2, domain.Play())
	s, _, results = runtime.Tick(s, []domain.Command{domain.LoadCue(2), domain.LoadCue(3)}, block)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "C", s.CueID)
	assert.Equal(t, domain.SamplePosition(16*beat+block), s.Position)

	var idx *runtime.CueIndexError
	require.ErrorAs(t, results[1].Err, &idx)
	assert.Equal(t, 3, idx.Len)
}

func TestTick_ChannelMute(t *testing.T) {
	p := compile(t, nil, cue("A", 0, 0, domain.PolicyFallThrough, ""))

	s, tl, results := runtime.Tick(runtime.NewState(p), []domain.Command{
		domain.ChannelMute(4, true),
		domain.ChannelMute(-1, true),
	}, block)

	assert.NoError(t, results[0].Err)
	var rangeErr *runtime.ChannelRangeError
	assert.ErrorAs(t, results[1].Err, &rangeErr)
	assert.True(t, s.Muted[4])
	assert.Equal(t, 1, tl.Count(domain.EventChannelMute))

	s, _, _ = runtime.Tick(s, []domain.Command{domain.ChannelMute(4, false)}, block)
	assert.False(t, s.Muted[4])
}

func TestTick_Playrate(t *testing.T) {
	p := compile(t, nil, cue("A", 0, 0, domain.PolicyFallThrough, ""))
	s, _ := tickN(runtime.NewState(p), 4, domain.Play())

	s, tl, results := runtime.Tick(s, []domain.Command{domain.Playrate(150)}, block)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 1, tl.Count(domain.EventPlayrate))
	assert.Equal(t, 180.0, s.Map.TempoAt(s.Position))
	assert.Equal(t, 150, s.Snapshot().Playrate)

	s, _, results = runtime.Tick(s, []domain.Command{domain.Playrate(100), domain.Playrate(5)}, block)
	require.NoError(t, results[0].Err)
	assert.InDelta(t, 120.0, s.Map.TempoAt(s.Position), 1e-9)
	var rangeErr *runtime.PlayrateRangeError
	assert.ErrorAs(t, results[1].Err, &rangeErr)
}
