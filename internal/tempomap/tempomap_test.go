package tempomap_test

import (
	"testing"

	"github.com/aretw0/cueline/internal/tempomap"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sr = 48000

func TestNew_Validation(t *testing.T) {
	_, err := tempomap.New(sr, 4, domain.Constant(100, 120))
	assert.ErrorIs(t, err, tempomap.ErrInvalidSegment, "first segment must start at 0")

	_, err = tempomap.New(sr, 4, domain.Constant(0, 120), domain.Constant(0, 90))
	assert.ErrorIs(t, err, tempomap.ErrInvalidSegment, "starts must increase")

	_, err = tempomap.New(sr, 4, domain.Constant(0, 2000))
	assert.ErrorIs(t, err, tempomap.ErrInvalidSegment, "tempo out of range")

	_, err = tempomap.New(sr, 4, domain.Ramp(0, 100, 120, 0))
	assert.ErrorIs(t, err, tempomap.ErrInvalidSegment, "ramp needs a length")

	m, err := tempomap.New(sr, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTempo, m.TempoAt(0))
	assert.Equal(t, domain.DefaultBeatsPerBar, m.BeatsPerBar())
}

func TestConstantTempo(t *testing.T) {
	m := tempomap.MustNew(sr, 4, domain.Constant(0, 120))

	assert.Equal(t, 1.0, m.BeatsAt(24000))
	assert.Equal(t, 0.5, m.BeatsAt(12000))
	assert.Equal(t, domain.SamplePosition(24000), m.SampleAt(1))
	assert.Equal(t, domain.SamplePosition(480000), m.SampleAt(20))
}

func TestRamp_IntegratesExactly(t *testing.T) {
	// 60 -> 120 bpm over two seconds covers (60+120)/2 * 2/60 = 3 beats.
	m := tempomap.MustNew(sr, 4,
		domain.Ramp(0, 60, 120, 96000),
	)

	assert.InDelta(t, 3.0, m.BeatsAt(96000), 1e-12)
	assert.Equal(t, domain.SamplePosition(96000), m.SampleAt(3))
	assert.InDelta(t, 90.0, m.TempoAt(48000), 1e-9)
	assert.Equal(t, 120.0, m.TempoAt(200000), "ramp holds its end tempo")

	// After the ramp, tempo holds at 120: one more beat every 24000 samples.
	assert.InDelta(t, 4.0, m.BeatsAt(120000), 1e-12)

	for _, p := range []domain.SamplePosition{1, 777, 12345, 48000, 95999, 96000, 150001} {
		assert.InDelta(t, float64(p), m.TimeAt(m.BeatsAt(p)), 1e-6, "inverse at %d", p)
	}
}

func TestRamp_Decelerating(t *testing.T) {
	m := tempomap.MustNew(sr, 4, domain.Ramp(0, 120, 60, 96000))

	assert.InDelta(t, 3.0, m.BeatsAt(96000), 1e-12)
	for _, b := range []float64{0.25, 1, 2.5, 3, 5} {
		assert.InDelta(t, b, m.BeatsAt(domain.SamplePosition(m.TimeAt(b))), 1e-4)
	}
}

func TestSegmentAt_HalfOpen(t *testing.T) {
	m := tempomap.MustNew(sr, 4,
		domain.Constant(0, 120),
		domain.Constant(48000, 90),
	)

	assert.Equal(t, 120.0, m.SegmentAt(47999).BPM)
	assert.Equal(t, 90.0, m.SegmentAt(48000).BPM, "segment starting at the query wins")
	assert.Equal(t, 90.0, m.SegmentAt(1<<40).BPM, "last segment extends forever")
}

func TestBeatsAt_DependsOnlyOnThePast(t *testing.T) {
	m := tempomap.MustNew(sr, 4,
		domain.Constant(0, 120),
		domain.Ramp(48000, 120, 150, 48000),
	).WithPlayhead(60000)

	edited, err := m.ReplaceAfter(70000, []domain.TempoSegment{domain.Constant(70000, 40)})
	require.NoError(t, err)

	for _, p := range []domain.SamplePosition{0, 1000, 48000, 59999, 60000, 70000} {
		first := m.BeatsAt(p)
		assert.Equal(t, first, m.BeatsAt(p), "repeatable at %d", p)
		assert.Equal(t, first, edited.BeatsAt(p), "unaffected by later edits at %d", p)
	}
}

func TestReplaceAfter_PastMutation(t *testing.T) {
	m := tempomap.MustNew(sr, 4, domain.Constant(0, 120)).WithPlayhead(10000)
	before := m.Segments()

	cases := []struct {
		name string
		pos  domain.SamplePosition
		segs []domain.TempoSegment
	}{
		{"At Playhead", 10000, []domain.TempoSegment{domain.Constant(20000, 100)}},
		{"Before Playhead", 500, nil},
		{"Segment Before Playhead", 20000, []domain.TempoSegment{domain.Constant(9000, 100)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := m.ReplaceAfter(tc.pos, tc.segs)
			require.ErrorIs(t, err, domain.ErrPastMutation)

			var pm *domain.PastMutationError
			require.ErrorAs(t, err, &pm)
			assert.Equal(t, domain.SamplePosition(10000), pm.Playhead)

			assert.Equal(t, before, got.Segments())
			assert.Equal(t, before, m.Segments())
			assert.Equal(t, m.Version(), got.Version())
		})
	}
}

func TestReplaceAfter_Future(t *testing.T) {
	m := tempomap.MustNew(sr, 4,
		domain.Constant(0, 120),
		domain.Constant(96000, 60),
	).WithPlayhead(1000)

	next, err := m.ReplaceAfter(48000, []domain.TempoSegment{domain.Constant(72000, 100)})
	require.NoError(t, err)

	assert.Equal(t, 120.0, next.TempoAt(71999), "containing segment runs until the first new start")
	assert.Equal(t, 100.0, next.TempoAt(96000), "segments after pos were dropped")
	assert.Greater(t, next.Version(), m.Version())
	assert.Equal(t, 60.0, m.TempoAt(96000), "original map untouched")
}

func TestInsertVamp(t *testing.T) {
	m := tempomap.MustNew(sr, 4, domain.Ramp(0, 60, 120, 96000))

	v, err := m.InsertVamp(48000, "release")
	require.NoError(t, err)

	seg, ok := v.IsVamp(48000)
	require.True(t, ok)
	assert.Equal(t, "release", seg.Release)
	assert.InDelta(t, 90.0, seg.BPM, 1e-9, "ramp continues across the split")

	for _, p := range []domain.SamplePosition{0, 24000, 48000, 60000, 96000, 130000} {
		assert.InDelta(t, m.BeatsAt(p), v.BeatsAt(p), 1e-9, "beats unchanged at %d", p)
	}

	_, err = v.WithPlayhead(48000).InsertVamp(48000, "")
	assert.ErrorIs(t, err, domain.ErrPastMutation)
}

func TestOverride_KeepsLaterMarksOnTheirBeats(t *testing.T) {
	m := tempomap.MustNew(sr, 4,
		domain.Constant(0, 120),
		domain.Constant(384000, 60),
	)
	m, err := m.InsertVamp(192000, "go")
	require.NoError(t, err)
	m = m.WithPlayhead(0)

	o, err := m.Override(domain.Constant(24000, 90))
	require.NoError(t, err)

	assert.Equal(t, 120.0, o.TempoAt(23999))
	assert.Equal(t, 90.0, o.TempoAt(24000))

	// 24000 samples for the first beat, then 32000 per beat at 90 bpm.
	v, ok := o.IsVamp(248000)
	require.True(t, ok, "vamp stays on beat 8")
	assert.Equal(t, "go", v.Release)
	assert.Equal(t, 90.0, v.BPM, "vamp split follows the override")
	_, ok = o.IsVamp(192000)
	assert.False(t, ok)

	assert.Equal(t, domain.SamplePosition(504000), o.SampleAt(16))
	assert.Equal(t, 60.0, o.TempoAt(504000), "later tempo mark survives")
	assert.Equal(t, 90.0, o.TempoAt(503999))
	assert.Greater(t, o.Version(), m.Version())

	_, err = m.WithPlayhead(30000).Override(domain.Constant(24000, 90))
	assert.ErrorIs(t, err, domain.ErrPastMutation)
}

func TestNextVamp(t *testing.T) {
	m := tempomap.MustNew(sr, 4, domain.Constant(0, 120))
	m, err := m.InsertVamp(24000, "")
	require.NoError(t, err)

	_, ok := m.NextVamp(0, 23999)
	assert.False(t, ok)

	s, ok := m.NextVamp(0, 24000)
	require.True(t, ok, "until is inclusive")
	assert.Equal(t, domain.SamplePosition(24000), s.Start)

	_, ok = m.NextVamp(24000, 100000)
	assert.False(t, ok, "after is exclusive")
}

func TestNudge_FutureOnly(t *testing.T) {
	m := tempomap.MustNew(sr, 4,
		domain.Constant(0, 120),
		domain.Constant(96000, 100),
	).WithPlayhead(48000)

	n, limited := m.Nudge(10)
	assert.False(t, limited)

	assert.Equal(t, 120.0, n.SegmentAt(48000).BPM, "past position keeps its tempo")
	assert.Equal(t, 130.0, n.SegmentAt(48001).BPM)
	assert.Equal(t, 110.0, n.SegmentAt(96000).BPM)
	assert.Equal(t, m.BeatsAt(48000), n.BeatsAt(48000))

	down, limited := m.Nudge(-5000)
	assert.True(t, limited)
	assert.Equal(t, domain.MinBPM, down.TempoAt(60000), "clamped to the legal range")
}

func TestScale(t *testing.T) {
	m := tempomap.MustNew(sr, 4,
		domain.Constant(0, 120),
		domain.Ramp(96000, 100, 140, 48000),
	).WithPlayhead(48000)

	fast, limited := m.Scale(1.5)
	assert.False(t, limited)
	assert.Equal(t, 120.0, fast.TempoAt(48000))
	assert.Equal(t, 180.0, fast.TempoAt(48001))
	assert.Equal(t, 210.0, fast.SegmentAt(96000).EndBPM)

	back, _ := fast.Scale(1 / 1.5)
	assert.InDelta(t, 120.0, back.TempoAt(48001), 1e-9)
	assert.InDelta(t, 140.0, back.SegmentAt(96000).EndBPM, 1e-9)

	_, limited = m.Scale(100)
	assert.True(t, limited)
}

func TestGridPoints(t *testing.T) {
	m := tempomap.MustNew(sr, 4, domain.Constant(0, 120))

	var at []domain.SamplePosition
	var idx []int64
	m.GridPoints(0, 480000, 1, func(i int64, p domain.SamplePosition) {
		idx = append(idx, i)
		at = append(at, p)
	})
	require.Len(t, at, 20)
	for n := range at {
		assert.Equal(t, int64(n), idx[n])
		assert.Equal(t, domain.SamplePosition(24000*n), at[n])
	}

	var pulses int
	m.GridPoints(24000, 48000, 24, func(int64, domain.SamplePosition) { pulses++ })
	assert.Equal(t, 24, pulses)
}

func TestSampleAt_RoundsHalfUp(t *testing.T) {
	// At 3 Hz and 120 bpm a beat lasts 1.5 samples, so odd beats fall on half samples.
	m := tempomap.MustNew(3, 4, domain.Constant(0, 120))

	assert.Equal(t, 1.5, m.TimeAt(1))
	assert.Equal(t, domain.SamplePosition(2), m.SampleAt(1))
	assert.Equal(t, domain.SamplePosition(3), m.SampleAt(2))
	assert.Equal(t, domain.SamplePosition(5), m.SampleAt(3))
}

func TestRampLength(t *testing.T) {
	m := tempomap.MustNew(sr, 4, domain.Constant(0, 60))
	assert.Equal(t, int64(96000), m.RampLength(60, 120, 3))
	assert.Zero(t, m.RampLength(60, 120, 0))
}
