package clock_test

import (
	"testing"
	"time"

	"github.com/aretw0/cueline/internal/clock"
	"github.com/aretw0/cueline/internal/tempomap"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestClock_AdvanceAndReset(t *testing.T) {
	c := clock.New(0)
	c.Advance(256)
	c.Advance(-10)
	assert.Equal(t, domain.SamplePosition(256), c.Position())

	c.Reset(96000)
	assert.Equal(t, domain.SamplePosition(96000), c.Position())
}

func TestToMusical(t *testing.T) {
	m := tempomap.MustNew(48000, 4, domain.Constant(0, 120))

	tests := []struct {
		pos  domain.SamplePosition
		want domain.MusicalPosition
	}{
		{0, domain.MusicalPosition{Bar: 1, Beat: 1, Fraction: 0, Beats: 0}},
		{12000, domain.MusicalPosition{Bar: 1, Beat: 1, Fraction: 0.5, Beats: 0.5}},
		{72000, domain.MusicalPosition{Bar: 1, Beat: 4, Fraction: 0, Beats: 3}},
		{96000, domain.MusicalPosition{Bar: 2, Beat: 1, Fraction: 0, Beats: 4}},
		{-24000, domain.MusicalPosition{Bar: 0, Beat: 4, Fraction: 0, Beats: -1}},
	}

	for _, tt := range tests {
		got := clock.ToMusical(tt.pos, m)
		assert.Equal(t, tt.want, got, "pos %d", tt.pos)
		assert.Equal(t, got, clock.ToMusical(tt.pos, m), "deterministic at %d", tt.pos)
	}
	assert.Equal(t, "2.1.000", clock.ToMusical(96000, m).String())
}

func TestToWallTime(t *testing.T) {
	m := tempomap.MustNew(48000, 4, domain.Ramp(0, 60, 180, 48000))

	assert.Equal(t, time.Second, clock.ToWallTime(48000, m))
	assert.Equal(t, 1500*time.Millisecond, clock.ToWallTime(72000, m))
}

func TestToTimecode(t *testing.T) {
	start := domain.Timecode{Hours: 1, Rate: 25}

	tc := clock.ToTimecode(48000*61+1920*3, 48000, start)
	assert.Equal(t, "01:01:01:03", tc.String())

	wrapped := clock.ToTimecode(0, 48000, domain.Timecode{Hours: 23, Minutes: 59, Seconds: 59, Frames: 24, Rate: 25})
	assert.Equal(t, "23:59:59:24", wrapped.String())
	assert.Equal(t, "00:00:00:00", clock.ToTimecode(1920, 48000, wrapped).String())
}

func TestFrameBoundaries(t *testing.T) {
	assert.Equal(t, int64(0), clock.FrameIndex(1919, 48000, 25))
	assert.Equal(t, int64(1), clock.FrameIndex(1920, 48000, 25))
	assert.Equal(t, domain.SamplePosition(3840), clock.FrameStart(2, 48000, 25))

	// 44.1 kHz at 24 fps is 1837.5 samples per frame.
	assert.Equal(t, domain.SamplePosition(1838), clock.FrameStart(1, 44100, 24))
	assert.Equal(t, domain.SamplePosition(3675), clock.FrameStart(2, 44100, 24))
}

func TestParseTimecode(t *testing.T) {
	tc, err := domain.ParseTimecode("10:00:00:12", 25)
	assert.NoError(t, err)
	assert.Equal(t, int64(10*3600*25+12), tc.TotalFrames())

	_, err = domain.ParseTimecode("10:00:00:25", 25)
	assert.Error(t, err)
}
