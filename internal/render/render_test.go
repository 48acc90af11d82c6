package render_test

import (
	"testing"

	"github.com/aretw0/cueline/internal/render"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sr = 48000

func buffers(n int) [][]float32 {
	out := make([][]float32, domain.Channels)
	for i := range out {
		out[i] = make([]float32, n)
	}
	return out
}

func timeline(block int, events ...domain.Event) *domain.Timeline {
	return &domain.Timeline{Block: block, Events: events}
}

func TestClick(t *testing.T) {
	c := render.Click(sr, render.AccentHz)
	require.Len(t, c, 192, "4 ms at 48 kHz")
	assert.Equal(t, float32(0), c[0])
	// A quarter period of 2 kHz is 6 samples: the peak.
	assert.InDelta(t, 0.1, c[6], 1e-6)

	n := render.Click(sr, render.NormalHz)
	assert.InDelta(t, 0.1, n[12], 1e-6)
}

func TestGain(t *testing.T) {
	assert.InDelta(t, 1.0, render.Gain(0), 1e-6)
	assert.InDelta(t, 0.5012, render.Gain(-6), 1e-4)
	assert.InDelta(t, 0.1, render.Gain(-20), 1e-6)
}

func TestRender_ClickAtOffsetAndAcrossBlocks(t *testing.T) {
	r := render.New(sr)
	out := buffers(256)
	accent := render.Click(sr, render.AccentHz)

	r.Render(timeline(256, domain.Event{Kind: domain.EventBeat, Offset: 200, Downbeat: true}), out)

	for i := 0; i < 200; i++ {
		require.Equal(t, float32(0), out[0][i], "silent before the beat")
	}
	for i := 200; i < 256; i++ {
		assert.Equal(t, accent[i-200], out[0][i])
	}
	assert.Equal(t, make([]float32, 256), out[1], "other channels silent")

	// The remaining 136 samples spill into the next block.
	r.Render(timeline(256), out)
	for i := 0; i < 136; i++ {
		assert.Equal(t, accent[56+i], out[0][i])
	}
	assert.Equal(t, float32(0), out[0][136])
}

func TestRender_ClickChannelAndGain(t *testing.T) {
	r := render.New(sr, render.WithClickChannel(5))
	out := buffers(64)
	normal := render.Click(sr, render.NormalHz)

	r.Render(timeline(64,
		domain.Event{Kind: domain.EventChannelGain, Channel: 5, GainDB: -20},
		domain.Event{Kind: domain.EventBeat, Offset: 0},
	), out)

	assert.Equal(t, 5, r.ClickChannel())
	assert.Equal(t, make([]float32, 64), out[0])
	assert.InDelta(t, normal[12]*0.1, out[5][12], 1e-6)
}

func TestRender_Clips(t *testing.T) {
	bank := render.NewBank()
	bank.Put(3, 7, []float32{0.5, 0.5, 0.5, 0.5})
	r := render.New(sr, render.WithBank(bank))
	out := buffers(8)

	r.Render(timeline(8,
		domain.Event{Kind: domain.EventClipStart, Offset: 2, Channel: 3, Clip: 7},
		domain.Event{Kind: domain.EventClipStart, Offset: 2, Channel: 4, Clip: 1},
	), out)

	assert.Equal(t, []float32{0, 0, 0.5, 0.5, 0.5, 0.5, 0, 0}, out[3])
	assert.Equal(t, make([]float32, 8), out[4], "missing clip renders silence")
	assert.Equal(t, uint64(1), r.Missing())
}

func TestRender_ClipStop(t *testing.T) {
	bank := render.NewBank()
	bank.Put(1, 1, []float32{1, 1, 1, 1, 1, 1})
	r := render.New(sr, render.WithBank(bank))
	out := buffers(6)

	r.Render(timeline(6,
		domain.Event{Kind: domain.EventClipStart, Offset: 0, Channel: 1, Clip: 1},
		domain.Event{Kind: domain.EventClipStop, Offset: 3, Channel: 1},
	), out)
	assert.Equal(t, []float32{1, 1, 1, 0, 0, 0}, out[1])
}

func TestRender_DiscontinuityCutsVoices(t *testing.T) {
	bank := render.NewBank()
	bank.Put(2, 0, []float32{1, 1, 1, 1, 1, 1, 1, 1})
	r := render.New(sr, render.WithBank(bank))
	out := buffers(4)

	r.Render(timeline(4, domain.Event{Kind: domain.EventClipStart, Channel: 2}), out)
	assert.Equal(t, []float32{1, 1, 1, 1}, out[2])

	r.Render(timeline(4, domain.Event{Kind: domain.EventCueChanged, Offset: 1, Discontinuity: true}), out)
	assert.Equal(t, []float32{1, 0, 0, 0}, out[2])
}

func TestRender_ToleratesShortOutput(t *testing.T) {
	r := render.New(sr)
	out := [][]float32{make([]float32, 16)}

	assert.NotPanics(t, func() {
		r.Render(timeline(16, domain.Event{Kind: domain.EventBeat, Downbeat: true}), out)
	})
	assert.Equal(t, uint64(0), r.Panics())
}

func TestRender_ClipResumesPartWay(t *testing.T) {
	bank := render.NewBank()
	bank.Put(2, 4, []float32{1, 2, 3, 4, 5, 6})
	r := render.New(sr, render.WithBank(bank))
	out := buffers(4)

	r.Render(timeline(4,
		domain.Event{Kind: domain.EventCueChanged, Discontinuity: true},
		domain.Event{Kind: domain.EventClipStart, Channel: 2, Clip: 4, ClipOffset: 3},
	), out)
	assert.Equal(t, []float32{4, 5, 6, 0}, out[2])

	r.Render(timeline(4, domain.Event{Kind: domain.EventClipStart, Channel: 2, Clip: 4, ClipOffset: 10}), out)
	assert.Equal(t, make([]float32, 4), out[2], "offset past the end plays nothing")
}

func TestRender_MuteKeepsVoiceRunning(t *testing.T) {
	bank := render.NewBank()
	bank.Put(1, 1, []float32{1, 2, 3, 4, 5, 6, 7, 8})
	r := render.New(sr, render.WithBank(bank))
	out := buffers(4)

	r.Render(timeline(4,
		domain.Event{Kind: domain.EventClipStart, Channel: 1, Clip: 1},
		domain.Event{Kind: domain.EventChannelMute, Offset: 2, Channel: 1, Mute: true},
	), out)
	assert.Equal(t, []float32{1, 2, 0, 0}, out[1])

	r.Render(timeline(4, domain.Event{Kind: domain.EventChannelMute, Offset: 1, Channel: 1}), out)
	assert.Equal(t, []float32{0, 6, 7, 8}, out[1], "unmuting resumes where the clip is now")
}

func TestRender_PlayrateSilencesClipsNotClick(t *testing.T) {
	bank := render.NewBank()
	bank.Put(3, 0, []float32{1, 1, 1, 1})
	r := render.New(sr, render.WithBank(bank))
	out := buffers(4)
	normal := render.Click(sr, render.NormalHz)

	r.Render(timeline(4,
		domain.Event{Kind: domain.EventPlayrate, Percent: 150},
		domain.Event{Kind: domain.EventBeat},
		domain.Event{Kind: domain.EventClipStart, Channel: 3},
	), out)
	assert.Equal(t, make([]float32, 4), out[3])
	assert.Equal(t, normal[:4], out[0])

	r.Render(timeline(4, domain.Event{Kind: domain.EventPlayrate, Percent: 100}), out)
	assert.Equal(t, make([]float32, 4), out[3], "the clip kept running while silenced")
}
