// Package render turns tick timelines into 30 channels of audio: metronome clicks,
// preloaded clip playback and per-channel gain.
//
// Render runs on the audio callback. It does not allocate, lock or log; failures are
// counted and read back by the host.
package render

import (
	"math"
	"sync/atomic"

	"github.com/aretw0/cueline/pkg/domain"
)

// Click synthesis constants.
const (
	AccentHz       = 2000.0
	NormalHz       = 1000.0
	ClickMillis    = 4
	ClickAmplitude = 0.1
)

type voice struct {
	buf    []float32
	pos    int
	active bool
}

// start plays buf from offset samples in.
func (v *voice) start(buf []float32, offset int) {
	v.buf = buf
	v.pos = max(offset, 0)
	v.active = v.pos < len(buf)
}

func (v *voice) cut() {
	v.active = false
	v.buf = nil
	v.pos = 0
}

// mix adds the voice into dst and advances it by at most len(dst) samples.
func (v *voice) mix(dst []float32) {
	if !v.active {
		return
	}
	k := copyAdd(dst, v.buf[v.pos:])
	v.pos += k
	if v.pos >= len(v.buf) {
		v.cut()
	}
}

func copyAdd(dst, src []float32) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] += src[i]
	}
	return n
}

// Renderer holds the voices that carry audio across blocks.
type Renderer struct {
	clickChannel int
	clicks       [2][]float32 // accent, normal
	click        voice
	clips        *Bank
	voices       [domain.Channels]voice
	gains        [domain.Channels]float32
	muted        [domain.Channels]bool
	// offRate silences clip channels while the playback rate is not 100%.
	offRate bool

	missing atomic.Uint64
	panics  atomic.Uint64
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClickChannel routes the metronome to ch.
func WithClickChannel(ch int) Option {
	return func(r *Renderer) {
		if ch >= 0 && ch < domain.Channels {
			r.clickChannel = ch
		}
	}
}

// WithBank sets the clip bank.
func WithBank(b *Bank) Option {
	return func(r *Renderer) {
		if b != nil {
			r.clips = b
		}
	}
}

// New returns a renderer for sampleRate with the click on channel 0 and unity gains.
func New(sampleRate int, opts ...Option) *Renderer {
	r := &Renderer{clips: NewBank()}
	r.clicks[0] = Click(sampleRate, AccentHz)
	r.clicks[1] = Click(sampleRate, NormalHz)
	for i := range r.gains {
		r.gains[i] = 1
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Click synthesises one metronome click at hz.
func Click(sampleRate int, hz float64) []float32 {
	n := sampleRate * ClickMillis / 1000
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = float32(math.Sin(2*math.Pi*hz*float64(i)/float64(sampleRate)) * ClickAmplitude)
	}
	return buf
}

// Gain converts decibels to a linear factor.
func Gain(db float64) float32 {
	return float32(math.Pow(10, db/20))
}

// Render writes tl.Block samples into each of out's channels. Channels beyond
// domain.Channels are ignored; a channel buffer shorter than the block is left alone.
func (r *Renderer) Render(tl *domain.Timeline, out [][]float32) {
	n := tl.Block
	defer func() {
		if rec := recover(); rec != nil {
			r.panics.Add(1)
			r.silence()
			for _, ch := range out {
				clear(ch[:min(n, len(ch))])
			}
		}
	}()

	for _, ch := range out {
		clear(ch[:min(n, len(ch))])
	}

	cursor := 0
	for i := range tl.Events {
		ev := &tl.Events[i]
		if ev.Offset > cursor {
			r.mix(out, cursor, min(ev.Offset, n))
			cursor = min(ev.Offset, n)
		}
		r.handle(ev)
	}
	if cursor < n {
		r.mix(out, cursor, n)
	}
}

func (r *Renderer) handle(ev *domain.Event) {
	switch ev.Kind {
	case domain.EventCueChanged, domain.EventStateChanged:
		if ev.Discontinuity {
			r.silence()
		}
	case domain.EventBeat:
		if ev.Downbeat {
			r.click.start(r.clicks[0], 0)
		} else {
			r.click.start(r.clicks[1], 0)
		}
	case domain.EventClipStart:
		if ev.Channel < 0 || ev.Channel >= domain.Channels {
			return
		}
		buf, ok := r.clips.Get(ev.Channel, ev.Clip)
		if !ok {
			r.missing.Add(1)
			r.voices[ev.Channel].cut()
			return
		}
		r.voices[ev.Channel].start(buf, ev.ClipOffset)
	case domain.EventClipStop:
		if ev.Channel >= 0 && ev.Channel < domain.Channels {
			r.voices[ev.Channel].cut()
		}
	case domain.EventChannelGain:
		if ev.Channel >= 0 && ev.Channel < domain.Channels {
			r.gains[ev.Channel] = Gain(ev.GainDB)
		}
	case domain.EventChannelMute:
		if ev.Channel >= 0 && ev.Channel < domain.Channels {
			r.muted[ev.Channel] = ev.Mute
		}
	case domain.EventPlayrate:
		r.offRate = ev.Percent != 100
	}
}

// mix renders the voices into out[from:to].
func (r *Renderer) mix(out [][]float32, from, to int) {
	for ch := 0; ch < len(out) && ch < domain.Channels; ch++ {
		buf := out[ch]
		if len(buf) < to {
			continue
		}
		dst := buf[from:to]
		if ch == r.clickChannel {
			r.click.mix(dst)
		}
		r.voices[ch].mix(dst)
		g := r.gains[ch]
		if r.muted[ch] || (r.offRate && ch != r.clickChannel) {
			g = 0
		}
		if g != 1 {
			for i := range dst {
				dst[i] *= g
			}
		}
	}
}

func (r *Renderer) silence() {
	r.click.cut()
	for i := range r.voices {
		r.voices[i].cut()
	}
}

// Missing returns how many clip starts named a clip that is not loaded.
func (r *Renderer) Missing() uint64 { return r.missing.Load() }

// Panics returns how many blocks were replaced by silence after a recovered panic.
func (r *Renderer) Panics() uint64 { return r.panics.Load() }

// ClickChannel returns the channel carrying the metronome.
func (r *Renderer) ClickChannel() int { return r.clickChannel }
