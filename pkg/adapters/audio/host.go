// Package audio connects the engine to an audio device.
//
// A Host turns device callbacks into engine ticks: every callback is split into blocks
// of at most the configured size, each block is ticked, rendered to the 30 output
// channels and overlaid with LTC, and two of those channels are routed to the stereo
// device. Drivers (ebiten, or the paced null driver) pull samples from the Host.
package audio

import (
	"sync/atomic"

	"github.com/aretw0/cueline/internal/render"
	"github.com/aretw0/cueline/internal/timecode"
	"github.com/aretw0/cueline/pkg/domain"
)

// SampleSource fills interleaved stereo float32 frames.
type SampleSource interface {
	Process(dst []float32)
}

// Ticker advances the engine by one block and returns its timeline.
type Ticker interface {
	Tick(n int) *domain.Timeline
}

// Observer sees every timeline on the audio goroutine. It must not block.
type Observer func(tl *domain.Timeline)

// Host drives the engine from the audio callback.
type Host struct {
	engine   Ticker
	renderer *render.Renderer
	ltc      *timecode.Generator

	block      int
	left       int
	right      int
	ltcChannel int
	observers  []Observer

	channels [][]float32
	frames   atomic.Uint64
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithRouting picks the channels sent to the left and right device outputs.
func WithRouting(left, right int) HostOption {
	return func(h *Host) {
		if valid(left) && valid(right) {
			h.left, h.right = left, right
		}
	}
}

// WithLTCChannel sets the channel the timecode generator writes. A negative channel
// disables LTC output.
func WithLTCChannel(ch int) HostOption {
	return func(h *Host) {
		if ch < 0 || valid(ch) {
			h.ltcChannel = ch
		}
	}
}

// WithObserver adds a timeline observer.
func WithObserver(o Observer) HostOption {
	return func(h *Host) {
		if o != nil {
			h.observers = append(h.observers, o)
		}
	}
}

func valid(ch int) bool { return ch >= 0 && ch < domain.Channels }

// NewHost creates a host ticking engine in blocks of at most block samples. The click
// is routed left and LTC right unless configured otherwise.
func NewHost(engine Ticker, renderer *render.Renderer, ltc *timecode.Generator, block int, opts ...HostOption) *Host {
	if block <= 0 {
		block = 256
	}
	h := &Host{
		engine:     engine,
		renderer:   renderer,
		ltc:        ltc,
		block:      block,
		left:       renderer.ClickChannel(),
		right:      1,
		ltcChannel: 1,
	}
	if h.left == h.right {
		h.right = 0
	}
	for _, opt := range opts {
		opt(h)
	}
	if ltc == nil {
		h.ltcChannel = -1
	}
	h.channels = make([][]float32, domain.Channels)
	for i := range h.channels {
		h.channels[i] = make([]float32, block)
	}
	return h
}

// Process implements SampleSource. It runs on the device's audio goroutine.
func (h *Host) Process(dst []float32) {
	frames := len(dst) / 2
	for done := 0; done < frames; {
		n := min(h.block, frames-done)
		tl := h.engine.Tick(n)
		h.renderer.Render(tl, h.channels)
		if h.ltcChannel >= 0 {
			h.ltc.Generate(tl, h.channels[h.ltcChannel][:n])
		}
		for _, o := range h.observers {
			o(tl)
		}

		l, r := h.channels[h.left], h.channels[h.right]
		out := dst[done*2 : (done+n)*2]
		for i := 0; i < n; i++ {
			out[2*i] = l[i]
			out[2*i+1] = r[i]
		}
		done += n
	}
	h.frames.Add(uint64(frames))
}

// Channel returns the last rendered block of channel ch. Audio goroutine only.
func (h *Host) Channel(ch int) []float32 { return h.channels[ch] }

// Frames returns how many frames the host has produced.
func (h *Host) Frames() uint64 { return h.frames.Load() }

// Block returns the maximum tick size.
func (h *Host) Block() int { return h.block }
