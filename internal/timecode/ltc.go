// Package timecode generates SMPTE linear timecode (LTC) as an audio signal.
//
// Frame starts, labels and resync phase come from the timeline's timecode_frame events,
// so the generator itself only encodes: it turns each frame's 80 bits into a
// biphase-mark waveform spread over the samples of that frame.
package timecode

import (
	"math"

	"github.com/aretw0/cueline/pkg/domain"
)

// Bit positions inside an LTC frame.
const (
	bitDropFrame     = 10
	bitColorFrame    = 11
	bitParity25      = 59
	bitParity30      = 27
	bitExternalClock = 58
	bitSync          = 64
)

// SyncWord is bits 64..79 read least significant first.
const SyncWord uint16 = 0xBFFC

// Frame is an encoded 80-bit LTC frame. Bit i is bits>>i&1 in lo for i < 64, hi holds
// bits 64..79.
type Frame struct {
	lo uint64
	hi uint16
}

// Bit reports bit i of the frame.
func (f Frame) Bit(i int) bool {
	if i < 64 {
		return f.lo>>uint(i)&1 == 1
	}
	return f.hi>>uint(i-64)&1 == 1
}

// Ones counts the set bits.
func (f Frame) Ones() int {
	n := 0
	for i := 0; i < 80; i++ {
		if f.Bit(i) {
			n++
		}
	}
	return n
}

// Flags are the optional LTC flag bits.
type Flags struct {
	DropFrame     bool
	ColorFrame    bool
	ExternalClock bool
}

// Encode builds the frame for tc. The parity bit is chosen so the frame holds an even
// number of ones, which returns the biphase level to where it started.
func Encode(tc domain.Timecode, flags Flags) Frame {
	var f Frame
	put := func(shift int, v int) { f.lo |= uint64(v) << uint(shift) }

	put(0, tc.Frames%10)
	put(8, tc.Frames/10)
	put(16, tc.Seconds%10)
	put(24, tc.Seconds/10)
	put(32, tc.Minutes%10)
	put(40, tc.Minutes/10)
	put(48, tc.Hours%10)
	put(56, tc.Hours/10)

	if flags.DropFrame {
		put(bitDropFrame, 1)
	}
	if flags.ColorFrame {
		put(bitColorFrame, 1)
	}
	if flags.ExternalClock {
		put(bitExternalClock, 1)
	}
	f.hi = SyncWord

	if f.Ones()%2 == 1 {
		if tc.Rate == 25 {
			put(bitParity25, 1)
		} else {
			put(bitParity30, 1)
		}
	}
	return f
}

// Decode reads the label back out of a frame.
func Decode(f Frame, rate int) domain.Timecode {
	get := func(shift, width int) int { return int(f.lo>>uint(shift)) & (1<<uint(width) - 1) }
	return domain.Timecode{
		Frames:  get(8, 2)*10 + get(0, 4),
		Seconds: get(24, 3)*10 + get(16, 4),
		Minutes: get(40, 3)*10 + get(32, 4),
		Hours:   get(56, 2)*10 + get(48, 4),
		Rate:    rate,
	}
}

// Generator writes the LTC waveform for successive timelines.
type Generator struct {
	sampleRate int
	rate       int
	amplitude  float32
	flags      Flags

	active  bool
	start   float32 // level before the first transition of the current frame
	level   float32
	toggles [160]int
	count   int
	next    int
	pos     int
}

// Option configures a Generator.
type Option func(*Generator)

// WithAmplitude sets the peak level of the square wave.
func WithAmplitude(a float32) Option {
	return func(g *Generator) { g.amplitude = a }
}

// WithFlags sets the flag bits written into every frame.
func WithFlags(f Flags) Option {
	return func(g *Generator) { g.flags = f }
}

// NewGenerator returns a silent generator for rate frames per second.
func NewGenerator(sampleRate, rate int, opts ...Option) *Generator {
	if rate == 0 {
		rate = domain.DefaultTimecodeRate
	}
	g := &Generator{sampleRate: sampleRate, rate: rate, amplitude: 0.5, start: 1, level: 1}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate writes tl.Block samples of LTC into out. Output stays silent until the first
// frame event and after the transport stops.
func (g *Generator) Generate(tl *domain.Timeline, out []float32) {
	n := min(tl.Block, len(out))
	cursor := 0
	for i := range tl.Events {
		ev := &tl.Events[i]
		switch ev.Kind {
		case domain.EventTimecodeFrame:
		case domain.EventStateChanged:
			if ev.To.Running() {
				continue
			}
		default:
			continue
		}
		off := min(ev.Offset, n)
		g.fill(out[cursor:off])
		cursor = off

		if ev.Kind == domain.EventStateChanged {
			g.active = false
			continue
		}
		g.load(ev)
	}
	g.fill(out[cursor:n])
}

// load starts a frame. A resync restarts from a fixed level and skips ahead by Phase.
func (g *Generator) load(ev *domain.Event) {
	if ev.Discontinuity || !g.active {
		g.start = 1
	} else {
		g.start = g.level
	}
	g.active = true
	g.level = g.start

	tc := ev.Timecode
	tc.Rate = g.rate
	g.plan(Encode(tc, g.flags))
	g.pos = 0
	for g.pos < ev.Phase {
		g.step()
	}
}

// plan lays out the transitions of one frame. Bit edges are rounded to whole samples so
// the frame length need not divide by 80.
func (g *Generator) plan(f Frame) {
	spb := float64(g.sampleRate) / float64(g.rate) / 80
	g.count = 0
	for i := 0; i < 80; i++ {
		g.toggles[g.count] = int(math.Round(float64(i) * spb))
		g.count++
		if f.Bit(i) {
			g.toggles[g.count] = int(math.Round((float64(i) + 0.5) * spb))
			g.count++
		}
	}
	g.next = 0
}

// step produces one sample of the current frame.
func (g *Generator) step() float32 {
	for g.next < g.count && g.toggles[g.next] <= g.pos {
		g.level = -g.level
		g.next++
	}
	g.pos++
	return g.level
}

func (g *Generator) fill(dst []float32) {
	if !g.active {
		clear(dst)
		return
	}
	for i := range dst {
		dst[i] = g.step() * g.amplitude
	}
}

// Rate returns the frame rate.
func (g *Generator) Rate() int { return g.rate }
