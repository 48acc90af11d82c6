// Package midi sends the engine's transport to external gear as MIDI clock.
//
// The Clock observes timelines on the audio goroutine and only queues messages there;
// a separate sender goroutine writes them to the output port.
package midi

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/aretw0/cueline/internal/logging"
	"github.com/aretw0/cueline/pkg/domain"
	gomidi "gitlab.com/gomidi/midi/v2"
)

// PulsesPerBeat is the MIDI clock resolution. The engine must emit pulses at this rate.
const PulsesPerBeat = 24

// DefaultBuffer is the number of queued messages before the clock starts dropping.
const DefaultBuffer = 1024

// SendFunc writes one message to a port.
type SendFunc func(msg gomidi.Message) error

// BeatsFunc converts a show position to beats. It is called on the audio goroutine.
type BeatsFunc func(pos domain.SamplePosition) float64

// Clock translates pulse and transport events into MIDI realtime messages.
type Clock struct {
	send   SendFunc
	beats  BeatsFunc
	logger *slog.Logger

	out     chan gomidi.Message
	dropped atomic.Uint64
	sent    atomic.Uint64
}

// Option configures a Clock.
type Option func(*Clock)

// WithLogger sets the logger used by the sender goroutine.
func WithLogger(l *slog.Logger) Option {
	return func(c *Clock) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBuffer sets the message buffer size.
func WithBuffer(n int) Option {
	return func(c *Clock) {
		if n > 0 {
			c.out = make(chan gomidi.Message, n)
		}
	}
}

// NewClock creates a clock writing through send. beats is used to compute song
// positions; without it relocations restart from the top.
func NewClock(send SendFunc, beats BeatsFunc, opts ...Option) *Clock {
	c := &Clock{
		send:   send,
		beats:  beats,
		logger: logging.NewNop(),
		out:    make(chan gomidi.Message, DefaultBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Observe queues the messages for one timeline. It never blocks.
func (c *Clock) Observe(tl *domain.Timeline) {
	for i := range tl.Events {
		ev := &tl.Events[i]
		switch ev.Kind {
		case domain.EventPulse:
			c.push(gomidi.TimingClock())
		case domain.EventStateChanged:
			c.transport(ev)
		case domain.EventCueChanged:
			if ev.Discontinuity {
				// Followers only accept a song position while stopped.
				c.push(gomidi.Stop())
				c.push(gomidi.SPP(c.songPosition(ev.Position)))
				c.push(gomidi.Continue())
			}
		}
	}
}

func (c *Clock) transport(ev *domain.Event) {
	switch {
	case ev.To.Running() && !ev.From.Running():
		spp := c.songPosition(ev.Position)
		if spp == 0 {
			c.push(gomidi.Start())
			return
		}
		c.push(gomidi.SPP(spp))
		c.push(gomidi.Continue())
	case !ev.To.Running() && ev.From.Running():
		c.push(gomidi.Stop())
	case ev.To == domain.StateIdle:
		c.push(gomidi.SPP(0))
	}
}

// songPosition counts sixteenth notes, the unit of MIDI song position pointers.
func (c *Clock) songPosition(pos domain.SamplePosition) uint16 {
	if c.beats == nil || pos <= 0 {
		return 0
	}
	sixteenths := math.Floor(c.beats(pos)*4 + 1e-9)
	return uint16(min(max(sixteenths, 0), 0x3FFF))
}

func (c *Clock) push(msg gomidi.Message) {
	select {
	case c.out <- msg:
	default:
		c.dropped.Add(1)
	}
}

// Run writes queued messages until ctx ends, then stops the followers.
func (c *Clock) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if err := c.send(gomidi.Stop()); err != nil {
				c.logger.Warn("midi stop failed", "err", err)
			}
			return nil
		case msg := <-c.out:
			if err := c.send(msg); err != nil {
				c.logger.Warn("midi send failed", "msg", msg.String(), "err", err)
				continue
			}
			c.sent.Add(1)
		}
	}
}

// Dropped returns how many messages were lost to a full buffer.
func (c *Clock) Dropped() uint64 { return c.dropped.Load() }

// Sent returns how many messages reached the port.
func (c *Clock) Sent() uint64 { return c.sent.Load() }
