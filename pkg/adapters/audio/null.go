package audio

import (
	"context"
	"time"
)

// NullDriver discards audio but keeps real-time pacing: it pulls one block per block
// period from a time.Ticker. It runs shows on machines without a sound card and in CI.
type NullDriver struct {
	sampleRate int
	block      int
	sink       func([]float32)
}

// NewNullDriver creates a driver pulling block frames at sampleRate.
func NewNullDriver(sampleRate, block int) *NullDriver {
	return &NullDriver{sampleRate: sampleRate, block: block}
}

// WithSink hands every pulled buffer to fn, which must copy what it keeps.
func (d *NullDriver) WithSink(fn func([]float32)) *NullDriver {
	d.sink = fn
	return d
}

// Period is the wall time one block represents.
func (d *NullDriver) Period() time.Duration {
	return time.Duration(d.block) * time.Second / time.Duration(d.sampleRate)
}

// Run pulls blocks until ctx ends.
func (d *NullDriver) Run(ctx context.Context, src SampleSource) error {
	buf := make([]float32, d.block*2)
	ticker := time.NewTicker(d.Period())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			src.Process(buf)
			if d.sink != nil {
				d.sink(buf)
			}
		}
	}
}
