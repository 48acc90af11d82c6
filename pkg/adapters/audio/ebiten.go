package audio

import (
	"context"
	"fmt"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Driver pulls audio from a source until ctx ends.
type Driver interface {
	Run(ctx context.Context, src SampleSource) error
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

// ebiten allows a single audio context per process.
func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// EbitenDriver plays through the default output device.
type EbitenDriver struct {
	sampleRate int
}

// NewEbitenDriver creates a driver for sampleRate.
func NewEbitenDriver(sampleRate int) *EbitenDriver {
	return &EbitenDriver{sampleRate: sampleRate}
}

// Run starts playback and blocks until ctx ends.
func (d *EbitenDriver) Run(ctx context.Context, src SampleSource) error {
	actx, err := sharedAudioContext(d.sampleRate)
	if err != nil {
		return err
	}
	reader := NewStreamReader(src)
	player, err := actx.NewPlayerF32(reader)
	if err != nil {
		return fmt.Errorf("failed to open audio player: %w", err)
	}
	player.Play()

	<-ctx.Done()
	player.Pause()
	if err := player.Close(); err != nil {
		return fmt.Errorf("failed to close audio player: %w", err)
	}
	return nil
}
