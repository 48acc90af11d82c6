package dsl

import (
	"fmt"

	"github.com/aretw0/cueline/internal/compiler"
	"github.com/aretw0/cueline/internal/dto"
	"github.com/aretw0/cueline/pkg/adapters/memory"
	"github.com/aretw0/cueline/pkg/domain"
)

// Builder manages the show construction. Cues keep the order they were added in.
type Builder struct {
	file  dto.ShowFile
	cues  []*CueBuilder
	index map[string]*CueBuilder
}

// New creates a new show builder.
func New(name string) *Builder {
	return &Builder{
		file:  dto.ShowFile{Name: name},
		index: make(map[string]*CueBuilder),
	}
}

// SampleRate sets the show's sample rate.
func (b *Builder) SampleRate(hz int) *Builder {
	b.file.SampleRate = hz
	return b
}

// BeatsPerBar sets the metre used for bar numbers and downbeats.
func (b *Builder) BeatsPerBar(n int) *Builder {
	b.file.BeatsPerBar = n
	return b
}

// Timecode sets the LTC frame rate and the timecode of show zero.
func (b *Builder) Timecode(fps int, start string) *Builder {
	b.file.Timecode = domain.TimecodeSettings{FPS: fps, Start: start}
	return b
}

// Start names the cue playback begins with.
func (b *Builder) Start(id string) *Builder {
	b.file.StartCue = id
	return b
}

// Tempo sets a constant tempo from beat on.
func (b *Builder) Tempo(beat, bpm float64) *Builder {
	b.file.Tempo = append(b.file.Tempo, domain.TempoMark{AtBeat: beat, BPM: bpm})
	return b
}

// Ramp changes tempo linearly from one bpm to another over beats.
func (b *Builder) Ramp(beat, from, to, beats float64) *Builder {
	b.file.Tempo = append(b.file.Tempo, domain.TempoMark{AtBeat: beat, BPM: from, RampTo: to, RampBeats: beats})
	return b
}

// VampAt places a hold point at beat, released by the named condition.
func (b *Builder) VampAt(beat float64, release string) *Builder {
	b.file.Tempo = append(b.file.Tempo, domain.TempoMark{AtBeat: beat, Vamp: true, Release: release})
	return b
}

// Cue adds a cue. If the cue already exists, it returns the existing builder.
func (b *Builder) Cue(id string) *CueBuilder {
	if cb, ok := b.index[id]; ok {
		return cb
	}
	cb := &CueBuilder{cue: dto.CueMetadata{ID: id}, builder: b}
	b.cues = append(b.cues, cb)
	b.index[id] = cb
	return cb
}

// Show resolves the builder into a show definition, applying the same defaults and
// shorthands as show files.
func (b *Builder) Show() (*domain.Show, error) {
	file := b.file
	file.Tempo = append([]domain.TempoMark(nil), b.file.Tempo...)
	file.Cues = make([]dto.CueMetadata, 0, len(b.cues))
	for _, cb := range b.cues {
		file.Cues = append(file.Cues, cb.cue)
	}
	show, err := compiler.NewParser().FromFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to build show: %w", err)
	}
	return show, nil
}

// Build resolves the show into a memory loader.
func (b *Builder) Build() (*memory.Loader, error) {
	show, err := b.Show()
	if err != nil {
		return nil, err
	}
	return memory.NewLoader(show), nil
}

// CueBuilder provides a fluent API for configuring a cue.
type CueBuilder struct {
	cue     dto.CueMetadata
	builder *Builder
}

// Name sets the display name.
func (c *CueBuilder) Name(name string) *CueBuilder {
	c.cue.Name = name
	return c
}

// At sets the entry in absolute beats.
func (c *CueBuilder) At(beat float64) *CueBuilder {
	c.cue.Entry = &beat
	c.cue.Bar = nil
	return c
}

// Until sets the exit in absolute beats.
func (c *CueBuilder) Until(beat float64) *CueBuilder {
	c.cue.Exit = &beat
	c.cue.LengthBars = 0
	return c
}

// Bars places the cue at a 1-based bar for length bars.
func (c *CueBuilder) Bars(bar, length float64) *CueBuilder {
	c.cue.Bar = &bar
	c.cue.Entry = nil
	c.cue.LengthBars = length
	c.cue.Exit = nil
	return c
}

// Next falls through to target at the exit.
func (c *CueBuilder) Next(target string) *CueBuilder {
	c.setPolicy(domain.PolicyFallThrough, target)
	return c
}

// Vamp holds at the exit until released, then advances to then (empty resumes in place).
func (c *CueBuilder) Vamp(then string) *CueBuilder {
	c.setPolicy(domain.PolicyVamp, then)
	return c
}

// JumpTo jumps to target when the operator presses Go.
func (c *CueBuilder) JumpTo(target string) *CueBuilder {
	c.setPolicy(domain.PolicyJump, target)
	return c
}

func (c *CueBuilder) setPolicy(kind domain.PolicyKind, target string) {
	c.cue.Policy = string(kind)
	c.cue.Target = target
}

// Tempo overrides the tempo at a beat relative to the cue entry.
func (c *CueBuilder) Tempo(beat, bpm float64) *CueBuilder {
	c.cue.Tempo = append(c.cue.Tempo, domain.TempoOverride{AtBeat: beat, BPM: bpm})
	return c
}

// Clip starts clip on channel at a beat relative to the cue entry.
func (c *CueBuilder) Clip(channel, clip int, beat float64) *CueBuilder {
	c.cue.Clips = append(c.cue.Clips, domain.ClipCue{Channel: channel, Clip: clip, AtBeat: beat})
	return c
}

// StopClip stops whatever plays on channel at a beat relative to the cue entry.
func (c *CueBuilder) StopClip(channel int, beat float64) *CueBuilder {
	c.cue.Clips = append(c.cue.Clips, domain.ClipCue{Channel: channel, AtBeat: beat, Stop: true})
	return c
}

// Notes sets the operator notes.
func (c *CueBuilder) Notes(text string) *CueBuilder {
	c.cue.Notes = text
	return c
}

// Cue continues with another cue of the same show.
func (c *CueBuilder) Cue(id string) *CueBuilder {
	return c.builder.Cue(id)
}
