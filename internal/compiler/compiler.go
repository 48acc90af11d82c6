package compiler

import (
	"fmt"
	"sort"

	"github.com/aretw0/cueline/internal/cuegraph"
	"github.com/aretw0/cueline/internal/tempomap"
	"github.com/aretw0/cueline/pkg/domain"
)

// Program is a show compiled for the engine: the tempo map, the cue graph and the
// timecode settings.
type Program struct {
	Name     string
	Map      tempomap.Map
	Graph    *cuegraph.Graph
	Timecode domain.Timecode
	Show     *domain.Show
}

// SampleRate of the compiled map.
func (p *Program) SampleRate() int { return p.Map.SampleRate() }

// Compile resolves the musical tempo marks of show into a sample-indexed tempo map and
// builds the cue graph.
func Compile(show *domain.Show) (*Program, error) {
	if show == nil {
		return nil, fmt.Errorf("%w: no show", ErrInvalidShow)
	}

	switch show.Timecode.FPS {
	case 24, 25, 30:
	default:
		return nil, fmt.Errorf("%w: unsupported timecode rate %d", ErrInvalidShow, show.Timecode.FPS)
	}
	start, err := domain.ParseTimecode(show.Timecode.Start, show.Timecode.FPS)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShow, err)
	}

	m, err := BuildTempoMap(show.SampleRate, show.BeatsPerBar, show.Tempo)
	if err != nil {
		return nil, err
	}

	g, err := cuegraph.New(show.Cues, show.StartCue)
	if err != nil {
		return nil, fmt.Errorf("failed to build cue graph: %w", err)
	}

	return &Program{
		Name:     show.Name,
		Map:      m,
		Graph:    g,
		Timecode: start,
		Show:     show,
	}, nil
}

// BuildTempoMap places tempo marks one after another, so every mark's beat is resolved
// against the tempo that precedes it. Pure vamp marks (no tempo) are inserted last.
func BuildTempoMap(sampleRate, beatsPerBar int, marks []domain.TempoMark) (tempomap.Map, error) {
	sorted := append([]domain.TempoMark(nil), marks...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].AtBeat < sorted[j].AtBeat })

	var tempo, vamps []domain.TempoMark
	for _, mk := range sorted {
		if mk.AtBeat < 0 {
			return tempomap.Map{}, fmt.Errorf("%w: tempo mark at negative beat %.3f", ErrInvalidShow, mk.AtBeat)
		}
		if mk.BPM == 0 {
			if mk.Vamp {
				vamps = append(vamps, mk)
				continue
			}
			return tempomap.Map{}, fmt.Errorf("%w: tempo mark at beat %.3f has no tempo", ErrInvalidShow, mk.AtBeat)
		}
		tempo = append(tempo, mk)
	}
	if len(tempo) == 0 || tempo[0].AtBeat > 0 {
		tempo = append([]domain.TempoMark{{AtBeat: 0, BPM: domain.DefaultTempo}}, tempo...)
	}

	m, err := tempomap.New(sampleRate, beatsPerBar, domain.Constant(0, domain.DefaultTempo))
	if err != nil {
		return tempomap.Map{}, err
	}
	for _, mk := range tempo {
		at := m.SampleAt(mk.AtBeat)
		seg := domain.Constant(at, mk.BPM)
		if mk.RampTo > 0 && mk.RampBeats > 0 {
			seg = domain.Ramp(at, mk.BPM, mk.RampTo, m.RampLength(mk.BPM, mk.RampTo, mk.RampBeats))
		}
		seg.Vamp = mk.Vamp
		seg.Release = mk.Release
		if m, err = m.ReplaceAfter(at, []domain.TempoSegment{seg}); err != nil {
			return tempomap.Map{}, fmt.Errorf("tempo mark at beat %.3f: %w", mk.AtBeat, err)
		}
	}
	for _, mk := range vamps {
		if m, err = m.InsertVamp(m.SampleAt(mk.AtBeat), mk.Release); err != nil {
			return tempomap.Map{}, fmt.Errorf("vamp at beat %.3f: %w", mk.AtBeat, err)
		}
	}
	return m, nil
}
