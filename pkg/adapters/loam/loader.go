// Package loam loads a show from a directory of markdown cue sheets.
//
// Every document is one cue: YAML frontmatter places it and sets its exit policy, and
// the markdown body becomes the operator notes. A document named show (or with
// kind: show) carries the show header and tempo plan.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/cueline/internal/compiler"
	"github.com/aretw0/cueline/internal/dto"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/aretw0/loam"
)

// Loader adapts a Loam repository to the ShowLoader and Watchable ports.
type Loader struct {
	Repo   *loam.TypedRepository[SheetMetadata]
	parser *compiler.Parser
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[SheetMetadata]) *Loader {
	return &Loader{
		Repo:   repo,
		parser: compiler.NewParser(),
	}
}

// Open initialises a read-only Loam repository at dir and wraps it.
func Open(dir string) (*Loader, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(abs, loam.WithReadOnly(true))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[SheetMetadata](repo)), nil
}

type sheet struct {
	id    string
	meta  SheetMetadata
	notes string
}

// Load reads every document and assembles the show. Cues are ordered by their index
// key, then by id.
func (l *Loader) Load(ctx context.Context) (*domain.Show, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	var header *sheet
	cues := make([]sheet, 0, len(docs))
	seen := make(map[string]string)

	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		s := sheet{id: trimExtension(rawID), meta: doc.Data, notes: strings.TrimSpace(doc.Content)}

		if s.meta.Kind == KindShow || (s.meta.Kind == "" && s.id == KindShow) {
			if header != nil {
				return nil, fmt.Errorf("collision detected: two show documents (%s and %s)", header.id, doc.ID)
			}
			header = &s
			continue
		}

		if existing, ok := seen[s.id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", s.id, existing, doc.ID)
		}
		seen[s.id] = doc.ID
		cues = append(cues, s)
	}

	sort.SliceStable(cues, func(i, j int) bool {
		a, b := cues[i], cues[j]
		switch {
		case a.meta.Index != nil && b.meta.Index != nil && *a.meta.Index != *b.meta.Index:
			return *a.meta.Index < *b.meta.Index
		case a.meta.Index != nil && b.meta.Index == nil:
			return true
		case a.meta.Index == nil && b.meta.Index != nil:
			return false
		}
		return a.id < b.id
	})

	file := dto.ShowFile{}
	if header != nil {
		file.Name = header.meta.Name
		file.SampleRate = header.meta.SampleRate
		file.BeatsPerBar = header.meta.BeatsPerBar
		file.Timecode = header.meta.Timecode
		file.StartCue = header.meta.StartCue
		if err := compiler.Decode(header.meta.Tempo, &file.Tempo); err != nil {
			return nil, fmt.Errorf("show tempo: %w", err)
		}
	}

	for _, s := range cues {
		c := dto.CueMetadata{
			ID:         s.id,
			Name:       s.meta.Name,
			Index:      s.meta.Index,
			Entry:      s.meta.Entry,
			Exit:       s.meta.Exit,
			Bar:        s.meta.Bar,
			LengthBars: s.meta.LengthBars,
			Policy:     s.meta.Policy,
			Target:     s.meta.Target,
			Next:       s.meta.Next,
			Vamp:       s.meta.Vamp,
			Then:       s.meta.Then,
			JumpTo:     s.meta.JumpTo,
			Clips:      s.meta.Clips,
			Notes:      s.notes,
		}
		if err := compiler.Decode(s.meta.Tempo, &c.Tempo); err != nil {
			return nil, fmt.Errorf("cue %s tempo: %w", s.id, err)
		}
		file.Cues = append(file.Cues, c)
	}

	// Without explicit indexes the sorted position is the show order.
	for i := range file.Cues {
		if file.Cues[i].Index == nil {
			idx := i
			file.Cues[i].Index = &idx
		}
	}

	return l.parser.FromFile(file)
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				// Loam debounces bursts itself; further signals coalesce here.
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}
