package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/cueline/pkg/domain"
)

// Loader implements ports.ShowLoader and ports.Watchable over a show held in memory.
// Set swaps the show and signals watchers, which makes it handy for tests and for
// hosts that build shows with the dsl package.
type Loader struct {
	mu       sync.Mutex
	show     *domain.Show
	watchers []chan struct{}
}

// NewLoader creates a loader serving show.
func NewLoader(show *domain.Show) *Loader {
	return &Loader{show: show}
}

// Load returns a copy of the current show.
func (l *Loader) Load(ctx context.Context) (*domain.Show, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.show == nil {
		return nil, fmt.Errorf("no show loaded")
	}
	return cloneShow(l.show), nil
}

// Set replaces the show and notifies watchers.
func (l *Loader) Set(show *domain.Show) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.show = show
	for _, ch := range l.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch signals after every Set until ctx is done.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	l.mu.Lock()
	l.watchers = append(l.watchers, ch)
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, c := range l.watchers {
			if c == ch {
				l.watchers = append(l.watchers[:i], l.watchers[i+1:]...)
				break
			}
		}
	}()
	return ch, nil
}

func cloneShow(s *domain.Show) *domain.Show {
	out := *s
	out.Tempo = append([]domain.TempoMark(nil), s.Tempo...)
	out.Cues = make([]domain.CueNode, len(s.Cues))
	for i, c := range s.Cues {
		c.Tempo = append([]domain.TempoOverride(nil), c.Tempo...)
		c.Clips = append([]domain.ClipCue(nil), c.Clips...)
		out.Cues[i] = c
	}
	return &out
}
