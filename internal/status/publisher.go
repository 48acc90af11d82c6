// Package status hands engine snapshots from the tick goroutine to readers.
//
// Publish swaps in a freshly allocated snapshot through an atomic pointer, so readers
// never see a half-written value and the tick never waits for a reader.
package status

import (
	"sync"
	"sync/atomic"

	"github.com/aretw0/cueline/pkg/domain"
)

// Publisher is a single-writer, many-reader snapshot cell.
type Publisher struct {
	cur atomic.Pointer[domain.Snapshot]

	mu       sync.Mutex
	watchers atomic.Pointer[[]chan struct{}]
}

// NewPublisher returns a publisher holding an idle snapshot.
func NewPublisher() *Publisher {
	p := &Publisher{}
	p.cur.Store(&domain.Snapshot{State: domain.StateIdle})
	p.watchers.Store(&[]chan struct{}{})
	return p
}

// Publish makes snap visible to readers and pokes every watcher without blocking.
func (p *Publisher) Publish(snap domain.Snapshot) {
	p.cur.Store(&snap)
	for _, ch := range *p.watchers.Load() {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Load returns the latest snapshot.
func (p *Publisher) Load() domain.Snapshot {
	return *p.cur.Load()
}

// Watch returns a channel that receives a signal after one or more publishes, and a
// cancel func that detaches it. Signals coalesce: a slow watcher sees the latest
// snapshot through Load, never a backlog.
func (p *Publisher) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	p.mu.Lock()
	cur := *p.watchers.Load()
	next := make([]chan struct{}, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, ch)
	p.watchers.Store(&next)
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			cur := *p.watchers.Load()
			next := make([]chan struct{}, 0, len(cur))
			for _, c := range cur {
				if c != ch {
					next = append(next, c)
				}
			}
			p.watchers.Store(&next)
		})
	}
}
