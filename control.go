package cueline

import (
	"context"
	"sync"

	"github.com/aretw0/cueline/internal/queue"
	"github.com/aretw0/cueline/pkg/domain"
)

// resultHistory is how many unclaimed results are kept for late Await calls.
const resultHistory = 1024

// controller binds the engine to one queue source.
type controller struct {
	engine *Engine
	src    *queue.Source
}

func (c *controller) Submit(cmd domain.Command) (uint64, error) {
	return c.src.Submit(cmd)
}

func (c *controller) Await(ctx context.Context, seq uint64) (domain.CommandResult, error) {
	return c.engine.results.wait(ctx, seq)
}

func (c *controller) Status() domain.Snapshot { return c.engine.publisher.Load() }

func (c *controller) Watch() (<-chan struct{}, func()) { return c.engine.publisher.Watch() }

func (c *controller) Show() *domain.Show { return c.engine.Show() }

func (c *controller) Tempo() []domain.TempoSegment { return c.engine.runtime.Tempo() }

// results matches applied commands with their waiters by sequence number. Sequence
// numbers are unique across sources.
type results struct {
	mu      sync.Mutex
	done    map[uint64]domain.CommandResult
	order   []uint64
	waiters map[uint64][]chan domain.CommandResult
}

func newResults() *results {
	return &results{
		done:    make(map[uint64]domain.CommandResult),
		waiters: make(map[uint64][]chan domain.CommandResult),
	}
}

func (r *results) put(res domain.CommandResult) {
	seq := res.Command.Seq
	r.mu.Lock()
	defer r.mu.Unlock()

	if ws, ok := r.waiters[seq]; ok {
		delete(r.waiters, seq)
		for _, ch := range ws {
			ch <- res
		}
		return
	}
	r.done[seq] = res
	r.order = append(r.order, seq)
	if len(r.order) > resultHistory {
		delete(r.done, r.order[0])
		r.order = r.order[1:]
	}
}

func (r *results) wait(ctx context.Context, seq uint64) (domain.CommandResult, error) {
	r.mu.Lock()
	if res, ok := r.done[seq]; ok {
		delete(r.done, seq)
		r.mu.Unlock()
		return res, nil
	}
	ch := make(chan domain.CommandResult, 1)
	r.waiters[seq] = append(r.waiters[seq], ch)
	r.mu.Unlock()

	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		r.mu.Lock()
		ws := r.waiters[seq]
		for i, w := range ws {
			if w == ch {
				ws = append(ws[:i], ws[i+1:]...)
				break
			}
		}
		if len(ws) == 0 {
			delete(r.waiters, seq)
		} else {
			r.waiters[seq] = ws
		}
		r.mu.Unlock()
		return domain.CommandResult{}, ctx.Err()
	}
}
