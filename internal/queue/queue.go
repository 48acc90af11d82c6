// Package queue delivers control commands from any number of goroutines to the tick.
//
// Every control source owns a bounded ring. Submitting never blocks: a full ring drops
// its oldest pending command and reports it to the sender. The tick drains all sources
// without waiting; a source whose lock is held by its producer is skipped until the next
// tick, which keeps its FIFO order intact.
package queue

import (
	"sync"
	"sync/atomic"

	"github.com/aretw0/cueline/pkg/domain"
)

// DefaultCapacity is the per-source bound used when none is given.
const DefaultCapacity = 64

// Queue merges the command rings of all registered sources.
type Queue struct {
	capacity int

	regMu   sync.Mutex
	sources atomic.Pointer[[]*Source]

	seq  atomic.Uint64
	stop atomic.Bool
}

// New returns a queue whose sources hold up to capacity pending commands each.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	q := &Queue{capacity: capacity}
	q.sources.Store(&[]*Source{})
	return q
}

// Register adds a source. Registering an existing name returns the same source.
func (q *Queue) Register(name string) *Source {
	q.regMu.Lock()
	defer q.regMu.Unlock()

	cur := *q.sources.Load()
	for _, s := range cur {
		if s.name == name {
			return s
		}
	}
	s := &Source{
		name: name,
		q:    q,
		buf:  make([]domain.Command, q.capacity),
	}
	next := make([]*Source, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, s)
	q.sources.Store(&next)
	return s
}

// Drain appends every pending command to dst, source by source in registration order,
// and returns the extended slice. It never blocks.
func (q *Queue) Drain(dst []domain.Command) []domain.Command {
	q.stop.Store(false)
	for _, s := range *q.sources.Load() {
		dst = s.drain(dst)
	}
	return dst
}

// StopRequested reports whether a Stop was submitted since the last Drain.
func (q *Queue) StopRequested() bool {
	return q.stop.Load()
}

// Pending returns the number of commands waiting across all sources.
func (q *Queue) Pending() int {
	total := 0
	for _, s := range *q.sources.Load() {
		total += s.Len()
	}
	return total
}

// Source is the producer side of one control input.
type Source struct {
	name string
	q    *Queue

	mu   sync.Mutex
	buf  []domain.Command
	head int
	n    int

	dropped atomic.Uint64
}

// Name of the source.
func (s *Source) Name() string { return s.name }

// Submit queues cmd and returns its sequence number. When the ring is full the oldest
// pending command is dropped, cmd is still queued, and a QueueFullError naming the
// dropped command is returned.
func (s *Source) Submit(cmd domain.Command) (uint64, error) {
	cmd.Source = s.name
	cmd.Seq = s.q.seq.Add(1)

	s.mu.Lock()
	var dropped *domain.Command
	if s.n == len(s.buf) {
		old := s.buf[s.head]
		dropped = &old
		s.buf[s.head] = domain.Command{}
		s.head = (s.head + 1) % len(s.buf)
		s.n--
	}
	s.buf[(s.head+s.n)%len(s.buf)] = cmd
	s.n++
	s.mu.Unlock()

	if cmd.Kind == domain.CommandStop {
		s.q.stop.Store(true)
	}
	if dropped != nil {
		s.dropped.Add(1)
		return cmd.Seq, &domain.QueueFullError{Source: s.name, Dropped: *dropped}
	}
	return cmd.Seq, nil
}

// Len returns the number of pending commands.
func (s *Source) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Dropped returns how many commands this source lost to backpressure.
func (s *Source) Dropped() uint64 { return s.dropped.Load() }

func (s *Source) drain(dst []domain.Command) []domain.Command {
	if !s.mu.TryLock() {
		return dst
	}
	for s.n > 0 {
		dst = append(dst, s.buf[s.head])
		s.buf[s.head] = domain.Command{}
		s.head = (s.head + 1) % len(s.buf)
		s.n--
	}
	s.head = 0
	s.mu.Unlock()
	return dst
}
