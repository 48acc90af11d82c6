package status_test

import (
	"sync"
	"testing"
	"time"

	"github.com/aretw0/cueline/internal/status"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_LoadLatest(t *testing.T) {
	p := status.NewPublisher()
	assert.Equal(t, domain.StateIdle, p.Load().State)

	p.Publish(domain.Snapshot{Tick: 7, State: domain.StatePlaying, CueID: "A"})
	got := p.Load()
	assert.Equal(t, uint64(7), got.Tick)
	assert.Equal(t, "A", got.CueID)
}

func TestPublisher_WatchCoalesces(t *testing.T) {
	p := status.NewPublisher()
	ch, cancel := p.Watch()
	defer cancel()

	for i := 0; i < 10; i++ {
		p.Publish(domain.Snapshot{Tick: uint64(i)})
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}
	assert.Equal(t, uint64(9), p.Load().Tick)

	select {
	case <-ch:
		t.Fatal("notifications should coalesce")
	default:
	}

	cancel()
	p.Publish(domain.Snapshot{Tick: 10})
	select {
	case <-ch:
		t.Fatal("cancelled watcher was notified")
	default:
	}
}

// Every field of a published snapshot is derived from Tick, so a torn read would show
// mismatched fields.
func TestPublisher_NoTornReads(t *testing.T) {
	p := status.NewPublisher()
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint64(1); i <= 20000; i++ {
			p.Publish(domain.Snapshot{
				Tick:     i,
				Sample:   domain.SamplePosition(i * 256),
				TempoBPM: float64(i),
				Rejected: i,
			})
		}
		close(done)
	}()

	for reading := true; reading; {
		select {
		case <-done:
			reading = false
		default:
		}
		s := p.Load()
		if s.Tick == 0 {
			continue
		}
		require.Equal(t, domain.SamplePosition(s.Tick*256), s.Sample)
		require.Equal(t, float64(s.Tick), s.TempoBPM)
		require.Equal(t, s.Tick, s.Rejected)
	}
	wg.Wait()
}
