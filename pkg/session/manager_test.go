package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/cueline/pkg/adapters/memory"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/aretw0/cueline/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data   map[string]domain.Snapshot
	mu     sync.Mutex
	active int
	peak   int
	fail   bool
}

func (s *SlowStore) Save(ctx context.Context, runID string, snap *domain.Snapshot) error {
	s.mu.Lock()
	s.active++
	if s.active > s.peak {
		s.peak = s.active
	}
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond) // Simulate IO

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active--
	if s.fail {
		return errors.New("disk on fire")
	}
	if s.data == nil {
		s.data = make(map[string]domain.Snapshot)
	}
	s.data[runID] = *snap
	return nil
}

func (s *SlowStore) Load(ctx context.Context, runID string) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap, ok := s.data[runID]; ok {
		return &snap, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func TestManager_SavesAreSerialisedPerRun(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(tick uint64) {
			defer wg.Done()
			assert.NoError(t, manager.Save(ctx, "run", &domain.Snapshot{Tick: tick}))
		}(uint64(i))
	}
	wg.Wait()

	assert.Equal(t, 1, store.peak)
}

type staticSource struct {
	mu   sync.Mutex
	snap domain.Snapshot
}

func (s *staticSource) Load() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *staticSource) set(snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

func TestManager_RecordAndResume(t *testing.T) {
	store := memory.NewStore()
	manager := session.NewManager(store)
	runID := session.NewRunID()
	assert.Len(t, runID, 36)

	src := &staticSource{snap: domain.Snapshot{State: domain.StateIdle, CueID: "intro"}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- manager.Record(ctx, runID, src, 5*time.Millisecond) }()

	require.Eventually(t, func() bool {
		snap, err := store.Load(context.Background(), runID)
		return err == nil && snap.CueID == "intro"
	}, time.Second, 5*time.Millisecond)

	src.set(domain.Snapshot{State: domain.StatePlaying, CueID: "storm", Musical: domain.MusicalPosition{Bar: 12, Beat: 3}})
	cancel()
	require.NoError(t, <-done)

	cmds, snap, err := manager.Resume(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, "storm", snap.CueID)
	assert.Equal(t, []domain.Command{domain.JumpTo("storm")}, cmds)
}

func TestManager_RecordSurvivesStoreFailures(t *testing.T) {
	store := &SlowStore{fail: true}
	manager := session.NewManager(store)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := manager.Record(ctx, "run", &staticSource{snap: domain.Snapshot{CueID: "a"}}, 5*time.Millisecond)
	assert.NoError(t, err)
}

func TestManager_ResumeUnknownRun(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	_, _, err := manager.Resume(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestResumeCommands(t *testing.T) {
	assert.Nil(t, session.ResumeCommands(nil))
	assert.Nil(t, session.ResumeCommands(&domain.Snapshot{}))
	assert.Equal(t, []domain.Command{domain.JumpTo("b")}, session.ResumeCommands(&domain.Snapshot{CueID: "b"}))
}
