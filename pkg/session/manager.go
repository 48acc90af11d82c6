package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/cueline/internal/logging"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/aretw0/cueline/pkg/ports"
	"github.com/google/uuid"
)

// DefaultRecordInterval is how often Record samples the engine status.
const DefaultRecordInterval = 250 * time.Millisecond

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// StatusSource is anything publishing engine snapshots.
type StatusSource interface {
	Load() domain.Snapshot
}

// Manager orchestrates run access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SnapshotStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a new run Manager with the given persistence store.
func NewManager(store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locks:  make(map[string]*lockEntry),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(runID) after unlocking.
func (m *Manager) acquire(runID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[runID]
	if !exists {
		entry = &lockEntry{}
		m.locks[runID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[runID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, runID)
	}
}

// Load retrieves the stored snapshot of a run.
func (m *Manager) Load(ctx context.Context, runID string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, runID, func(ctx context.Context) error {
		var err error
		snap, err = m.store.Load(ctx, runID)
		return err
	})
	return snap, err
}

// Save persists the run's snapshot.
func (m *Manager) Save(ctx context.Context, runID string, snap *domain.Snapshot) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		return m.store.Save(ctx, runID, snap)
	})
}

// Delete removes the run from the store.
func (m *Manager) Delete(ctx context.Context, runID string) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		return m.store.Delete(ctx, runID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// WithLock executes a function while holding the lock for the run.
func (m *Manager) WithLock(ctx context.Context, runID string, fn func(context.Context) error) error {
	entry := m.acquire(runID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(runID)
	}()

	return fn(ctx)
}

// Record samples src every interval and stores the snapshot whenever something an
// operator would notice changed (state, cue, bar or beat, tempo, flags). The latest
// snapshot is flushed once more when ctx ends. Store failures are logged and retried
// on the next change; they never stop the show.
func (m *Manager) Record(ctx context.Context, runID string, src StatusSource, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultRecordInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *domain.Snapshot
	save := func(ctx context.Context) {
		snap := src.Load()
		if domain.Diff(last, &snap) == nil {
			return
		}
		if err := m.Save(ctx, runID, &snap); err != nil {
			m.logger.Warn("failed to record snapshot", "run_id", runID, "err", err)
			return
		}
		last = &snap
	}

	save(ctx)
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			save(flushCtx)
			cancel()
			return nil
		case <-ticker.C:
			save(ctx)
		}
	}
}

// Resume loads a run and returns the commands that put an idle engine back on its
// cue. A run that never left idle resumes with no commands.
func (m *Manager) Resume(ctx context.Context, runID string) ([]domain.Command, *domain.Snapshot, error) {
	snap, err := m.Load(ctx, runID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to resume run %s: %w", runID, err)
	}
	return ResumeCommands(snap), snap, nil
}

// ResumeCommands selects the stored cue. Playback is never restarted automatically:
// the operator decides when to Play.
func ResumeCommands(snap *domain.Snapshot) []domain.Command {
	if snap == nil || snap.CueID == "" {
		return nil
	}
	return []domain.Command{domain.JumpTo(snap.CueID)}
}
