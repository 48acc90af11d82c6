package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/cueline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")

	snapshot := func(cue string) *domain.Snapshot {
		return &domain.Snapshot{
			Tick:     42,
			State:    domain.StateVamping,
			CueID:    cue,
			CueName:  "Storm",
			Musical:  domain.MusicalPosition{Bar: 3, Beat: 2, Fraction: 0.5, Beats: 9.5},
			Sample:   228000,
			TempoBPM: 120,
			Timecode: domain.Timecode{Hours: 1, Seconds: 4, Frames: 18},
			Armed:    true,
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		snap := snapshot("storm")
		require.NoError(t, store.Save(ctx, runID, snap), "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, *snap, *loaded)

		// The store must not alias the caller's value.
		snap.CueID = "mutated"
		loaded, err = store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, "storm", loaded.CueID)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, runID, snapshot("calm")))
		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, "calm", loaded.CueID)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, runID, snapshot("storm")))
		require.NoError(t, store.Delete(ctx, runID), "Delete should not return error")

		_, err := store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		require.NoError(t, store.Save(ctx, id1, snapshot("a")))
		require.NoError(t, store.Save(ctx, id2, snapshot("b")))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
