package ports

import (
	"context"

	"github.com/aretw0/cueline/pkg/domain"
)

// SnapshotStore persists the last known status of a run.
// This allows an operator to resume a show at the cue it was on after a restart.
type SnapshotStore interface {
	// Save persists the snapshot for a given run ID.
	Save(ctx context.Context, runID string, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a given run ID.
	// Returns domain.ErrSessionNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given run ID.
	Delete(ctx context.Context, runID string) error

	// List returns the IDs of all stored runs.
	List(ctx context.Context) ([]string, error)
}
