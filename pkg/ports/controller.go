package ports

import (
	"context"

	"github.com/aretw0/cueline/pkg/domain"
)

// Controller is the engine boundary used by control adapters.
// Each adapter holds a Controller bound to its own command source, so one slow surface
// never drops another surface's commands.
type Controller interface {
	// Submit queues a command. It never blocks; a domain.QueueFullError means the
	// oldest pending command of this source was dropped.
	Submit(cmd domain.Command) (uint64, error)

	// Await blocks until the engine applied the command with sequence number seq, or
	// ctx ends. The result's Err is the engine's rejection, if any.
	Await(ctx context.Context, seq uint64) (domain.CommandResult, error)

	// Status returns the latest published snapshot.
	Status() domain.Snapshot

	// Watch signals after new snapshots are published. Signals coalesce.
	Watch() (<-chan struct{}, func())

	// Show returns the show definition currently loaded.
	Show() *domain.Show

	// Tempo returns the tempo segments last published by the engine.
	Tempo() []domain.TempoSegment
}
