package ports

import (
	"context"

	"github.com/aretw0/cueline/pkg/domain"
)

// ShowLoader defines how the host retrieves a show definition.
// This allows the storage layer (files, Loam, memory) to be decoupled from the compiler.
type ShowLoader interface {
	// Load reads and decodes the show. The result is not compiled yet.
	Load(ctx context.Context) (*domain.Show, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is used for hot reload of the cue sheet between performances or during rehearsal.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying show changes.
	// It abstracts away the specific event details, signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
