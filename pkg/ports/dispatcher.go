package ports

import (
	"context"

	"github.com/aretw0/cueline/pkg/domain"
)

// EventHandler consumes notable engine events (cue, vamp, state and clip changes).
// Handlers run on a dispatcher goroutine, never on the audio thread, and may block.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev domain.Event) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, ev domain.Event) error

// HandleEvent calls f.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, ev domain.Event) error {
	return f(ctx, ev)
}
