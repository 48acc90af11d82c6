package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/cueline/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Broadcaster fans engine status and events out over Redis pub/sub, so front-of-house
// displays and other tools can follow the show without talking to the engine.
type Broadcaster struct {
	client *backend.Client
	prefix string
}

// NewBroadcaster publishes on channels under prefix.
func NewBroadcaster(client *backend.Client, prefix string) *Broadcaster {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Broadcaster{client: client, prefix: prefix}
}

// StatusChannel carries JSON snapshots.
func (b *Broadcaster) StatusChannel() string { return b.prefix + "status" }

// EventChannel carries JSON events.
func (b *Broadcaster) EventChannel() string { return b.prefix + "events" }

// PublishStatus sends snap to the status channel.
func (b *Broadcaster) PublishStatus(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return b.client.Publish(ctx, b.StatusChannel(), data).Err()
}

// HandleEvent implements ports.EventHandler.
func (b *Broadcaster) HandleEvent(ctx context.Context, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return b.client.Publish(ctx, b.EventChannel(), data).Err()
}

// SubscribeStatus delivers snapshots published on the status channel until ctx ends.
// Undecodable messages are skipped.
func (b *Broadcaster) SubscribeStatus(ctx context.Context) (<-chan domain.Snapshot, error) {
	sub := b.client.Subscribe(ctx, b.StatusChannel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan domain.Snapshot, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var snap domain.Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					continue
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
