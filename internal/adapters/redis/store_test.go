package redis_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/cueline/internal/adapters/redis"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/aretw0/cueline/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	store := redis.NewFromClient(client)
	ports.RunSnapshotStoreContract(t, store)
}

func TestRedisStore_TTL(t *testing.T) {
	mr, client := setup(t)
	ctx := context.Background()

	store := redis.NewFromClient(client, redis.WithPrefix("show:"), redis.WithTTL(time.Hour))
	require.NoError(t, store.Save(ctx, "run-1", &domain.Snapshot{CueID: "a"}))

	assert.True(t, mr.Exists("show:run:run-1"))
	assert.Equal(t, time.Hour, mr.TTL("show:run:run-1"))

	mr.FastForward(2 * time.Hour)
	_, err := store.Load(ctx, "run-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestBroadcaster_StatusRoundTrip(t *testing.T) {
	_, client := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := redis.NewBroadcaster(client, "")
	assert.Equal(t, "cueline:status", b.StatusChannel())

	snaps, err := b.SubscribeStatus(ctx)
	require.NoError(t, err)

	require.NoError(t, b.PublishStatus(ctx, domain.Snapshot{Tick: 7, State: domain.StatePlaying, CueID: "verse"}))

	select {
	case got := <-snaps:
		assert.Equal(t, uint64(7), got.Tick)
		assert.Equal(t, "verse", got.CueID)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
	}

	cancel()
	for range snaps {
	}
}

func TestBroadcaster_HandleEvent(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()

	b := redis.NewBroadcaster(client, "test:")
	sub := client.Subscribe(ctx, b.EventChannel())
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	var handler ports.EventHandler = b
	require.NoError(t, handler.HandleEvent(ctx, domain.Event{Kind: domain.EventCueChanged, CueID: "b", PrevCueID: "a"}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test:events", msg.Channel)
	var ev domain.Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
	assert.Equal(t, domain.EventCueChanged, ev.Kind)
	assert.Equal(t, "b", ev.CueID)
	assert.Equal(t, "a", ev.PrevCueID)
}
