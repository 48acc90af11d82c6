package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/cueline/pkg/adapters/memory"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_LoadReturnsCopies(t *testing.T) {
	show := &domain.Show{Name: "demo", Cues: []domain.CueNode{{ID: "a"}}}
	loader := memory.NewLoader(show)

	got, err := loader.Load(context.Background())
	require.NoError(t, err)
	got.Cues[0].ID = "mutated"

	again, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", again.Cues[0].ID)
}

func TestLoader_Empty(t *testing.T) {
	_, err := memory.NewLoader(nil).Load(context.Background())
	assert.Error(t, err)
}

func TestLoader_WatchSignalsOnSet(t *testing.T) {
	loader := memory.NewLoader(&domain.Show{Name: "v1"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := loader.Watch(ctx)
	require.NoError(t, err)

	loader.Set(&domain.Show{Name: "v2"})
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("watch did not fire")
	}

	got, err := loader.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Name)
}
