package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/cueline/internal/adapters/file"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/aretw0/cueline/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.SnapshotStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSnapshotStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_Details(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	assert.ErrorIs(t, store.Save(ctx, "", &domain.Snapshot{}), file.ErrEmptyRunID)
	_, err := store.Load(ctx, "")
	assert.ErrorIs(t, err, file.ErrEmptyRunID)
	assert.NoError(t, store.Delete(ctx, "never-saved"))

	require.NoError(t, store.Save(ctx, "opening", &domain.Snapshot{CueID: "storm"}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-opening-123.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	runs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"opening"}, runs)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))
	_, err = store.Load(ctx, "broken")
	assert.ErrorContains(t, err, "failed to unmarshal")

	empty, err := file.New(filepath.Join(dir, "missing")).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFileStore_DefaultDir(t *testing.T) {
	assert.Equal(t, file.DefaultDir, file.New("").BasePath)
}
