package badger

import (
	"context"
	"testing"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestRepository(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	repo := NewManifestRepository(backend)
	ctx := context.Background()

	_, err = repo.GetManifest(ctx, "vegetables", "data/onions.pdf")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	onions := &core.SourceManifest{
		Collection: "vegetables",
		Source:     "data/onions.pdf",
		RunID:      "run-1",
		Current:    []string{"a", "b"},
		Known:      []string{"a", "b", "c"},
	}
	carrots := &core.SourceManifest{
		Collection: "vegetables",
		Source:     "data/carrots.pdf",
		RunID:      "run-1",
		Current:    []string{"d"},
		Known:      []string{"d"},
	}
	elsewhere := &core.SourceManifest{Collection: "herbs", Source: "data/basil.pdf", Current: []string{"x"}, Known: []string{"x"}}
	require.NoError(t, repo.SaveManifests(ctx, onions, carrots, elsewhere))
	assert.False(t, onions.UpdatedAt.IsZero())

	got, err := repo.GetManifest(ctx, "vegetables", "data/onions.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, got.Stale())
	assert.Equal(t, "run-1", got.RunID)

	list, err := repo.ListManifests(ctx, "vegetables")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "data/carrots.pdf", list[0].Source)
	assert.Equal(t, "data/onions.pdf", list[1].Source)

	require.NoError(t, repo.DeleteManifest(ctx, "vegetables", "data/carrots.pdf"))
	require.NoError(t, repo.DeleteManifest(ctx, "vegetables", "data/never.pdf"))

	list, err = repo.ListManifests(ctx, "vegetables")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.SaveManifests(ctx))
}
