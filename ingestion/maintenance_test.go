package ingestion

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/groundwork/chunking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurge(t *testing.T) {
	env := newTestEnv(t)
	splitter, err := chunking.NewOverlapSplitter(chunking.WithChunkSize(50), chunking.WithChunkOverlap(10))
	require.NoError(t, err)

	dir := t.TempDir()
	garlic := filepath.Join(dir, "garlic.txt")
	leeks := filepath.Join(dir, "leeks.txt")
	writeFile(t, garlic, strings.Repeat("Plant garlic cloves in autumn. ", 10))
	writeFile(t, leeks, "Earth up leeks to blanch the stems.")

	p := env.pipeline(t, WithLoaders(&TextLoader{}), WithSplitter(splitter))
	first, err := p.Run(t.Context(), dir)
	require.NoError(t, err)

	// Shrink one source and remove the other.
	writeFile(t, garlic, "Plant garlic cloves in autumn.")
	require.NoError(t, os.Remove(leeks))
	second, err := p.Run(t.Context(), dir)
	require.NoError(t, err)
	require.Equal(t, 1, second.Chunks)
	require.Equal(t, first.Chunks, env.count(t))

	manifests := env.store.Manifests()
	dry, err := Purge(t.Context(), env.collection, manifests, dir, true)
	require.NoError(t, err)
	assert.True(t, dry.DryRun)
	assert.Zero(t, dry.Deleted)
	require.Len(t, dry.Sources, 2)
	assert.Equal(t, garlic, dry.Sources[0].Source)
	assert.False(t, dry.Sources[0].Removed)
	assert.Equal(t, leeks, dry.Sources[1].Source)
	assert.True(t, dry.Sources[1].Removed)
	assert.Equal(t, first.Chunks, env.count(t), "dry run must not delete")

	purged, err := Purge(t.Context(), env.collection, manifests, dir, false)
	require.NoError(t, err)
	assert.Equal(t, first.Chunks-1, purged.Deleted)
	assert.Equal(t, 1, env.count(t))

	summaries, err := Summarize(t.Context(), manifests, env.collection.Name())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, garlic, summaries[0].Source)
	assert.Equal(t, 1, summaries[0].Current)
	assert.Zero(t, summaries[0].Stale)

	// Nothing left to purge.
	again, err := Purge(t.Context(), env.collection, manifests, dir, false)
	require.NoError(t, err)
	assert.Empty(t, again.Sources)
	assert.Zero(t, again.Deleted)
}

func TestPurge_SourcesOutsideDirectoryAreKept(t *testing.T) {
	env := newTestEnv(t)
	loader := NewStaticLoader()
	loader.Add("seed/chard", "Chard crops for months.")

	_, err := env.pipeline(t, WithLoaders(loader)).Ingest(t.Context(), "seed/chard")
	require.NoError(t, err)

	report, err := Purge(t.Context(), env.collection, env.store.Manifests(), t.TempDir(), false)
	require.NoError(t, err)
	assert.Empty(t, report.Sources)
	assert.Equal(t, 1, env.count(t))
}

func TestPurge_RelativeDirectoryMatchesAbsoluteSources(t *testing.T) {
	env := newTestEnv(t)
	root := t.TempDir()
	dir := filepath.Join(root, "data")
	beans := filepath.Join(dir, "beans.txt")
	writeFile(t, beans, "Pinch out runner beans at the top of the poles.")

	_, err := env.pipeline(t, WithLoaders(&TextLoader{})).Run(t.Context(), dir)
	require.NoError(t, err)
	require.NoError(t, os.Remove(beans))

	t.Chdir(root)
	report, err := Purge(t.Context(), env.collection, env.store.Manifests(), "data", false)
	require.NoError(t, err)
	require.Len(t, report.Sources, 1)
	assert.Equal(t, beans, report.Sources[0].Source)
	assert.True(t, report.Sources[0].Removed)
	assert.Equal(t, 1, report.Deleted)
	assert.Zero(t, env.count(t))
}

func TestSummarize(t *testing.T) {
	env := newTestEnv(t)
	loader := NewStaticLoader()
	loader.Add("seed/b", "Beetroot tolerates light shade.")
	loader.Add("seed/a", "Asparagus beds last twenty years.")

	report, err := env.pipeline(t, WithLoaders(loader)).Ingest(t.Context(), loader.Sources()...)
	require.NoError(t, err)

	summaries, err := Summarize(t.Context(), env.store.Manifests(), env.collection.Name())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "seed/a", summaries[0].Source)
	assert.Equal(t, "seed/b", summaries[1].Source)
	for _, s := range summaries {
		assert.Equal(t, report.RunID, s.RunID)
		assert.Equal(t, 1, s.Current)
		assert.False(t, s.UpdatedAt.IsZero())
	}
}
