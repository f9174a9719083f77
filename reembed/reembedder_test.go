package reembed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/groundwork/ai/mock"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
	"github.com/poiesic/groundwork/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollection(t *testing.T, chunks int) storage.Collection {
	t.Helper()
	store, backend, err := badger.NewMemoryStore(mock.NewMockEmbedder(), badger.WithEmbeddingModel("old-model"))
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})

	collection, err := store.GetOrCreateCollection(t.Context(), "growing_vegetables")
	require.NoError(t, err)

	if chunks > 0 {
		ids := make([]string, chunks)
		texts := make([]string, chunks)
		metadatas := make([]map[string]string, chunks)
		for i := range chunks {
			ids[i] = fmt.Sprintf("chunk-%03d", i)
			texts[i] = fmt.Sprintf("Gardening note number %d about soil and sun.", i)
			metadatas[i] = map[string]string{core.MetaSource: "notes.pdf"}
		}
		require.NoError(t, collection.Upsert(t.Context(), ids, texts, metadatas))
	}
	return collection
}

func testConfig() *Config {
	return &Config{BatchSize: 4, ReportInterval: 5, MaxRetries: 3, RetryDelay: time.Millisecond}
}

func TestNewReembedder(t *testing.T) {
	collection := newTestCollection(t, 0)

	_, err := NewReembedder(nil, mock.NewMockEmbedder(), "m", nil, nil)
	assert.ErrorIs(t, err, ErrCollectionRequired)
	_, err = NewReembedder(collection, nil, "m", nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	r, err := NewReembedder(collection, mock.NewMockEmbedder(), "m", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, r.iterator.batchSize)
}

func TestReembedder_Run(t *testing.T) {
	collection := newTestCollection(t, 10)
	before, err := collection.Get(t.Context(), "chunk-003")
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = 8
	var progress bytes.Buffer
	r, err := NewReembedder(collection, embedder, "new-model", testConfig(), &progress)
	require.NoError(t, err)

	result, err := r.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 10, result.Chunks)
	assert.Equal(t, "new-model", result.Model)
	assert.Equal(t, 8, result.Dimensions)
	assert.Equal(t, 3, embedder.CallCount(), "10 chunks in batches of 4")

	info, err := collection.Info(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "new-model", info.EmbeddingModel)
	assert.Equal(t, 8, info.Dimensions)

	after, err := collection.Get(t.Context(), "chunk-003")
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, before[0].Text, after[0].Text)
	assert.Equal(t, before[0].Metadata, after[0].Metadata)
	assert.Len(t, after[0].Vector, 8)
	assert.InDelta(t, 1.0, core.Dot(after[0].Vector, after[0].Vector), 1e-5)

	assert.Contains(t, progress.String(), "Starting reembedding of 10 chunks")
	assert.Contains(t, progress.String(), "10/10 chunks")
	assert.Contains(t, progress.String(), "Reembedding complete")
}

func TestReembedder_EmptyCollection(t *testing.T) {
	collection := newTestCollection(t, 0)
	embedder := mock.NewMockEmbedder()
	var progress bytes.Buffer
	r, err := NewReembedder(collection, embedder, "new-model", testConfig(), &progress)
	require.NoError(t, err)

	result, err := r.Run(t.Context())
	require.NoError(t, err)
	assert.Zero(t, result.Chunks)
	assert.Zero(t, embedder.CallCount())
	assert.Contains(t, progress.String(), "No chunks found")
}

func TestReembedder_RetriesTransientFailures(t *testing.T) {
	collection := newTestCollection(t, 6)
	embedder := mock.NewMockEmbedder()
	var calls atomic.Int32
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("temporary outage")
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.WordVector(text, 16)
		}
		return out, nil
	}

	r, err := NewReembedder(collection, embedder, "new-model", testConfig(), nil)
	require.NoError(t, err)
	result, err := r.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 6, result.Chunks)
	assert.Equal(t, int32(3), calls.Load())
}

func TestReembedder_FailureLeavesModelUnchanged(t *testing.T) {
	collection := newTestCollection(t, 6)
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}

	r, err := NewReembedder(collection, embedder, "new-model", testConfig(), nil)
	require.NoError(t, err)
	_, err = r.Run(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding service down")

	info, err := collection.Info(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "old-model", info.EmbeddingModel)
}
