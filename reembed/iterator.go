package reembed

import (
	"context"

	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

const (
	// DefaultBatchSize is the default number of chunks embedded per request
	DefaultBatchSize = 100
)

// ChunkIterator walks every chunk of a collection in batches.
type ChunkIterator struct {
	collection storage.Collection
	batchSize  int
}

// NewChunkIterator creates a new chunk iterator.
// batchSize: number of chunks handed to fn at a time (defaults when <= 0)
func NewChunkIterator(collection storage.Collection, batchSize int) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ChunkIterator{
		collection: collection,
		batchSize:  batchSize,
	}
}

// ForEach calls fn with consecutive batches of chunks in id order. The last
// batch may be short. Iteration stops on the first error from fn or the
// collection, and when ctx is done.
func (it *ChunkIterator) ForEach(ctx context.Context, fn func([]*core.ChunkRecord) error) error {
	batch := make([]*core.ChunkRecord, 0, it.batchSize)

	err := it.collection.ForEach(ctx, func(record *core.ChunkRecord) error {
		batch = append(batch, record)
		if len(batch) < it.batchSize {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		batch = make([]*core.ChunkRecord, 0, it.batchSize)
		return ctx.Err()
	})
	if err != nil {
		return err
	}

	if len(batch) == 0 {
		return nil
	}
	return fn(batch)
}
