package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// BatchProcessor embeds batches of chunks and writes the new vectors back.
type BatchProcessor struct {
	collection     storage.Collection
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts per embedding request
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(collection storage.Collection, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		collection:     collection,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds the text of every record and replaces the stored vectors.
// It returns the dimension of the new vectors.
func (bp *BatchProcessor) Process(ctx context.Context, records []*core.ChunkRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	texts := make([]string, len(records))
	for i, record := range records {
		texts[i] = record.Text
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks: %w", len(records), err)
	}

	if len(embeddings) != len(records) {
		return 0, fmt.Errorf("%w: expected %d, got %d", ai.ErrEmbeddingCount, len(records), len(embeddings))
	}

	dims := len(embeddings[0])
	vectors := make(map[string][]float32, len(records))
	for i, record := range records {
		if len(embeddings[i]) != dims {
			return 0, fmt.Errorf("%w: %d and %d", ErrMixedDimensions, dims, len(embeddings[i]))
		}
		vectors[record.ID] = core.NormalizeVector(embeddings[i])
	}

	if err := bp.collection.UpdateVectors(ctx, vectors); err != nil {
		return 0, err
	}
	return dims, nil
}
