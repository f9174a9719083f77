package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks embedded per request
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per embedding request
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Result summarizes a reembedding run.
type Result struct {
	Chunks     int
	Model      string
	Dimensions int
	Elapsed    time.Duration
}

// Reembedder replaces every vector of a collection with one from a new embedder.
type Reembedder struct {
	collection storage.Collection
	model      string
	config     *Config
	progress   io.Writer
	processor  *BatchProcessor
	iterator   *ChunkIterator
	logger     *slog.Logger
}

// NewReembedder creates a new reembedder. model is recorded on the collection
// once every chunk has been reembedded.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(collection storage.Collection, embedder ai.Embedder, model string, config *Config, progress io.Writer) (*Reembedder, error) {
	if collection == nil {
		return nil, ErrCollectionRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		collection: collection,
		model:      model,
		config:     config,
		progress:   progress,
		processor:  NewBatchProcessor(collection, embedder, config.MaxRetries, config.RetryDelay),
		iterator:   NewChunkIterator(collection, config.BatchSize),
		logger:     slog.Default().With("component", "reembed", "collection", collection.Name()),
	}, nil
}

// Run reembeds every chunk of the collection and then records the model and
// dimensions on it. A failed run leaves the chunks processed so far with
// their new vectors and the collection metadata unchanged.
func (r *Reembedder) Run(ctx context.Context) (*Result, error) {
	total, err := r.collection.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	result := &Result{Model: r.model}
	if total == 0 {
		fmt.Fprintf(r.progress, "No chunks found in collection %s\n", r.collection.Name())
		return result, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d chunks (batch size: %d)\n",
		total, r.iterator.batchSize)

	status := newProgress(r.progress, total, r.config.ReportInterval)

	err = r.iterator.ForEach(ctx, func(records []*core.ChunkRecord) error {
		dims, err := r.processor.Process(ctx, records)
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		if result.Dimensions != 0 && dims != result.Dimensions {
			return fmt.Errorf("%w: %d and %d", ErrMixedDimensions, result.Dimensions, dims)
		}
		result.Dimensions = dims
		status.advance(len(records))
		return nil
	})
	if err != nil {
		r.logger.Error("reembedding stopped", "processed", status.done, "total", total, "err", err)
		return nil, err
	}
	elapsed := status.finish()

	if err := r.collection.SetEmbeddingModel(ctx, r.model, result.Dimensions); err != nil {
		return nil, err
	}

	result.Chunks = status.done
	result.Elapsed = elapsed
	fmt.Fprintf(r.progress, "Reembedding complete: %d chunks with %s in %v (%s)\n",
		result.Chunks, r.model, result.Elapsed.Round(time.Millisecond), rate(result.Chunks, result.Elapsed))

	return result, nil
}
