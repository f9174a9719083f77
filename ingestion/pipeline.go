package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/groundwork/chunking"
	"github.com/poiesic/groundwork/core"
	"github.com/poiesic/groundwork/storage"
)

// Pipeline loads source files, splits them into chunks and writes every chunk
// to a collection in a single upsert.
type Pipeline struct {
	collection storage.Collection
	manifests  storage.ManifestRepository
	splitter   chunking.SpanSplitter
	loaders    []DocumentLoader
	newRunID   func() string
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithSplitter sets the chunk splitter.
// Default is an OverlapSplitter with 300 character chunks and 100 characters of overlap.
func WithSplitter(splitter chunking.SpanSplitter) Option {
	return func(p *Pipeline) error {
		if splitter == nil {
			return ErrSplitterRequired
		}
		p.splitter = splitter
		return nil
	}
}

// WithLoaders replaces the document loaders. For each file the first loader
// that supports it is used. Default is a single PDFLoader.
func WithLoaders(loaders ...DocumentLoader) Option {
	return func(p *Pipeline) error {
		p.loaders = loaders
		return nil
	}
}

// WithManifests enables source manifest tracking. Without it the pipeline
// writes chunks only and reports no stale counts.
func WithManifests(manifests storage.ManifestRepository) Option {
	return func(p *Pipeline) error {
		p.manifests = manifests
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline writing to collection.
func NewPipeline(collection storage.Collection, opts ...Option) (*Pipeline, error) {
	if collection == nil {
		return nil, ErrCollectionRequired
	}

	splitter, err := chunking.NewOverlapSplitter()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		collection: collection,
		splitter:   splitter,
		loaders:    []DocumentLoader{&PDFLoader{}},
		newRunID:   uuid.NewString,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "ingestion", "collection", collection.Name())
	return p, nil
}

// Report summarizes one ingestion run.
type Report struct {
	RunID      string
	Collection string
	Sources    int // Sources that loaded successfully
	Documents  int
	Chunks     int
	Stale      int // Chunks known for a source but not rewritten by this run
	Failures   []*InputError
	Duration   time.Duration
}

// Run ingests every regular file of dir in lexical order. Hidden files and
// subdirectories are skipped. Per-file failures are collected in the report;
// a missing or unreadable dir is returned as an *InputError.
func (p *Pipeline) Run(ctx context.Context, dir string) (*Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &InputError{Source: dir, Err: err}
	}

	sources := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || entry.IsDir() {
			p.logger.Debug("skipping entry", "name", name)
			continue
		}
		sources = append(sources, filepath.Join(dir, name))
	}
	return p.Ingest(ctx, sources...)
}

// sourceBatch is the set of chunks produced for one source.
type sourceBatch struct {
	source string
	ids    []string
}

// Ingest loads, splits and stores the given sources.
func (p *Pipeline) Ingest(ctx context.Context, sources ...string) (*Report, error) {
	started := time.Now()
	report := &Report{
		RunID:      p.newRunID(),
		Collection: p.collection.Name(),
	}
	logger := p.logger.With("run_id", report.RunID)
	logger.Info("ingestion started", "sources", len(sources))

	var (
		ids       []string
		texts     []string
		metadatas []map[string]string
		batches   []sourceBatch
	)

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunks, docs, err := p.loadSource(ctx, source)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			inputErr := &InputError{Source: source, Err: err}
			logger.Warn("skipping source", "source", source, "err", err)
			report.Failures = append(report.Failures, inputErr)
			continue
		}

		batch := sourceBatch{source: source, ids: make([]string, len(chunks))}
		for i, chunk := range chunks {
			batch.ids[i] = chunk.ID
			ids = append(ids, chunk.ID)
			texts = append(texts, chunk.Text)
			metadatas = append(metadatas, chunk.Metadata)
		}
		batches = append(batches, batch)
		report.Sources++
		report.Documents += docs
		logger.Debug("loaded source", "source", source, "documents", docs, "chunks", len(chunks))
	}

	if len(ids) == 0 {
		logger.Warn("no chunks produced, skipping upsert")
		report.Duration = time.Since(started)
		return report, nil
	}

	if err := p.collection.Upsert(ctx, ids, texts, metadatas); err != nil {
		return nil, err
	}
	report.Chunks = len(ids)

	stale, err := p.updateManifests(ctx, report.RunID, batches)
	if err != nil {
		return nil, err
	}
	report.Stale = stale
	report.Duration = time.Since(started)

	logger.Info("ingestion finished",
		"sources", report.Sources,
		"chunks", report.Chunks,
		"stale", report.Stale,
		"failures", len(report.Failures),
		"duration", report.Duration)
	return report, nil
}

func (p *Pipeline) loaderFor(source string) DocumentLoader {
	for _, loader := range p.loaders {
		if loader.Supports(source) {
			return loader
		}
	}
	return nil
}

// loadSource returns the chunks of every page of source and the page count.
func (p *Pipeline) loadSource(ctx context.Context, source string) ([]core.Chunk, int, error) {
	loader := p.loaderFor(source)
	if loader == nil {
		return nil, 0, ErrUnsupportedFormat
	}

	docs, err := loader.Load(ctx, source)
	if err != nil {
		return nil, 0, err
	}

	var chunks []core.Chunk
	for _, doc := range docs {
		split, err := chunking.SplitDocument(p.splitter, doc)
		if err != nil {
			return nil, 0, err
		}
		chunks = append(chunks, split...)
	}
	return chunks, len(docs), nil
}

// updateManifests records the ids each source wrote in this run and returns
// how many previously written chunks are now stale.
func (p *Pipeline) updateManifests(ctx context.Context, runID string, batches []sourceBatch) (int, error) {
	if p.manifests == nil {
		return 0, nil
	}

	stale := 0
	manifests := make([]*core.SourceManifest, 0, len(batches))
	for _, batch := range batches {
		manifest, err := p.manifests.GetManifest(ctx, p.collection.Name(), batch.source)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			manifest = &core.SourceManifest{Collection: p.collection.Name(), Source: batch.source}
		case err != nil:
			return 0, err
		}

		manifest.RunID = runID
		manifest.Current = batch.ids
		manifest.Known = mergeIDs(manifest.Known, batch.ids)
		stale += len(manifest.Stale())
		manifests = append(manifests, manifest)
	}

	if err := p.manifests.SaveManifests(ctx, manifests...); err != nil {
		return 0, err
	}
	return stale, nil
}

// mergeIDs appends the ids of add missing from known, keeping order.
func mergeIDs(known, add []string) []string {
	seen := make(map[string]struct{}, len(known)+len(add))
	merged := make([]string, 0, len(known)+len(add))
	for _, list := range [][]string{known, add} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	return merged
}
