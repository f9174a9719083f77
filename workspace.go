// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package groundwork

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/poiesic/groundwork/ai"
	"github.com/poiesic/groundwork/ai/openai"
	"github.com/poiesic/groundwork/chunking"
	"github.com/poiesic/groundwork/config"
	"github.com/poiesic/groundwork/ingestion"
	"github.com/poiesic/groundwork/query"
	"github.com/poiesic/groundwork/reembed"
	"github.com/poiesic/groundwork/retrieval"
	"github.com/poiesic/groundwork/storage"
	"github.com/poiesic/groundwork/storage/badger"
)

// Workspace ties a configuration to its open database and AI provider.
// Every command of the application works through one.
type Workspace struct {
	config   *config.Config
	backend  *badger.Backend
	store    storage.CollectionStore
	provider ai.AIProvider
	logger   *slog.Logger
}

// Option configures a Workspace.
type Option func(*workspaceOptions)

type workspaceOptions struct {
	provider ai.AIProvider
	inMemory bool
}

// WithProvider replaces the OpenAI provider built from the configuration.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *workspaceOptions) {
		o.provider = provider
	}
}

// InMemory keeps the database in memory. Nothing is written to DBPath.
func InMemory() Option {
	return func(o *workspaceOptions) {
		o.inMemory = true
	}
}

// Open validates cfg, opens the database at cfg.DBPath and connects the
// AI provider.
func Open(cfg *config.Config, opts ...Option) (*Workspace, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &workspaceOptions{}
	for _, opt := range opts {
		opt(options)
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(cfg.AIConfig())
		if err != nil {
			return nil, err
		}
	}

	path := cfg.DBPath
	if options.inMemory {
		path = ""
	}
	backend, err := badger.OpenBackend(path, options.inMemory)
	if err != nil {
		provider.Close()
		return nil, err
	}

	store, err := badger.NewCollectionStore(backend, provider.Embedder(),
		badger.WithEmbeddingModel(cfg.Embedding.Model),
		badger.WithEmbedBatchSize(cfg.Embedding.BatchSize),
		badger.WithEmbedWorkers(cfg.Embedding.Workers),
		badger.WithRateLimit(cfg.Embedding.RequestsPerSecond, cfg.Embedding.Workers),
	)
	if err != nil {
		backend.Close()
		provider.Close()
		return nil, err
	}

	return &Workspace{
		config:   cfg,
		backend:  backend,
		store:    store,
		provider: provider,
		logger:   slog.Default().With("component", "workspace"),
	}, nil
}

// Close releases the store, the provider and the database.
func (w *Workspace) Close() error {
	var errs []error
	if err := w.store.Close(); err != nil {
		w.logger.Error("error closing collection store", "err", err)
		errs = append(errs, err)
	}
	if err := w.provider.Close(); err != nil {
		w.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := w.backend.Close(); err != nil {
		w.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (w *Workspace) Config() *config.Config {
	return w.config
}

func (w *Workspace) Store() storage.CollectionStore {
	return w.store
}

func (w *Workspace) Provider() ai.AIProvider {
	return w.provider
}

// Collection returns the configured collection, creating it on first use.
func (w *Workspace) Collection(ctx context.Context) (storage.Collection, error) {
	return w.store.GetOrCreateCollection(ctx, w.config.Collection)
}

// Loaders returns the document loaders selected by the configuration.
func (w *Workspace) Loaders() ([]ingestion.DocumentLoader, error) {
	pdf, err := ingestion.LoaderByName(w.config.Ingest.PDFExtractor)
	if err != nil {
		return nil, err
	}
	loaders := []ingestion.DocumentLoader{pdf}
	if w.config.Ingest.TextFiles {
		loaders = append(loaders, &ingestion.TextLoader{})
	}
	return loaders, nil
}

// NewIngestionPipeline creates a pipeline writing to the configured
// collection with the configured splitter and loaders. opts are applied last.
func (w *Workspace) NewIngestionPipeline(ctx context.Context, opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	collection, err := w.Collection(ctx)
	if err != nil {
		return nil, err
	}
	splitter, err := chunking.New(chunking.Strategy(w.config.Chunking.Strategy), w.config.Chunking.Size, w.config.Chunking.Overlap)
	if err != nil {
		return nil, err
	}
	loaders, err := w.Loaders()
	if err != nil {
		return nil, err
	}

	base := []ingestion.Option{
		ingestion.WithSplitter(splitter),
		ingestion.WithLoaders(loaders...),
		ingestion.WithManifests(w.store.Manifests()),
	}
	return ingestion.NewPipeline(collection, append(base, opts...)...)
}

// Ingest loads every supported file of dir into the configured collection.
// An empty dir means the configured data directory.
func (w *Workspace) Ingest(ctx context.Context, dir string) (*ingestion.Report, error) {
	if dir == "" {
		dir = w.config.DataDir
	}
	pipeline, err := w.NewIngestionPipeline(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.Run(ctx, dir)
}

// NewRetriever creates a retriever over the configured collection.
func (w *Workspace) NewRetriever(ctx context.Context) (*retrieval.Retriever, error) {
	collection, err := w.Collection(ctx)
	if err != nil {
		return nil, err
	}
	return retrieval.NewRetriever(collection, retrieval.WithDefaultK(w.config.Query.K))
}

// NewQueryPipeline creates a question answering pipeline over the
// configured collection and chat model. opts are applied last.
func (w *Workspace) NewQueryPipeline(ctx context.Context, opts ...query.Option) (*query.Pipeline, error) {
	retriever, err := w.NewRetriever(ctx)
	if err != nil {
		return nil, err
	}
	generator, err := query.NewAnswerGenerator(w.provider.ChatCompleter(), w.config.Chat.Model)
	if err != nil {
		return nil, err
	}
	builder, err := query.NewPromptBuilder(query.WithMaxPromptChars(w.config.Query.MaxPromptChars))
	if err != nil {
		return nil, err
	}

	base := []query.Option{
		query.WithK(w.config.Query.K),
		query.WithPromptBuilder(builder),
	}
	return query.NewPipeline(retriever, generator, append(base, opts...)...)
}

// NewReembedder creates a reembedder that moves the configured collection
// to the configured embedding model. Progress is written to progress.
func (w *Workspace) NewReembedder(ctx context.Context, progress io.Writer) (*reembed.Reembedder, error) {
	collection, err := w.store.GetCollection(ctx, w.config.Collection)
	if err != nil {
		return nil, err
	}
	cfg := reembed.DefaultConfig()
	cfg.BatchSize = w.config.Reembed.BatchSize
	cfg.MaxRetries = w.config.Reembed.MaxRetries
	cfg.RetryDelay = w.config.Reembed.Delay()
	return reembed.NewReembedder(collection, w.provider.Embedder(), w.config.Embedding.Model, cfg, progress)
}

// Sources summarizes what each source of the configured collection wrote.
func (w *Workspace) Sources(ctx context.Context) ([]ingestion.SourceSummary, error) {
	return ingestion.Summarize(ctx, w.store.Manifests(), w.config.Collection)
}

// Purge deletes stale chunks and the chunks of sources removed from the
// data directory. With dryRun nothing is deleted.
func (w *Workspace) Purge(ctx context.Context, dryRun bool) (*ingestion.PurgeReport, error) {
	collection, err := w.store.GetCollection(ctx, w.config.Collection)
	if err != nil {
		return nil, err
	}
	return ingestion.Purge(ctx, collection, w.store.Manifests(), w.config.DataDir, dryRun)
}
