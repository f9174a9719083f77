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

// Package storage provides the storage abstraction layer for groundwork.
//
// This package defines the collection interfaces that decouple the vector
// store implementation from the ingestion and query pipelines.
//
// # Constructor Return Type Pattern
//
// Public constructors in implementation packages return interfaces:
//
//	store, err := badger.NewCollectionStore(backend, embedder)  // returns storage.CollectionStore
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Architecture
//
//   - CollectionStore: create, open, list and delete named collections
//   - Collection: upsert chunks, similarity query, maintenance operations
//   - ManifestRepository: per-source record of written chunk ids, used to
//     find stale chunks
//
// A Collection owns the embedding step. Upsert and Query take text and
// the collection turns it into vectors with the embedder it was opened
// with, so callers never handle vectors on the ingest and query paths.
//
// # Errors
//
// Failed operations are reported as *StoreError carrying the operation and
// collection name. Use errors.Is(err, storage.ErrStore) to recognize them and
// errors.Is with the sentinels (ErrCollectionNotFound, ErrBatchMismatch, ...)
// to find the cause.
//
// # Usage
//
//	backend, err := badger.OpenBackend("./chroma_db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	store, err := badger.NewCollectionStore(backend, provider.Embedder())
//	col, err := store.GetOrCreateCollection(ctx, "growing_vegetables")
//	err = col.Upsert(ctx, ids, texts, metadatas)
//	results, err := col.Query(ctx, "How deep do I plant potatoes?", 4)
//
// # Thread Safety
//
// All implementations must be thread-safe. The pipelines themselves run one
// writer at a time against a collection.
package storage
