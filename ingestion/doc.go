// Package ingestion loads source files into a vector collection.
//
// A Pipeline lists a directory, hands each file to the first DocumentLoader
// that supports it, splits every page into overlapping chunks and writes the
// whole batch with a single Collection.Upsert. Chunk IDs are derived from the
// source path, page and chunk offset, so re-running the same directory
// replaces chunks in place instead of duplicating them.
//
// Files that cannot be loaded are reported as *InputError values in the
// Report and do not stop the run. A missing directory or a store failure
// aborts it.
//
// When a ManifestRepository is configured the pipeline remembers which chunk
// IDs each source wrote. Chunks a source no longer produces are reported as
// stale and left in place until Purge removes them.
package ingestion
