// Package reembed replaces the vectors of a collection after the embedding
// model changes.
//
// Chunks are read in batches, embedded with retry and exponential backoff,
// normalized to unit length and written back in place. Text and metadata are
// never touched. Progress is reported to a writer, typically stderr. When all
// chunks are done the collection records the new model and its dimensions.
package reembed
