package core

import (
	"encoding/binary"
	"fmt"
	"maps"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Well-known metadata keys attached to documents and chunks.
const (
	MetaSource      = "source"
	MetaPage        = "page"
	MetaTotalPages  = "total_pages"
	MetaChunkIndex  = "chunk_index"
	MetaChunkOffset = "chunk_offset"
)

// ID is a content-derived 64-bit identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the ID as 16 lowercase hex digits.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// ChunkID derives the stable identifier of a chunk from its position in a source.
// Re-ingesting the same source with the same split parameters yields the same IDs.
func ChunkID(source string, page, offset int) string {
	return IDFromContent(source + "#" + strconv.Itoa(page) + "@" + strconv.Itoa(offset)).String()
}

// Document is one loaded page of a source file.
type Document struct {
	Text     string
	Metadata map[string]string
}

// Source returns the originating file path, or "" when unknown.
func (d *Document) Source() string {
	return d.Metadata[MetaSource]
}

// Page returns the 1-based page number, or 0 when unknown.
func (d *Document) Page() int {
	page, err := strconv.Atoi(d.Metadata[MetaPage])
	if err != nil {
		return 0
	}
	return page
}

// Chunk is a bounded, overlapping substring of a Document's text.
type Chunk struct {
	ID       string
	Text     string
	Index    int // Position in the document's chunk sequence
	Offset   int // Rune offset of the first character in the document text
	Metadata map[string]string
}

// ChunkRecord is the stored form of a chunk.
type ChunkRecord struct {
	ID        string
	Text      string
	Metadata  map[string]string
	Vector    []float32 // Unit-length embedding computed by the store
	UpdatedAt time.Time
}

// CollectionInfo describes a named collection of chunk records.
type CollectionInfo struct {
	Name           string
	EmbeddingModel string
	Dimensions     int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// QueryResult is a single ranked hit returned by a collection query.
type QueryResult struct {
	ID       string
	Text     string
	Metadata map[string]string
	Score    float32 // Cosine similarity, higher is closer
}

// SourceManifest records which chunk IDs an ingestion run wrote for one source.
type SourceManifest struct {
	Collection string
	Source     string
	RunID      string
	Current    []string // IDs written by the latest run
	Known      []string // Every ID ever written for the source
	UpdatedAt  time.Time
}

// Stale returns the IDs that were written for the source in the past but
// not by the latest run.
func (m *SourceManifest) Stale() []string {
	current := make(map[string]struct{}, len(m.Current))
	for _, id := range m.Current {
		current[id] = struct{}{}
	}
	var stale []string
	for _, id := range m.Known {
		if _, ok := current[id]; !ok {
			stale = append(stale, id)
		}
	}
	return stale
}

// CopyMetadata returns a shallow copy of m that is safe to modify.
func CopyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m)
}
