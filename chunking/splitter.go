package chunking

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/poiesic/groundwork/core"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the default maximum chunk length in characters.
	DefaultChunkSize = 300
	// DefaultChunkOverlap is the default number of characters shared by consecutive chunks.
	DefaultChunkOverlap = 100
)

// Strategy names a splitting algorithm.
type Strategy string

const (
	// StrategyOverlap selects the exact-overlap OverlapSplitter.
	StrategyOverlap Strategy = "overlap"
	// StrategyRecursive selects langchaingo's recursive character splitter.
	StrategyRecursive Strategy = "recursive"
)

// DefaultSeparators lists natural boundaries from most to least preferred.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", " "}

// Span locates a chunk inside the source text. Start and End are rune offsets.
type Span struct {
	Start int
	End   int
	Text  string
}

// SpanSplitter splits text into located chunks.
type SpanSplitter interface {
	textsplitter.TextSplitter

	// Spans returns the chunks of text in order, with their rune offsets.
	Spans(text string) ([]Span, error)
}

// OverlapSplitter cuts text into chunks of at most ChunkSize runes where each
// chunk after the first begins with the last ChunkOverlap runes of its predecessor.
type OverlapSplitter struct {
	chunkSize    int
	chunkOverlap int
	separators   [][]rune
}

var _ SpanSplitter = (*OverlapSplitter)(nil)

// Option configures an OverlapSplitter.
type Option func(*OverlapSplitter) error

// WithChunkSize sets the maximum chunk length in runes.
func WithChunkSize(size int) Option {
	return func(s *OverlapSplitter) error {
		s.chunkSize = size
		return nil
	}
}

// WithChunkOverlap sets the number of runes shared by consecutive chunks.
func WithChunkOverlap(overlap int) Option {
	return func(s *OverlapSplitter) error {
		s.chunkOverlap = overlap
		return nil
	}
}

// WithSeparators replaces the boundary preference list.
// An empty list makes every cut a hard cut at the size limit.
func WithSeparators(separators []string) Option {
	return func(s *OverlapSplitter) error {
		s.separators = s.separators[:0]
		for _, sep := range separators {
			if sep == "" {
				return fmt.Errorf("%w: empty separator", core.ErrInvalidSplitParams)
			}
			s.separators = append(s.separators, []rune(sep))
		}
		return nil
	}
}

// NewOverlapSplitter creates an OverlapSplitter with the default size, overlap
// and separators, then applies opts.
func NewOverlapSplitter(opts ...Option) (*OverlapSplitter, error) {
	s := &OverlapSplitter{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, sep := range DefaultSeparators {
		s.separators = append(s.separators, []rune(sep))
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if err := core.ValidateSplitParams(s.chunkSize, s.chunkOverlap); err != nil {
		return nil, err
	}
	return s, nil
}

// ChunkSize returns the configured maximum chunk length.
func (s *OverlapSplitter) ChunkSize() int { return s.chunkSize }

// ChunkOverlap returns the configured overlap.
func (s *OverlapSplitter) ChunkOverlap() int { return s.chunkOverlap }

// SplitText implements textsplitter.TextSplitter.
func (s *OverlapSplitter) SplitText(text string) ([]string, error) {
	spans, err := s.Spans(text)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(spans))
	for i, span := range spans {
		texts[i] = span.Text
	}
	return texts, nil
}

// Spans splits text. Empty text yields no spans; text no longer than the
// chunk size yields a single span.
func (s *OverlapSplitter) Spans(text string) ([]Span, error) {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil, nil
	}

	// A cut must leave at least this many new runes in the chunk, so a boundary
	// sitting just past the overlap cannot make the splitter crawl.
	minAdvance := max(1, (s.chunkSize-s.chunkOverlap)/2)

	var spans []Span
	start := 0
	for {
		if total-start <= s.chunkSize {
			spans = append(spans, Span{Start: start, End: total, Text: string(runes[start:])})
			return spans, nil
		}

		limit := start + s.chunkSize
		end := s.findCut(runes, start, start+s.chunkOverlap+minAdvance, limit)
		spans = append(spans, Span{Start: start, End: end, Text: string(runes[start:end])})
		start = end - s.chunkOverlap
	}
}

// findCut returns the end of the next chunk: the latest position in
// [lo, hi] that directly follows the most preferred separator, or hi.
func (s *OverlapSplitter) findCut(runes []rune, start, lo, hi int) int {
	for _, sep := range s.separators {
		for p := hi; p >= lo; p-- {
			from := p - len(sep)
			if from < start {
				break
			}
			if slices.Equal(runes[from:p], sep) {
				return p
			}
		}
	}
	return hi
}

// New builds a splitter for the named strategy.
func New(strategy Strategy, size, overlap int) (SpanSplitter, error) {
	switch strategy {
	case StrategyOverlap, "":
		return NewOverlapSplitter(WithChunkSize(size), WithChunkOverlap(overlap))
	case StrategyRecursive:
		return NewRecursiveSplitter(size, overlap)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", core.ErrInvalidSplitParams, strategy)
	}
}

// SplitDocument splits doc into chunks. Each chunk carries a copy of the
// document metadata plus its index and offset, and a stable ID derived from
// the document source, page and chunk offset.
func SplitDocument(splitter SpanSplitter, doc core.Document) ([]core.Chunk, error) {
	spans, err := splitter.Spans(doc.Text)
	if err != nil {
		return nil, err
	}

	source := doc.Source()
	page := doc.Page()
	chunks := make([]core.Chunk, len(spans))
	for i, span := range spans {
		metadata := core.CopyMetadata(doc.Metadata)
		metadata[core.MetaChunkIndex] = strconv.Itoa(i)
		metadata[core.MetaChunkOffset] = strconv.Itoa(span.Start)

		chunks[i] = core.Chunk{
			ID:       core.ChunkID(source, page, span.Start),
			Text:     span.Text,
			Index:    i,
			Offset:   span.Start,
			Metadata: metadata,
		}
	}
	return chunks, nil
}
