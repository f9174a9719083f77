package chunking

import (
	"strings"
	"unicode/utf8"

	"github.com/poiesic/groundwork/core"
	"github.com/tmc/langchaingo/textsplitter"
)

// RecursiveSplitter adapts langchaingo's RecursiveCharacter splitter to SpanSplitter.
type RecursiveSplitter struct {
	splitter textsplitter.RecursiveCharacter
}

var _ SpanSplitter = (*RecursiveSplitter)(nil)

// NewRecursiveSplitter creates a recursive character splitter measuring length in runes.
func NewRecursiveSplitter(size, overlap int) (*RecursiveSplitter, error) {
	if err := core.ValidateSplitParams(size, overlap); err != nil {
		return nil, err
	}
	return &RecursiveSplitter{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithLenFunc(utf8.RuneCountInString),
		),
	}, nil
}

// SplitText implements textsplitter.TextSplitter.
func (s *RecursiveSplitter) SplitText(text string) ([]string, error) {
	return s.splitter.SplitText(text)
}

// Spans splits text and locates each chunk in the original.
// Chunks that cannot be found verbatim (the underlying splitter rejoins
// pieces with their separator) are placed one rune after their predecessor
// so that offsets stay strictly increasing and IDs stay distinct.
func (s *RecursiveSplitter) Spans(text string) ([]Span, error) {
	texts, err := s.splitter.SplitText(text)
	if err != nil {
		return nil, err
	}

	spans := make([]Span, 0, len(texts))
	searchFrom := 0 // byte offset
	prevStart := -1 // rune offset
	for _, chunk := range texts {
		start := -1
		if idx := strings.Index(text[searchFrom:], chunk); idx >= 0 {
			byteStart := searchFrom + idx
			start = utf8.RuneCountInString(text[:byteStart])
			if start <= prevStart {
				start = -1
			} else {
				searchFrom = byteStart + 1
				for searchFrom < len(text) && !utf8.RuneStart(text[searchFrom]) {
					searchFrom++
				}
			}
		}
		if start < 0 {
			start = prevStart + 1
		}
		spans = append(spans, Span{
			Start: start,
			End:   start + utf8.RuneCountInString(chunk),
			Text:  chunk,
		})
		prevStart = start
	}
	return spans, nil
}
