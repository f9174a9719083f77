package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/poiesic/groundwork/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

var gardeningSentences = []string{
	"Tomatoes need at least six hours of direct sun.",
	"Water deeply and less often to encourage deep roots.",
	"Mulch keeps the soil cool and holds moisture.",
	"Pinch out side shoots on cordon varieties.",
	"Feed with a high potash fertilizer once the first truss sets.",
	"Carrots prefer light, stone-free soil.",
	"Sow thinly to avoid the need for thinning.",
	"Cover with fleece to keep carrot fly away.",
	"Lettuce bolts in hot weather, so sow little and often.",
	"Harvest outer leaves to keep plants producing.",
}

// gardeningText builds a deterministic multi-paragraph text of roughly n runes.
func gardeningText(n int) string {
	var b strings.Builder
	for i := 0; b.Len() < n; i++ {
		b.WriteString(gardeningSentences[i%len(gardeningSentences)])
		switch {
		case i%7 == 6:
			b.WriteString("\n\n")
		case i%3 == 2:
			b.WriteString("\n")
		default:
			b.WriteString(" ")
		}
	}
	return b.String()
}

func newSplitter(t *testing.T, size, overlap int) *OverlapSplitter {
	t.Helper()
	s, err := NewOverlapSplitter(WithChunkSize(size), WithChunkOverlap(overlap))
	require.NoError(t, err)
	return s
}

// reconstruct rejoins chunks, dropping the leading overlap of every chunk after the first.
func reconstruct(chunks []string, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c)
			continue
		}
		b.WriteString(string([]rune(c)[overlap:]))
	}
	return b.String()
}

func assertOverlapInvariants(t *testing.T, text string, chunks []string, size, overlap int) {
	t.Helper()
	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), size, "chunk %d exceeds size", i)
		if i == 0 {
			continue
		}
		prev := []rune(chunks[i-1])
		cur := []rune(c)
		require.GreaterOrEqual(t, len(prev), overlap)
		require.GreaterOrEqual(t, len(cur), overlap)
		assert.Equal(t, string(prev[len(prev)-overlap:]), string(cur[:overlap]),
			"chunk %d does not share exactly %d characters with its predecessor", i, overlap)
	}
	assert.Equal(t, text, reconstruct(chunks, overlap))
}

func TestNewOverlapSplitter_Defaults(t *testing.T) {
	s, err := NewOverlapSplitter()
	require.NoError(t, err)
	assert.Equal(t, 300, s.ChunkSize())
	assert.Equal(t, 100, s.ChunkOverlap())
}

func TestNewOverlapSplitter_InvalidParams(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{name: "overlap equals size", opts: []Option{WithChunkSize(100), WithChunkOverlap(100)}},
		{name: "zero size", opts: []Option{WithChunkSize(0), WithChunkOverlap(0)}},
		{name: "negative overlap", opts: []Option{WithChunkOverlap(-5)}},
		{name: "empty separator", opts: []Option{WithSeparators([]string{"\n", ""})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewOverlapSplitter(tt.opts...)
			assert.ErrorIs(t, err, core.ErrInvalidSplitParams)
			assert.Nil(t, s)
		})
	}
}

func TestOverlapSplitter_ThousandCharacterDocument(t *testing.T) {
	// No natural boundaries: every cut is a hard cut at the size limit.
	text := strings.Repeat("abcdefghij", 100)
	s := newSplitter(t, 300, 100)

	spans, err := s.Spans(text)
	require.NoError(t, err)

	// With exactly 100 shared characters each chunk adds 200 new ones, so
	// 1000 characters need ceil((1000-100)/200) = 5 chunks.
	require.Len(t, spans, 5)
	wantBounds := [][2]int{{0, 300}, {200, 500}, {400, 700}, {600, 900}, {800, 1000}}
	for i, span := range spans {
		assert.Equal(t, wantBounds[i][0], span.Start, "span %d start", i)
		assert.Equal(t, wantBounds[i][1], span.End, "span %d end", i)
	}

	chunks, err := s.SplitText(text)
	require.NoError(t, err)
	assertOverlapInvariants(t, text, chunks, 300, 100)
	assert.LessOrEqual(t, len(chunks[len(chunks)-1]), 300)
}

func TestOverlapSplitter_Properties(t *testing.T) {
	params := []struct {
		size    int
		overlap int
	}{
		{size: 300, overlap: 100},
		{size: 200, overlap: 0},
		{size: 120, overlap: 119},
		{size: 50, overlap: 10},
		{size: 1, overlap: 0},
	}
	lengths := []int{1, 49, 300, 301, 1000, 4321}

	for _, p := range params {
		s := newSplitter(t, p.size, p.overlap)
		for _, n := range lengths {
			text := gardeningText(n)
			chunks, err := s.SplitText(text)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)
			assertOverlapInvariants(t, text, chunks, p.size, p.overlap)

			again, err := s.SplitText(text)
			require.NoError(t, err)
			assert.Equal(t, chunks, again, "splitting must be deterministic")
		}
	}
}

func TestOverlapSplitter_EmptyAndShortText(t *testing.T) {
	s := newSplitter(t, 300, 100)

	chunks, err := s.SplitText("")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = s.SplitText("Plant garlic in autumn.")
	require.NoError(t, err)
	assert.Equal(t, []string{"Plant garlic in autumn."}, chunks)

	exact := strings.Repeat("x", 300)
	chunks, err = s.SplitText(exact)
	require.NoError(t, err)
	assert.Equal(t, []string{exact}, chunks)
}

func TestOverlapSplitter_PrefersParagraphBoundary(t *testing.T) {
	text := strings.Repeat("a", 250) + "\n\n" + strings.Repeat("b ", 200)
	s := newSplitter(t, 300, 100)

	chunks, err := s.SplitText(text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	assert.Equal(t, 252, utf8.RuneCountInString(chunks[0]))
	assert.True(t, strings.HasSuffix(chunks[0], "\n\n"), "first cut should follow the paragraph break")
	assertOverlapInvariants(t, text, chunks, 300, 100)
}

func TestOverlapSplitter_PrefersSentenceOverWord(t *testing.T) {
	// A sentence end at 260 and plenty of spaces after it.
	text := strings.Repeat("w", 258) + ". " + strings.Repeat("word ", 60)
	s := newSplitter(t, 300, 100)

	chunks, err := s.SplitText(text)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(chunks[0], ". "), "got %q", chunks[0][len(chunks[0])-5:])
	assertOverlapInvariants(t, text, chunks, 300, 100)
}

func TestOverlapSplitter_IgnoresBoundaryTooCloseToOverlap(t *testing.T) {
	// The only paragraph break sits just past the overlap region; taking it
	// would advance by a single character.
	text := strings.Repeat("a", 101) + "\n\n" + strings.Repeat("c", 600)
	s := newSplitter(t, 300, 100)

	chunks, err := s.SplitText(text)
	require.NoError(t, err)
	assert.Equal(t, 300, utf8.RuneCountInString(chunks[0]), "expected a hard cut at the size limit")
	assertOverlapInvariants(t, text, chunks, 300, 100)
}

func TestOverlapSplitter_CountsRunes(t *testing.T) {
	text := strings.Repeat("é", 350)
	s := newSplitter(t, 300, 100)

	spans, err := s.Spans(text)
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, 300, utf8.RuneCountInString(spans[0].Text))
	assert.Equal(t, 150, utf8.RuneCountInString(spans[1].Text))
	assert.Equal(t, 200, spans[1].Start)
}

func TestOverlapSplitter_WithSeparatorsNone(t *testing.T) {
	s, err := NewOverlapSplitter(WithChunkSize(10), WithChunkOverlap(2), WithSeparators(nil))
	require.NoError(t, err)

	chunks, err := s.SplitText("one two three four five")
	require.NoError(t, err)
	assert.Equal(t, "one two th", chunks[0])
	assertOverlapInvariants(t, "one two three four five", chunks, 10, 2)
}

func TestSplitDocument(t *testing.T) {
	doc := core.Document{
		Text: gardeningText(900),
		Metadata: map[string]string{
			core.MetaSource:     "data/tomatoes.pdf",
			core.MetaPage:       "4",
			core.MetaTotalPages: "12",
		},
	}
	s := newSplitter(t, 300, 100)

	chunks, err := SplitDocument(s, doc)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	seen := map[string]bool{}
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, core.ChunkID("data/tomatoes.pdf", 4, c.Offset), c.ID)
		assert.False(t, seen[c.ID], "duplicate chunk id %s", c.ID)
		seen[c.ID] = true

		assert.Equal(t, "data/tomatoes.pdf", c.Metadata[core.MetaSource])
		assert.Equal(t, "4", c.Metadata[core.MetaPage])
		assert.Equal(t, "12", c.Metadata[core.MetaTotalPages])
	}

	// Parent metadata is untouched.
	assert.Len(t, doc.Metadata, 3)

	again, err := SplitDocument(s, doc)
	require.NoError(t, err)
	assert.Equal(t, chunks, again)
}

func TestOverlapSplitter_LangchaingoSplitDocuments(t *testing.T) {
	s := newSplitter(t, 300, 100)
	docs := []schema.Document{{
		PageContent: gardeningText(700),
		Metadata:    map[string]any{"source": "data/peas.pdf", "page": 1},
	}}

	split, err := textsplitter.SplitDocuments(s, docs)
	require.NoError(t, err)
	require.Greater(t, len(split), 1)
	for _, d := range split {
		assert.Equal(t, "data/peas.pdf", d.Metadata["source"])
	}
}

func TestNew(t *testing.T) {
	s, err := New(StrategyOverlap, 300, 100)
	require.NoError(t, err)
	assert.IsType(t, &OverlapSplitter{}, s)

	s, err = New("", 300, 100)
	require.NoError(t, err)
	assert.IsType(t, &OverlapSplitter{}, s)

	s, err = New(StrategyRecursive, 300, 100)
	require.NoError(t, err)
	assert.IsType(t, &RecursiveSplitter{}, s)

	_, err = New("semantic", 300, 100)
	assert.ErrorIs(t, err, core.ErrInvalidSplitParams)
}
