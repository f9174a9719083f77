package core

import (
	"slices"
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "plain content", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestID_String(t *testing.T) {
	if got := ID(0xab).String(); got != "00000000000000ab" {
		t.Errorf("ID.String() = %q, want %q", got, "00000000000000ab")
	}
}

func TestChunkID(t *testing.T) {
	base := ChunkID("data/tomatoes.pdf", 1, 200)

	if len(base) != 16 {
		t.Errorf("ChunkID() length = %d, want 16", len(base))
	}
	if again := ChunkID("data/tomatoes.pdf", 1, 200); again != base {
		t.Errorf("ChunkID() not stable: %q vs %q", base, again)
	}

	variants := []struct {
		name   string
		source string
		page   int
		offset int
	}{
		{name: "different source", source: "data/peppers.pdf", page: 1, offset: 200},
		{name: "different page", source: "data/tomatoes.pdf", page: 2, offset: 200},
		{name: "different offset", source: "data/tomatoes.pdf", page: 1, offset: 400},
	}
	for _, tt := range variants {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChunkID(tt.source, tt.page, tt.offset); got == base {
				t.Errorf("ChunkID(%q, %d, %d) collided with base id", tt.source, tt.page, tt.offset)
			}
		})
	}
}

func TestDocument_Accessors(t *testing.T) {
	doc := Document{
		Text:     "Sow carrots thinly.",
		Metadata: map[string]string{MetaSource: "data/carrots.pdf", MetaPage: "3"},
	}
	if doc.Source() != "data/carrots.pdf" {
		t.Errorf("Source() = %q", doc.Source())
	}
	if doc.Page() != 3 {
		t.Errorf("Page() = %d, want 3", doc.Page())
	}

	empty := Document{}
	if empty.Page() != 0 {
		t.Errorf("Page() on document without metadata = %d, want 0", empty.Page())
	}
}

func TestSourceManifest_Stale(t *testing.T) {
	tests := []struct {
		name     string
		manifest SourceManifest
		want     []string
	}{
		{
			name:     "nothing stale",
			manifest: SourceManifest{Current: []string{"a", "b"}, Known: []string{"a", "b"}},
			want:     nil,
		},
		{
			name:     "old ids not rewritten",
			manifest: SourceManifest{Current: []string{"b"}, Known: []string{"a", "b", "c"}},
			want:     []string{"a", "c"},
		},
		{
			name:     "source vanished",
			manifest: SourceManifest{Known: []string{"a"}},
			want:     []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.manifest.Stale()
			if !slices.Equal(got, tt.want) {
				t.Errorf("Stale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCopyMetadata(t *testing.T) {
	orig := map[string]string{"source": "a.pdf"}
	cp := CopyMetadata(orig)
	cp["page"] = "1"

	if _, ok := orig["page"]; ok {
		t.Errorf("CopyMetadata() returned a map aliasing the original")
	}
	if CopyMetadata(nil) == nil {
		t.Errorf("CopyMetadata(nil) returned nil")
	}
}
