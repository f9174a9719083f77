package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/poiesic/groundwork/core"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

// DocumentLoader turns a source file into Documents.
type DocumentLoader interface {
	// Supports reports whether the loader handles the file at path.
	Supports(path string) bool

	// Load reads path. Every returned Document carries source, page and
	// total_pages metadata.
	Load(ctx context.Context, path string) ([]core.Document, error)
}

// PDFLoader extracts plain text from each page of a PDF with langchaingo's
// PDF document loader. It produces one Document per page.
type PDFLoader struct {
	// Password unlocks encrypted PDFs.
	Password string
}

var _ DocumentLoader = (*PDFLoader)(nil)

// Supports reports whether path has a .pdf extension.
func (l *PDFLoader) Supports(path string) bool {
	return hasExtension(path, ".pdf")
}

// Load reads every page of the PDF at path.
func (l *PDFLoader) Load(ctx context.Context, path string) (docs []core.Document, err error) {
	f, size, err := openSized(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	defer recoverMalformed(&err)

	var opts []documentloaders.PDFOptions
	if l.Password != "" {
		opts = append(opts, documentloaders.WithPassword(l.Password))
	}
	pages, err := documentloaders.NewPDF(f, size, opts...).Load(ctx)
	if err != nil {
		return nil, err
	}
	return fromSchema(path, pages), nil
}

// RowsPDFLoader extracts PDF text row by row with ledongthuc/pdf, keeping the
// visual line structure that plain-text extraction flattens. Rows are joined
// with newlines, which gives the splitter line boundaries to cut on.
type RowsPDFLoader struct{}

var _ DocumentLoader = (*RowsPDFLoader)(nil)

// Supports reports whether path has a .pdf extension.
func (l *RowsPDFLoader) Supports(path string) bool {
	return hasExtension(path, ".pdf")
}

// Load reads every page of the PDF at path.
func (l *RowsPDFLoader) Load(ctx context.Context, path string) (docs []core.Document, err error) {
	f, size, err := openSized(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	defer recoverMalformed(&err)

	reader, err := pdf.NewReader(f, size)
	if err != nil {
		return nil, err
	}

	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}

		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			var b strings.Builder
			for _, text := range row.Content {
				b.WriteString(text.S)
			}
			lines = append(lines, b.String())
		}
		docs = append(docs, newDocument(path, strings.Join(lines, "\n"), i, total))
	}
	return docs, nil
}

// TextLoader loads .txt and .md files as a single page through langchaingo's
// text document loader.
type TextLoader struct{}

var _ DocumentLoader = (*TextLoader)(nil)

// Supports reports whether path is a text or markdown file.
func (l *TextLoader) Supports(path string) bool {
	return hasExtension(path, ".txt") || hasExtension(path, ".md")
}

// Load reads the file at path.
func (l *TextLoader) Load(ctx context.Context, path string) ([]core.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	docs, err := documentloaders.NewText(f).Load(ctx)
	if err != nil {
		return nil, err
	}
	return fromSchema(path, docs), nil
}

// LoaderByName returns the PDF loader selected by the pdf_extractor setting.
func LoaderByName(name string) (DocumentLoader, error) {
	switch name {
	case "", "plain":
		return &PDFLoader{}, nil
	case "rows":
		return &RowsPDFLoader{}, nil
	default:
		return nil, fmt.Errorf("unknown pdf extractor %q", name)
	}
}

func newDocument(source, text string, page, total int) core.Document {
	return core.Document{
		Text: text,
		Metadata: map[string]string{
			core.MetaSource:     source,
			core.MetaPage:       strconv.Itoa(page),
			core.MetaTotalPages: strconv.Itoa(total),
		},
	}
}

// fromSchema converts langchaingo documents, keeping their page numbering.
func fromSchema(source string, in []schema.Document) []core.Document {
	docs := make([]core.Document, len(in))
	for i, d := range in {
		page, ok := d.Metadata["page"].(int)
		if !ok {
			page = i + 1
		}
		total, ok := d.Metadata["total_pages"].(int)
		if !ok {
			total = len(in)
		}
		docs[i] = newDocument(source, d.PageContent, page, total)
	}
	return docs
}

func openSized(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// recoverMalformed turns a panic inside the PDF parser into an error.
func recoverMalformed(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("malformed pdf: %v", r)
	}
}

func hasExtension(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}

// StaticLoader serves documents held in memory, keyed by source name.
type StaticLoader struct {
	sources []string
	docs    map[string][]core.Document
}

var _ DocumentLoader = (*StaticLoader)(nil)

// NewStaticLoader creates an empty StaticLoader.
func NewStaticLoader() *StaticLoader {
	return &StaticLoader{docs: make(map[string][]core.Document)}
}

// Add registers the pages of a source. Source, page and total_pages metadata
// are filled in for every page.
func (l *StaticLoader) Add(source string, pages ...string) {
	if _, ok := l.docs[source]; !ok {
		l.sources = append(l.sources, source)
	}
	docs := make([]core.Document, len(pages))
	for i, text := range pages {
		docs[i] = newDocument(source, text, i+1, len(pages))
	}
	l.docs[source] = docs
}

// Sources returns the registered sources in insertion order.
func (l *StaticLoader) Sources() []string {
	return append([]string(nil), l.sources...)
}

// Supports reports whether source was registered.
func (l *StaticLoader) Supports(source string) bool {
	_, ok := l.docs[source]
	return ok
}

// Load returns copies of the registered pages of source.
func (l *StaticLoader) Load(ctx context.Context, source string) ([]core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, ok := l.docs[source]
	if !ok {
		return nil, os.ErrNotExist
	}
	out := make([]core.Document, len(docs))
	for i, d := range docs {
		out[i] = core.Document{Text: d.Text, Metadata: core.CopyMetadata(d.Metadata)}
	}
	return out, nil
}
