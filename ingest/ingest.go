// Package ingest loads knowledge-base source files, extracts their text and
// splits it into overlapping chunks ready for embedding.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/smallnest/agrigraph/advisor"
	"github.com/smallnest/agrigraph/log"
	"github.com/smallnest/agrigraph/ocr"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// Loader walks source files and produces embedding-ready chunks. PDF and
// plain-text files go through langchaingo loaders, HTML is stripped with
// goquery, and images go through OCR when an extractor is configured.
type Loader struct {
	splitter  textsplitter.TextSplitter
	extractor *ocr.Extractor
	logger    log.Logger
}

// Option customizes a Loader.
type Option func(*Loader)

// WithSplitter replaces the default recursive-character splitter.
func WithSplitter(splitter textsplitter.TextSplitter) Option {
	return func(l *Loader) { l.splitter = splitter }
}

// WithOCR enables image ingestion through the given extractor.
func WithOCR(extractor *ocr.Extractor) Option {
	return func(l *Loader) { l.extractor = extractor }
}

// WithLogger replaces the default logger.
func WithLogger(logger log.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader builds a loader with a 1000/200 recursive-character splitter.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(defaultChunkSize),
			textsplitter.WithChunkOverlap(defaultChunkOverlap),
		),
		logger: log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadDirectory walks dir recursively and chunks every supported file.
// Unsupported extensions are skipped with a debug log; a file that fails to
// load aborts the walk.
func (l *Loader) LoadDirectory(ctx context.Context, dir string) ([]advisor.Document, error) {
	var docs []advisor.Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		chunks, err := l.LoadFile(ctx, path)
		if err != nil {
			return err
		}
		docs = append(docs, chunks...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	l.logger.Info("loaded %d chunks from %s", len(docs), dir)
	return docs, nil
}

// LoadFile chunks a single file based on its extension. Unsupported
// extensions yield no chunks and no error.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]advisor.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return l.loadPDF(ctx, path)
	case ".txt", ".md":
		return l.loadText(ctx, path)
	case ".html", ".htm":
		return l.loadHTML(path)
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		return l.loadImage(path)
	default:
		l.logger.Debug("skipping unsupported file %s", path)
		return nil, nil
	}
}

func (l *Loader) loadPDF(ctx context.Context, path string) ([]advisor.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	chunks, err := documentloaders.NewPDF(f, info.Size()).LoadAndSplit(ctx, l.splitter)
	if err != nil {
		return nil, fmt.Errorf("failed to load pdf %s: %w", path, err)
	}

	docs := make([]advisor.Document, 0, len(chunks))
	for _, chunk := range chunks {
		metadata := map[string]any{"source": path}
		for k, v := range chunk.Metadata {
			metadata[k] = v
		}
		docs = append(docs, advisor.Document{Content: chunk.PageContent, Metadata: metadata})
	}
	return docs, nil
}

func (l *Loader) loadText(ctx context.Context, path string) ([]advisor.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	chunks, err := documentloaders.NewText(f).LoadAndSplit(ctx, l.splitter)
	if err != nil {
		return nil, fmt.Errorf("failed to load text %s: %w", path, err)
	}

	docs := make([]advisor.Document, 0, len(chunks))
	for _, chunk := range chunks {
		docs = append(docs, advisor.Document{
			Content:  chunk.PageContent,
			Metadata: map[string]any{"source": path},
		})
	}
	return docs, nil
}

func (l *Loader) loadHTML(path string) ([]advisor.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	page, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html %s: %w", path, err)
	}
	page.Find("script, style, nav, footer").Remove()
	text := strings.TrimSpace(page.Find("body").Text())
	if text == "" {
		text = strings.TrimSpace(page.Text())
	}

	return l.chunkText(text, path)
}

func (l *Loader) loadImage(path string) ([]advisor.Document, error) {
	if l.extractor == nil {
		l.logger.Debug("skipping image %s, ocr not configured", path)
		return nil, nil
	}
	text, err := l.extractor.ExtractFile(path)
	if err != nil {
		return nil, err
	}
	return l.chunkText(text, path)
}

// chunkText splits raw extracted text and tags each chunk with its source.
func (l *Loader) chunkText(text, source string) ([]advisor.Document, error) {
	if text == "" {
		return nil, nil
	}
	pieces, err := l.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split %s: %w", source, err)
	}
	docs := make([]advisor.Document, 0, len(pieces))
	for _, piece := range pieces {
		docs = append(docs, advisor.Document{
			Content:  piece,
			Metadata: map[string]any{"source": source},
		})
	}
	return docs, nil
}
