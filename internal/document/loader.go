package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"knowledge-butler/internal/contextutil"
)

// ErrLoad is returned when a source document cannot be opened or parsed, or
// yields no extractable text.
var ErrLoad = errors.New("document load failed")

// Loader extracts raw text from a source file and drives the normalizer and
// splitter to produce chunk records. Supported formats: .pdf, .txt, .md.
type Loader struct {
	normalizer *Normalizer
	splitter   *Splitter
	parser     goldmark.Markdown
}

// NewLoader creates a Loader around the given normalizer and splitter.
func NewLoader(normalizer *Normalizer, splitter *Splitter) *Loader {
	return &Loader{
		normalizer: normalizer,
		splitter:   splitter,
		parser:     goldmark.New(),
	}
}

// Load extracts text from the file at path, normalizes it, splits it and
// wraps the result as chunks with increasing sequence indexes. The source ID
// of every chunk is the file path. Unreadable or empty documents fail with an
// ErrLoad-wrapped error; callers on the upload path surface that loudly.
func (l *Loader) Load(ctx context.Context, path string) ([]Chunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var (
		text string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		text, err = l.extractPDF(ctx, path)
	case ".txt", ".text":
		text, err = l.extractPlain(path)
	case ".md", ".markdown":
		text, err = l.extractMarkdown(path)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrLoad, ext)
	}
	if err != nil {
		return nil, err
	}

	normalized := l.normalizer.Normalize(text)
	if strings.TrimSpace(normalized) == "" {
		return nil, fmt.Errorf("%w: no extractable text in %s", ErrLoad, path)
	}

	parts := l.splitter.Split(normalized)
	chunks := make([]Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, Chunk{
			Text:          part,
			SequenceIndex: i,
			SourceID:      path,
		})
	}

	logger.InfoContext(ctx, "document loaded", "path", path, "chunks", len(chunks), "text_length", len(normalized))
	return chunks, nil
}

// extractPDF extracts text page by page and joins pages with paragraph
// separators. Pages that fail to decode are skipped with a warning; the whole
// document fails only when nothing at all could be extracted.
func (l *Loader) extractPDF(ctx context.Context, path string) (text string, err error) {
	logger := contextutil.LoggerFromContext(ctx)

	// The pdf library panics on some malformed inputs; a corrupt upload must
	// become an ErrLoad, not a crash.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: parse pdf %s: %v", ErrLoad, path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf %s: %v", ErrLoad, path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var pages []string
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			logger.WarnContext(ctx, "skipping unreadable pdf page", "path", path, "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		pages = append(pages, pageText)
	}

	if len(pages) == 0 {
		return "", fmt.Errorf("%w: no extractable text in %s", ErrLoad, path)
	}
	return strings.Join(pages, "\n\n"), nil
}

func (l *Loader) extractPlain(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrLoad, path, err)
	}
	return string(content), nil
}

// extractMarkdown renders markdown to plain text by walking the goldmark AST
// and collecting text segments, with paragraph separators between blocks.
func (l *Loader) extractMarkdown(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrLoad, path, err)
	}

	doc := l.parser.Parser().Parse(gmtext.NewReader(content))

	var builder strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.ListItem:
			if builder.Len() > 0 && !strings.HasSuffix(builder.String(), "\n\n") {
				builder.WriteString("\n\n")
			}
		case *ast.Text:
			builder.Write(node.Segment.Value(content))
		case *ast.String:
			builder.Write(node.Value)
		case *ast.CodeBlock:
			writeCodeLines(&builder, node.Lines(), content)
		case *ast.FencedCodeBlock:
			writeCodeLines(&builder, node.Lines(), content)
		}
		return ast.WalkContinue, nil
	})

	return builder.String(), nil
}

func writeCodeLines(builder *strings.Builder, lines *gmtext.Segments, content []byte) {
	if builder.Len() > 0 && !strings.HasSuffix(builder.String(), "\n\n") {
		builder.WriteString("\n\n")
	}
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		builder.Write(line.Value(content))
	}
}
