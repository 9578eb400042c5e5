package ingest

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"knowledge-butler/internal/contextutil"
	"knowledge-butler/internal/document"
	"knowledge-butler/internal/index"
	"knowledge-butler/internal/storage"
)

// ChunkLoader extracts, normalizes and chunks a source file.
type ChunkLoader interface {
	Load(ctx context.Context, path string) ([]document.Chunk, error)
}

// IndexBuilder persists chunk embeddings at a location and cleans up
// superseded locations. Location maps a per-document name to a
// backend-specific location under the index root.
type IndexBuilder interface {
	Build(ctx context.Context, chunks []document.Chunk, location string) (index.Handle, error)
	Delete(ctx context.Context, location string) error
	Location(dir, name string) string
}

// Result describes one completed ingestion.
type Result struct {
	DocumentID    string
	Chunks        int
	IndexLocation string
	// Reused is true when the file content matched an already ingested
	// version and no new index was built.
	Reused bool
}

// Pipeline turns an uploaded file into an active, queryable document: load
// and chunk, build the index, catalog document and chunks, then move the
// active pointer. The pointer moves only after a successful build, so a
// failed ingestion leaves the previous document queryable.
type Pipeline struct {
	loader   ChunkLoader
	builder  IndexBuilder
	docs     storage.DocumentStore
	chunks   storage.ChunkStore
	indexDir string
}

// NewPipeline creates an ingestion pipeline. indexDir is the root under
// which per-document index locations are created.
func NewPipeline(loader ChunkLoader, builder IndexBuilder, docs storage.DocumentStore, chunks storage.ChunkStore, indexDir string) *Pipeline {
	return &Pipeline{
		loader:   loader,
		builder:  builder,
		docs:     docs,
		chunks:   chunks,
		indexDir: indexDir,
	}
}

// Ingest processes one uploaded file. Re-ingesting identical content is a
// no-op that returns the existing document.
func (p *Pipeline) Ingest(ctx context.Context, path string) (*Result, error) {
	logger := contextutil.LoggerFromContext(ctx)
	filename := filepath.Base(path)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", document.ErrLoad, path, err)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", document.ErrLoad, filename)
	}
	hashHex := fmt.Sprintf("%x", sha256.Sum256(content))

	existing, err := p.docs.GetByFilename(ctx, filename)
	if err != nil && err != storage.ErrNotFound {
		return nil, fmt.Errorf("failed to check existing document: %w", err)
	}
	if existing != nil && existing.ContentHash == hashHex {
		logger.DebugContext(ctx, "skipping unchanged document", "filename", filename, "hash", hashHex)
		return &Result{
			DocumentID:    existing.ID,
			Chunks:        existing.ChunkCount,
			IndexLocation: existing.IndexLocation,
			Reused:        true,
		}, nil
	}

	chunks, err := p.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no text extracted from %s", document.ErrLoad, filename)
	}

	location := p.builder.Location(p.indexDir, indexLocationName(filename))
	handle, err := p.builder.Build(ctx, chunks, location)
	if err != nil {
		return nil, err
	}

	doc := &storage.DocumentRecord{
		ID:             uuid.New().String(),
		Filename:       filename,
		ContentHash:    hashHex,
		IndexLocation:  handle.Location,
		EmbeddingModel: handle.Model,
		ChunkCount:     len(chunks),
	}
	if err := p.docs.Insert(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to catalog document: %w", err)
	}

	for _, chunk := range chunks {
		record := &storage.ChunkRecord{
			ID:            uuid.New().String(),
			DocumentID:    doc.ID,
			SequenceIndex: chunk.SequenceIndex,
			Text:          chunk.Text,
		}
		if err := p.chunks.Insert(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to catalog chunk %d: %w", chunk.SequenceIndex, err)
		}
	}

	// The index is fully built and cataloged; only now does the active
	// pointer move.
	if err := p.docs.SetActive(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("failed to activate document: %w", err)
	}

	// Superseded index cleanup is best effort.
	if existing != nil && existing.IndexLocation != handle.Location {
		if err := p.builder.Delete(ctx, existing.IndexLocation); err != nil {
			logger.WarnContext(ctx, "failed to delete superseded index",
				"location", existing.IndexLocation, "error", err)
		}
	}

	logger.InfoContext(ctx, "document ingested",
		"document_id", doc.ID, "filename", filename, "chunks", len(chunks), "location", handle.Location)

	return &Result{
		DocumentID:    doc.ID,
		Chunks:        len(chunks),
		IndexLocation: handle.Location,
	}, nil
}

// indexLocationName derives a unique, filesystem-safe location name from an
// upload filename.
func indexLocationName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "document"
	}
	return fmt.Sprintf("%s-%d", name, time.Now().UnixNano())
}
