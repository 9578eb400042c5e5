package index

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks knowledge-butler/internal/index Embedder

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"knowledge-butler/internal/contextutil"
	"knowledge-butler/internal/document"
	"knowledge-butler/internal/vectorstore"
)

var (
	// ErrIndexBuild is returned when embedding or persisting an index fails
	// at both the requested and the fallback location.
	ErrIndexBuild = errors.New("index build failed")

	// ErrIndexNotFound is returned when a location holds no usable index.
	ErrIndexNotFound = errors.New("index not found")
)

// DefaultK is the retrieval depth used when the caller does not specify one.
const DefaultK = 3

// Embedder converts text into fixed-length vectors. The same embedder must
// serve both Build and Search for results to be meaningful.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
	Dimension() int
}

// Handle is an opaque reference to a persisted, queryable index. One handle
// corresponds to exactly one ingested document version and is read-only after
// Build.
type Handle struct {
	Location  string
	Model     string
	Dimension int
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk document.Chunk
	Score float32
}

// Manager embeds chunk records into a vector store and retrieves them by
// similarity. The embedder is injected once at startup and shared by the
// build and query paths.
type Manager struct {
	embedder Embedder
	store    vectorstore.VectorStore
}

// NewManager creates an index manager.
func NewManager(embedder Embedder, store vectorstore.VectorStore) *Manager {
	return &Manager{
		embedder: embedder,
		store:    store,
	}
}

// Build embeds every chunk and persists vectors, text and metadata at
// location. An existing index at location is cleared first. If persistence at
// location fails entirely, Build retries once at a temporary location and the
// returned handle points there; if that also fails it returns ErrIndexBuild.
func (m *Manager) Build(ctx context.Context, chunks []document.Chunk, location string) (Handle, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(chunks) == 0 {
		return Handle{}, fmt.Errorf("%w: no chunks to index", ErrIndexBuild)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	embeddings, err := m.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: embed chunks: %v", ErrIndexBuild, err)
	}
	if len(embeddings) != len(chunks) {
		return Handle{}, fmt.Errorf("%w: embedding count mismatch: expected %d, got %d", ErrIndexBuild, len(chunks), len(embeddings))
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, chunk := range chunks {
		points[i] = vectorstore.Point{
			ID:  uuid.New().String(),
			Vec: embeddings[i],
			Meta: map[string]any{
				"text":           chunk.Text,
				"sequence_index": chunk.SequenceIndex,
				"source_id":      chunk.SourceID,
			},
		}
	}

	if err := m.persist(ctx, location, points); err != nil {
		fallback := m.store.TempLocation(location)
		logger.WarnContext(ctx, "index persistence failed, retrying at fallback location",
			"location", location, "fallback", fallback, "error", err)
		if err := m.persist(ctx, fallback, points); err != nil {
			return Handle{}, fmt.Errorf("%w: persist at %s and fallback %s: %v", ErrIndexBuild, location, fallback, err)
		}
		location = fallback
	}

	logger.InfoContext(ctx, "index built", "location", location, "chunks", len(chunks), "model", m.embedder.ModelName())
	return m.handle(location), nil
}

// Load returns a handle for an existing index. A missing or empty location
// yields ErrIndexNotFound, never a crash.
func (m *Manager) Load(ctx context.Context, location string) (Handle, error) {
	exists, err := m.store.LocationExists(ctx, location)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to check index location %s: %w", location, err)
	}
	if !exists {
		return Handle{}, fmt.Errorf("%w: %s", ErrIndexNotFound, location)
	}
	return m.handle(location), nil
}

// Search embeds the query with the build-time embedding model and returns the
// k most similar chunks, best first. An empty index yields an empty result.
// A handle tagged with a different model fails fast instead of degrading
// silently.
func (m *Manager) Search(ctx context.Context, handle Handle, query string, k int) ([]ScoredChunk, error) {
	if handle.Model != "" && handle.Model != m.embedder.ModelName() {
		return nil, fmt.Errorf("embedding model mismatch: index built with %q, configured %q", handle.Model, m.embedder.ModelName())
	}
	if k <= 0 {
		k = DefaultK
	}

	embeddings, err := m.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}

	results, err := m.store.Search(ctx, handle.Location, embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("failed to search index %s: %w", handle.Location, err)
	}

	scored := make([]ScoredChunk, 0, len(results))
	for _, result := range results {
		scored = append(scored, ScoredChunk{
			Chunk: chunkFromMeta(result.Meta),
			Score: result.Score,
		})
	}
	return scored, nil
}

// Delete removes a persisted index, used to clean up superseded locations.
func (m *Manager) Delete(ctx context.Context, location string) error {
	return m.store.Delete(ctx, location)
}

// Location derives the store-specific location for a new index named name
// under the index root dir.
func (m *Manager) Location(dir, name string) string {
	return m.store.Location(dir, name)
}

func (m *Manager) persist(ctx context.Context, location string, points []vectorstore.Point) error {
	if err := m.store.Clear(ctx, location); err != nil {
		return err
	}
	if err := m.store.EnsureLocation(ctx, location, m.embedder.Dimension()); err != nil {
		return err
	}
	return m.store.Upsert(ctx, location, points)
}

func (m *Manager) handle(location string) Handle {
	return Handle{
		Location:  location,
		Model:     m.embedder.ModelName(),
		Dimension: m.embedder.Dimension(),
	}
}

// chunkFromMeta reconstructs a chunk record from persisted point metadata.
// Numeric meta values arrive as float64 from the JSON-backed store and as
// int64 from qdrant payloads.
func chunkFromMeta(meta map[string]any) document.Chunk {
	chunk := document.Chunk{}
	if text, ok := meta["text"].(string); ok {
		chunk.Text = text
	}
	if source, ok := meta["source_id"].(string); ok {
		chunk.SourceID = source
	}
	switch seq := meta["sequence_index"].(type) {
	case float64:
		chunk.SequenceIndex = int(seq)
	case int64:
		chunk.SequenceIndex = int(seq)
	case int:
		chunk.SequenceIndex = seq
	}
	return chunk
}
