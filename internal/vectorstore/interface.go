package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks knowledge-butler/internal/vectorstore VectorStore

import "context"

// Point represents an embedded chunk with metadata. The chunk text travels in
// Meta so a persisted location is self-contained: vectors + text + metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a similarity search hit.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorStore persists embedded chunks at named locations and searches them.
// A location is one ingested document version: a directory for the disk
// backend, a collection for the qdrant backend. Locations are built once and
// read-only afterward; re-uploads build a new location and the old one is
// deleted after the active pointer moves.
type VectorStore interface {
	// EnsureLocation prepares an empty location for the given vector size.
	EnsureLocation(ctx context.Context, location string, vectorSize int) error

	// LocationExists reports whether the location exists and holds data.
	LocationExists(ctx context.Context, location string) (bool, error)

	// Count returns the number of points stored at the location.
	Count(ctx context.Context, location string) (int, error)

	// Upsert inserts or updates points at the location.
	Upsert(ctx context.Context, location string, points []Point) error

	// Search returns the k nearest points by cosine similarity, best first.
	Search(ctx context.Context, location string, query []float32, k int) ([]SearchResult, error)

	// Clear wipes existing data at the location. Failures to remove
	// individual files (external locks) are logged, not fatal.
	Clear(ctx context.Context, location string) error

	// Delete removes the location entirely.
	Delete(ctx context.Context, location string) error

	// TempLocation derives a fallback location used when persisting at the
	// requested one fails entirely.
	TempLocation(location string) string

	// Location derives a backend-appropriate location from the index root
	// and a per-document name: a directory path for the disk backend, a
	// plain collection name for the qdrant backend.
	Location(dir, name string) string
}
