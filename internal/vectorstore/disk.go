package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"knowledge-butler/internal/contextutil"
)

const pointsFile = "points.json"

// DiskStore implements VectorStore on the local filesystem. Each location is
// a directory holding a single JSON file with vectors, chunk text and
// metadata. Files are written via write-temp-then-rename so a reader sees
// either the previous complete index or the new one, never a partial write.
type DiskStore struct{}

// NewDiskStore creates a filesystem-backed vector store.
func NewDiskStore() *DiskStore {
	return &DiskStore{}
}

// indexFile is the on-disk format of one persisted location.
type indexFile struct {
	Dimension int     `json:"dimension"`
	Points    []Point `json:"points"`
}

// EnsureLocation creates the location directory.
func (s *DiskStore) EnsureLocation(ctx context.Context, location string, vectorSize int) error {
	if err := os.MkdirAll(location, 0o755); err != nil {
		return fmt.Errorf("failed to create index location %s: %w", location, err)
	}
	return nil
}

// LocationExists reports whether the location holds a non-empty persisted
// index.
func (s *DiskStore) LocationExists(ctx context.Context, location string) (bool, error) {
	idx, err := s.read(location)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return len(idx.Points) > 0, nil
}

// Count returns the number of persisted points.
func (s *DiskStore) Count(ctx context.Context, location string) (int, error) {
	idx, err := s.read(location)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return len(idx.Points), nil
}

// Upsert merges points into the persisted index by ID and rewrites the file
// atomically.
func (s *DiskStore) Upsert(ctx context.Context, location string, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil
	}

	if err := os.MkdirAll(location, 0o755); err != nil {
		return fmt.Errorf("failed to create index location %s: %w", location, err)
	}

	idx, err := s.read(location)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if idx == nil {
		idx = &indexFile{Dimension: len(points[0].Vec)}
	}

	byID := make(map[string]int, len(idx.Points))
	for i, p := range idx.Points {
		byID[p.ID] = i
	}
	for _, p := range points {
		if i, ok := byID[p.ID]; ok {
			idx.Points[i] = p
		} else {
			byID[p.ID] = len(idx.Points)
			idx.Points = append(idx.Points, p)
		}
	}

	if err := s.write(location, idx); err != nil {
		return err
	}

	logger.InfoContext(ctx, "persisted points", "location", location, "count", len(points), "total", len(idx.Points))
	return nil
}

// Search loads the persisted index and returns the k nearest points by
// cosine similarity, highest score first. An empty or missing index yields an
// empty result, never an error.
func (s *DiskStore) Search(ctx context.Context, location string, query []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	idx, err := s.read(location)
	if err != nil {
		if os.IsNotExist(err) {
			return []SearchResult{}, nil
		}
		return nil, err
	}

	results := make([]SearchResult, 0, len(idx.Points))
	for _, p := range idx.Points {
		results = append(results, SearchResult{
			PointID: p.ID,
			Score:   cosineSimilarity(query, p.Vec),
			Meta:    p.Meta,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Clear removes existing files at the location. Individual removal failures
// are logged and tolerated.
func (s *DiskStore) Clear(ctx context.Context, location string) error {
	logger := contextutil.LoggerFromContext(ctx)

	entries, err := os.ReadDir(location)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read index location %s: %w", location, err)
	}

	for _, entry := range entries {
		path := filepath.Join(location, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			logger.WarnContext(ctx, "failed to remove stale index file", "path", path, "error", err)
		}
	}
	return nil
}

// Delete removes the location entirely.
func (s *DiskStore) Delete(ctx context.Context, location string) error {
	if err := os.RemoveAll(location); err != nil {
		return fmt.Errorf("failed to delete index location %s: %w", location, err)
	}
	return nil
}

// TempLocation derives a fallback directory under the system temp dir.
func (s *DiskStore) TempLocation(location string) string {
	return filepath.Join(os.TempDir(), "butler-index", filepath.Base(location))
}

// Location joins the index root and the per-document name into a directory
// path.
func (s *DiskStore) Location(dir, name string) string {
	return filepath.Join(dir, name)
}

func (s *DiskStore) read(location string) (*indexFile, error) {
	data, err := os.ReadFile(filepath.Join(location, pointsFile))
	if err != nil {
		return nil, err
	}
	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse persisted index at %s: %w", location, err)
	}
	return &idx, nil
}

func (s *DiskStore) write(location string, idx *indexFile) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	tmp := filepath.Join(location, pointsFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(location, pointsFile)); err != nil {
		return fmt.Errorf("failed to replace index file: %w", err)
	}
	return nil
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Mismatched or zero vectors score 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
