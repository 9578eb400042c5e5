package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// ChunkStore defines the interface for chunk catalog operations.
type ChunkStore interface {
	// Insert inserts a single chunk record. The chunk ID must be set (UUID).
	Insert(ctx context.Context, chunk *ChunkRecord) error
	// ListByDocument returns all chunks for a document, in sequence order.
	ListByDocument(ctx context.Context, documentID string) ([]*ChunkRecord, error)
	// CountByDocument returns the number of chunks cataloged for a document.
	CountByDocument(ctx context.Context, documentID string) (int, error)
	// DeleteByDocument deletes all chunks for a given document ID.
	DeleteByDocument(ctx context.Context, documentID string) error
}

// ChunkRepo provides methods for chunk catalog operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// Insert inserts a single chunk record.
func (r *ChunkRepo) Insert(ctx context.Context, chunk *ChunkRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO chunks (id, document_id, sequence_index, text) VALUES (?, ?, ?, ?)",
		chunk.ID, chunk.DocumentID, chunk.SequenceIndex, chunk.Text,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

// ListByDocument returns all chunks for a document, ordered by sequence index.
// Returns an empty slice if none exist (not an error).
func (r *ChunkRepo) ListByDocument(ctx context.Context, documentID string) ([]*ChunkRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, document_id, sequence_index, text FROM chunks WHERE document_id = ? ORDER BY sequence_index",
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var chunks []*ChunkRecord
	for rows.Next() {
		var chunk ChunkRecord
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.SequenceIndex, &chunk.Text); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, &chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return chunks, nil
}

// CountByDocument returns the number of chunks cataloged for a document.
func (r *ChunkRepo) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE document_id = ?", documentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

// DeleteByDocument deletes all chunks for a given document ID.
// Used when cleaning up a superseded document version.
func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks by document: %w", err)
	}
	return nil
}
