package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks knowledge-butler/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"fmt"
)

// DocumentStore defines the interface for document catalog operations,
// including the single-slot active-document pointer.
type DocumentStore interface {
	// Insert inserts a document record. The record ID must be set (UUID).
	Insert(ctx context.Context, doc *DocumentRecord) error
	// GetByID gets a document by ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*DocumentRecord, error)
	// GetByFilename returns the most recent document record for a filename.
	// Returns ErrNotFound if none exists.
	GetByFilename(ctx context.Context, filename string) (*DocumentRecord, error)
	// ListAll returns all document records, newest first.
	ListAll(ctx context.Context) ([]*DocumentRecord, error)
	// Delete removes a document record and its chunks.
	Delete(ctx context.Context, id string) error
	// SetActive points the active-document record at the given document.
	// The write is transactional: concurrent writers race last-write-wins
	// but the pointer is never left partial.
	SetActive(ctx context.Context, documentID string) error
	// GetActive returns the document the active pointer references.
	// Returns ErrNotFound when nothing has been uploaded yet.
	GetActive(ctx context.Context) (*DocumentRecord, error)
}

// DocumentRepo provides methods for document catalog operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Insert inserts a document record.
func (r *DocumentRepo) Insert(ctx context.Context, doc *DocumentRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (id, filename, content_hash, index_location, embedding_model, chunk_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.ContentHash, doc.IndexLocation, doc.EmbeddingModel, doc.ChunkCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByID gets a document by ID. Returns ErrNotFound if not found.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, filename, content_hash, index_location, embedding_model, chunk_count, created_at
		 FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// GetByFilename returns the most recent document record for a filename.
func (r *DocumentRepo) GetByFilename(ctx context.Context, filename string) (*DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, filename, content_hash, index_location, embedding_model, chunk_count, created_at
		 FROM documents WHERE filename = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, filename)
	return scanDocument(row)
}

// ListAll returns all document records, newest first.
func (r *DocumentRepo) ListAll(ctx context.Context) ([]*DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, filename, content_hash, index_location, embedding_model, chunk_count, created_at
		 FROM documents ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []*DocumentRecord
	for rows.Next() {
		var doc DocumentRecord
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.ContentHash, &doc.IndexLocation,
			&doc.EmbeddingModel, &doc.ChunkCount, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return docs, nil
}

// Delete removes a document record; chunks cascade.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// SetActive points the active-document record at the given document.
func (r *DocumentRepo) SetActive(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO active_document (id, document_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET document_id = excluded.document_id`,
		documentID,
	)
	if err != nil {
		return fmt.Errorf("failed to update active document: %w", err)
	}
	return nil
}

// GetActive returns the document the active pointer references.
func (r *DocumentRepo) GetActive(ctx context.Context) (*DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT d.id, d.filename, d.content_hash, d.index_location, d.embedding_model, d.chunk_count, d.created_at
		 FROM documents d
		 JOIN active_document a ON a.document_id = d.id
		 WHERE a.id = 1`)
	return scanDocument(row)
}

func scanDocument(row *sql.Row) (*DocumentRecord, error) {
	var doc DocumentRecord
	err := row.Scan(&doc.ID, &doc.Filename, &doc.ContentHash, &doc.IndexLocation,
		&doc.EmbeddingModel, &doc.ChunkCount, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return &doc, nil
}
