package storage

import "time"

// DocumentRecord describes one ingested document version and the persisted
// index built from it. Records are immutable once written; a re-upload
// inserts a new record and moves the active pointer.
type DocumentRecord struct {
	ID             string    // UUID
	Filename       string    // Original upload filename
	ContentHash    string    // SHA256 hex string of file content
	IndexLocation  string    // Vector index location (directory or collection)
	EmbeddingModel string    // Embedding model the index was built with
	ChunkCount     int       // Number of chunks indexed
	CreatedAt      time.Time
}

// ChunkRecord is the catalog entry for one indexed chunk.
type ChunkRecord struct {
	ID            string // UUID (same as vector store point ID where applicable)
	DocumentID    string // Foreign key to documents.id
	SequenceIndex int    // Extraction order within the document (starts at 0)
	Text          string // Chunk text content
}
