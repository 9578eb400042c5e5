package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_retriever.go -package=mocks knowledge-butler/internal/rag Retriever

import (
	"context"
	"errors"
	"fmt"

	"knowledge-butler/internal/contextutil"
	"knowledge-butler/internal/index"
	"knowledge-butler/internal/storage"
)

// Retriever is the slice of the index manager the query path needs.
type Retriever interface {
	Load(ctx context.Context, location string) (index.Handle, error)
	Search(ctx context.Context, handle index.Handle, query string, k int) ([]index.ScoredChunk, error)
}

// Engine answers questions against the active document. It resolves the
// active pointer, loads the document's index, retrieves the most similar
// chunks and hands them to the answer chain.
type Engine struct {
	docs      storage.DocumentStore
	retriever Retriever
	answerer  *Answerer
	k         int
}

// NewEngine creates a query engine. k is the retrieval depth; values <= 0
// fall back to the index manager's default.
func NewEngine(docs storage.DocumentStore, retriever Retriever, answerer *Answerer, k int) *Engine {
	return &Engine{
		docs:      docs,
		retriever: retriever,
		answerer:  answerer,
		k:         k,
	}
}

// Ask answers a question using the active document. Infrastructure failures
// surface as typed errors; translating them into user-facing answer text is
// the HTTP handler's job.
func (e *Engine) Ask(ctx context.Context, question string) (Answer, error) {
	logger := contextutil.LoggerFromContext(ctx)

	doc, err := e.docs.GetActive(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Answer{}, ErrNoDocument
		}
		return Answer{}, fmt.Errorf("failed to resolve active document: %w", err)
	}

	handle, err := e.retriever.Load(ctx, doc.IndexLocation)
	if err != nil {
		return Answer{}, fmt.Errorf("load index for document %s: %w", doc.ID, err)
	}
	// Carry the model tag recorded at build time so a configuration change
	// since ingestion fails fast instead of searching with mismatched vectors.
	handle.Model = doc.EmbeddingModel

	retrieved, err := e.retriever.Search(ctx, handle, question, e.k)
	if err != nil {
		return Answer{}, fmt.Errorf("search index for document %s: %w", doc.ID, err)
	}

	logger.InfoContext(ctx, "chunks retrieved",
		"document_id", doc.ID, "filename", doc.Filename, "count", len(retrieved))

	return e.answerer.Synthesize(ctx, question, retrieved), nil
}
