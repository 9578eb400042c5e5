package handlers

import (
	"errors"
	"net/http"
	"time"

	"knowledge-butler/internal/contextutil"
	"knowledge-butler/internal/storage"
)

// DocumentsHandler lists ingested documents.
type DocumentsHandler struct {
	docs storage.DocumentStore
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(docs storage.DocumentStore) *DocumentsHandler {
	return &DocumentsHandler{docs: docs}
}

// DocumentResponse represents one document in the catalog listing.
type DocumentResponse struct {
	ID             string `json:"id"`
	Filename       string `json:"filename"`
	ChunkCount     int    `json:"chunk_count"`
	EmbeddingModel string `json:"embedding_model"`
	CreatedAt      string `json:"created_at"`
	Active         bool   `json:"active"`
}

// DocumentsResponse represents the document catalog listing.
type DocumentsResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

// ServeHTTP handles document listing requests.
func (h *DocumentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	docs, err := h.docs.ListAll(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	activeID := ""
	active, err := h.docs.GetActive(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.WarnContext(ctx, "failed to resolve active document", "error", err)
	}
	if active != nil {
		activeID = active.ID
	}

	response := DocumentsResponse{Documents: make([]DocumentResponse, 0, len(docs))}
	for _, doc := range docs {
		response.Documents = append(response.Documents, DocumentResponse{
			ID:             doc.ID,
			Filename:       doc.Filename,
			ChunkCount:     doc.ChunkCount,
			EmbeddingModel: doc.EmbeddingModel,
			CreatedAt:      doc.CreatedAt.UTC().Format(time.RFC3339),
			Active:         doc.ID == activeID,
		})
	}

	writeJSON(w, http.StatusOK, response)
}
