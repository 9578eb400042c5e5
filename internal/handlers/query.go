package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"knowledge-butler/internal/contextutil"
	"knowledge-butler/internal/index"
	"knowledge-butler/internal/rag"
)

// noDocumentAnswer is the answer text returned when a query arrives before
// any document has been ingested.
const noDocumentAnswer = "No document has been uploaded yet."

// Asker is the slice of the query engine the handler needs.
type Asker interface {
	Ask(ctx context.Context, question string) (rag.Answer, error)
}

// QueryHandler answers questions against the active document. By default
// every pipeline failure is translated into a descriptive answer string so
// the endpoint always returns 200; strict mode surfaces HTTP errors instead.
type QueryHandler struct {
	engine Asker
	strict bool
}

var _ Asker = (*rag.Engine)(nil)

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(engine Asker, strict bool) *QueryHandler {
	return &QueryHandler{engine: engine, strict: strict}
}

// QueryResponse represents the response to a query.
type QueryResponse struct {
	Answer string `json:"answer"`
	Method string `json:"method,omitempty"`
}

// ServeHTTP handles query requests.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	question := strings.TrimSpace(r.URL.Query().Get("query"))
	if question == "" {
		writeError(w, http.StatusBadRequest, "A \"query\" parameter is required")
		return
	}

	answer, err := h.engine.Ask(ctx, question)
	if err != nil {
		h.handleAskError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		Answer: answer.Text,
		Method: string(answer.Method),
	})
}

// handleAskError is the single boundary where infrastructure errors become
// user-facing answer text. Strict mode returns HTTP errors instead.
func (h *QueryHandler) handleAskError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "query failed", "error", err)

	if h.strict {
		switch {
		case errors.Is(err, rag.ErrNoDocument):
			writeError(w, http.StatusNotFound, noDocumentAnswer)
		case errors.Is(err, index.ErrIndexNotFound):
			writeError(w, http.StatusServiceUnavailable, "The document index is missing")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to answer the question")
		}
		return
	}

	var text string
	switch {
	case errors.Is(err, rag.ErrNoDocument):
		text = noDocumentAnswer
	case errors.Is(err, index.ErrIndexNotFound):
		text = "The document index could not be found. Please upload the document again."
	default:
		text = "Something went wrong while answering your question. Please try again."
	}
	writeJSON(w, http.StatusOK, QueryResponse{Answer: text})
}
