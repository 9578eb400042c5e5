package handlers

import (
	"context"
	"net/http"

	"knowledge-butler/internal/contextutil"
)

// Scanner triggers one scan of the upload directory.
type Scanner interface {
	Scan(ctx context.Context)
}

// IngestHandler handles HTTP requests for triggering an upload-directory
// scan without waiting for the next watcher tick.
type IngestHandler struct {
	scanner Scanner
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(scanner Scanner) *IngestHandler {
	return &IngestHandler{scanner: scanner}
}

// IngestResponse represents the response from the ingest trigger endpoint.
type IngestResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ServeHTTP triggers a scan in the background and returns immediately.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	logger.InfoContext(ctx, "ingestion scan triggered via API")

	// Run in a background context so the scan continues after the HTTP
	// request completes.
	go h.scanner.Scan(contextutil.WithLogger(context.Background(), logger))

	writeJSON(w, http.StatusAccepted, IngestResponse{
		Message: "Ingestion scan started. Check server logs for progress.",
		Status:  "accepted",
	})
}
