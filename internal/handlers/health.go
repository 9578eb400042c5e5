package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"knowledge-butler/internal/contextutil"
	"knowledge-butler/internal/storage"
	"knowledge-butler/internal/vectorstore"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	vectorStore        vectorstore.VectorStore
	docs               storage.DocumentStore
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(vectorStore vectorstore.VectorStore, docs storage.DocumentStore) *HealthHandler {
	return &HealthHandler{
		vectorStore:        vectorStore,
		docs:               docs,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles health check requests. Returns 200 OK if healthy,
// 503 Service Unavailable otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	if h.checkDatabase(checkCtx, logger) {
		checks["database"] = "ok"
	} else {
		checks["database"] = "error"
		issues = append(issues, "database_unavailable")
	}

	if h.checkIndex(checkCtx, logger) {
		checks["index"] = "ok"
	} else {
		checks["index"] = "error"
		issues = append(issues, "index_unavailable")
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if len(issues) > 0 {
		response.Issues = issues
	}

	writeJSON(w, httpStatus, response)
}

// checkDatabase verifies the document catalog is reachable.
func (h *HealthHandler) checkDatabase(ctx context.Context, logger *slog.Logger) bool {
	_, err := h.docs.GetActive(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.WarnContext(ctx, "database health check failed", "error", err)
		return false
	}
	return true
}

// checkIndex verifies the active document's index is reachable. No active
// document counts as healthy.
func (h *HealthHandler) checkIndex(ctx context.Context, logger *slog.Logger) bool {
	doc, err := h.docs.GetActive(ctx)
	if err != nil {
		// Missing pointer is fine, a broken catalog was already reported
		// by the database check.
		return true
	}

	exists, err := h.vectorStore.LocationExists(ctx, doc.IndexLocation)
	if err != nil {
		logger.WarnContext(ctx, "index health check failed", "error", err)
		return false
	}
	if !exists {
		logger.WarnContext(ctx, "active document index missing", "location", doc.IndexLocation)
		return false
	}
	return true
}
