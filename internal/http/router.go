package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"knowledge-butler/internal/handlers"
	"knowledge-butler/internal/ingest"
	"knowledge-butler/internal/rag"
	"knowledge-butler/internal/storage"
	"knowledge-butler/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Pipeline    *ingest.Pipeline
	Engine      *rag.Engine
	Docs        storage.DocumentStore
	VectorStore vectorstore.VectorStore
	Watcher     *ingest.Watcher
	UploadDir   string
	StrictQuery bool
	IndexHTML   string // Embedded HTML content
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	uploadHandler := handlers.NewUploadHandler(deps.Pipeline, deps.UploadDir)
	queryHandler := handlers.NewQueryHandler(deps.Engine, deps.StrictQuery)

	r.Method(http.MethodPost, "/upload", uploadHandler)
	r.Method(http.MethodGet, "/query", queryHandler)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.VectorStore, deps.Docs))
		r.Method(http.MethodGet, "/documents", handlers.NewDocumentsHandler(deps.Docs))
		if deps.Watcher != nil {
			r.Method(http.MethodPost, "/ingest", handlers.NewIngestHandler(deps.Watcher))
		}
	})

	// Serve HTML page at root
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(deps.IndexHTML))
	})

	return r
}
