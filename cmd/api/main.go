package main

import (
	"context"
	_ "embed"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"strings"

	"knowledge-butler/internal/config"
	"knowledge-butler/internal/contextutil"
	"knowledge-butler/internal/document"
	"knowledge-butler/internal/http"
	"knowledge-butler/internal/index"
	"knowledge-butler/internal/ingest"
	"knowledge-butler/internal/llm"
	"knowledge-butler/internal/rag"
	"knowledge-butler/internal/storage"
	"knowledge-butler/internal/vectorstore"
)

//go:embed index.html
var indexHTML string

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel, "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	docRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)

	ctx := context.Background()

	// Select vector store backend
	var store vectorstore.VectorStore
	switch cfg.VectorStore {
	case "qdrant":
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		store = qdrantStore
		slog.Info("Using Qdrant vector store", "url", cfg.QdrantURL)
	default:
		store = vectorstore.NewDiskStore()
		slog.Info("Using disk vector store", "index_dir", cfg.IndexDir)
	}

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingVectorSize, cfg.GenerationTimeout)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.EmbeddingVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.EmbeddingVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "model", cfg.EmbeddingModelName, "vector_size", cfg.EmbeddingVectorSize)

	indexManager := index.NewManager(embedder, store)

	// Document loading pipeline
	normalizer := document.NewNormalizer(cfg.MinLineLength)
	splitter := document.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap, nil)
	loader := document.NewLoader(normalizer, splitter)

	pipeline := ingest.NewPipeline(loader, indexManager, docRepo, chunkRepo, cfg.IndexDir)

	// Answer strategy chain: primary model, optional secondary model,
	// extraction fallback.
	params := llm.CompletionParams{
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	primary := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, cfg.GenerationTimeout)

	strategies := []rag.Strategy{rag.NewGenerativeStrategy("primary", primary, params)}
	if cfg.OpenAIAPIKey != "" {
		secondary := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.FallbackModel, cfg.GenerationTimeout)
		strategies = append(strategies, rag.NewGenerativeStrategy("secondary", secondary, params))
		slog.Info("Secondary generative model configured", "model", cfg.FallbackModel)
	}
	strategies = append(strategies, rag.NewExtractiveStrategy())
	answerer := rag.NewAnswerer(strategies...)

	engine := rag.NewEngine(docRepo, indexManager, answerer, cfg.RetrievalK)
	slog.Info("Query engine initialized", "retrieval_k", cfg.RetrievalK)

	watcher := ingest.NewWatcher(pipeline, cfg.UploadDir, cfg.IngestInterval)

	deps := &http.Deps{
		Pipeline:    pipeline,
		Engine:      engine,
		Docs:        docRepo,
		VectorStore: store,
		Watcher:     watcher,
		UploadDir:   cfg.UploadDir,
		StrictQuery: cfg.QueryStrictErrors,
		IndexHTML:   indexHTML,
	}
	router := http.NewRouter(deps)

	// Pick up files dropped into the upload directory while the API serves
	// requests.
	go watcher.Run(contextutil.WithLogger(ctx, logger))

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
