package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/knoguchi/catalogsearch/internal/auth"
	"github.com/knoguchi/catalogsearch/internal/config"
	"github.com/knoguchi/catalogsearch/internal/embedder"
	"github.com/knoguchi/catalogsearch/internal/enhancer"
	"github.com/knoguchi/catalogsearch/internal/llm"
	"github.com/knoguchi/catalogsearch/internal/metrics"
	"github.com/knoguchi/catalogsearch/internal/reranker"
	"github.com/knoguchi/catalogsearch/internal/search"
	"github.com/knoguchi/catalogsearch/internal/server"
	"github.com/knoguchi/catalogsearch/internal/vectorstore"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Re-level now that .env has been read
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("starting search service",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
		"collection", cfg.CollectionName,
	)

	metrics.Register()

	// Initialize Qdrant vector store
	store, err := vectorstore.NewQdrantStore(vectorstore.Config{
		URL:            cfg.QdrantGRPCURL,
		APIKey:         cfg.QdrantAPIKey,
		UseTLS:         cfg.QdrantUseTLS,
		Collection:     cfg.CollectionName,
		ScoreThreshold: cfg.ScoreThreshold,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer store.Close()
	slog.Info("connected to Qdrant", "url", cfg.QdrantGRPCURL)

	if cfg.OllamaSelected() {
		slog.Info("using Ollama",
			"url", cfg.OllamaURL,
			"embedding_provider", cfg.EmbeddingProvider,
			"llm_provider", cfg.LLMProvider,
		)
	}

	// Initialize embedder
	embed, err := embedder.New(embedder.Config{
		Provider:  cfg.EmbeddingProvider,
		Model:     cfg.EmbeddingModel,
		Dimension: cfg.EmbeddingDimension,
		APIKey:    cfg.OpenAIAPIKey,
		BaseURL:   cfg.EmbeddingBaseURL(),
	})
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	slog.Info("initialized embedder",
		"provider", cfg.EmbeddingProvider,
		"model", embed.ModelName(),
		"dimension", embed.Dimension(),
	)

	// Initialize LLM
	llmClient, err := llm.New(llm.Config{
		Provider: cfg.LLMProvider,
		APIKey:   cfg.OpenAIAPIKey,
		BaseURL:  cfg.LLMBaseURL(),
	})
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	slog.Info("initialized LLM",
		"provider", cfg.LLMProvider,
		"enhancer_model", cfg.LLMModelEnhancer,
		"reranker_model", cfg.LLMModelReranker,
	)

	// Wire the search pipeline
	resolver := search.NewResolver(search.WithLocation(cfg.Location()))
	searcher := search.NewSearcher(embed, search.NewRetriever(store, resolver, logger), logger)
	orchestrator := search.NewOrchestrator(
		enhancer.NewLLMEnhancer(llmClient,
			enhancer.WithModel(cfg.LLMModelEnhancer),
			enhancer.WithTemperature(cfg.LLMTemperature),
		),
		reranker.NewLLMReranker(llmClient,
			reranker.WithModel(cfg.LLMModelReranker),
			reranker.WithTemperature(cfg.LLMTemperature),
		),
		searcher,
		search.WithLogger(logger),
		search.WithRetrievalLimit(cfg.RetrievalLimit),
		search.WithPreviewLength(cfg.RerankPreviewChars),
	)

	var adminAuth *auth.JWTManager
	if cfg.AdminJWTSecret != "" {
		adminAuth = auth.NewJWTManager(auth.DefaultJWTConfig(cfg.AdminJWTSecret))
	} else {
		slog.Warn("ADMIN_JWT_SECRET not set, admin routes are unauthenticated")
	}

	// Create HTTP server
	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:               cfg.HTTPPort,
		Logger:             logger,
		AllowedOrigins:     []string{"*"}, // Configure in production
		DefaultTopK:        cfg.DefaultTopK,
		SearchTimeout:      cfg.SearchTimeout,
		EmbeddingDimension: embed.Dimension(),
		AdminAuth:          adminAuth,
	}, server.Services{
		Search: orchestrator,
		Store:  store,
	})

	// Start server
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// Ensure interfaces are satisfied at compile time
var (
	_ search.VectorStore     = (*vectorstore.QdrantStore)(nil)
	_ server.CollectionAdmin = (*vectorstore.QdrantStore)(nil)
	_ server.SearchService   = (*search.Orchestrator)(nil)
	_ search.Embedder        = (embedder.Embedder)(nil)
	_ llm.LLM                = (*llm.OpenAIClient)(nil)
)
