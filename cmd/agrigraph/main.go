// Command agrigraph runs the farming advisor HTTP API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kataras/golog"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/smallnest/agrigraph/advisor"
	"github.com/smallnest/agrigraph/embed"
	"github.com/smallnest/agrigraph/history"
	"github.com/smallnest/agrigraph/log"
	"github.com/smallnest/agrigraph/search"
	"github.com/smallnest/agrigraph/server"
	"github.com/smallnest/agrigraph/vectorstore"
)

func main() {
	logger := log.NewGologLogger(golog.Default)
	log.SetDefaultLogger(logger)

	cfg := server.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration: %v", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func run(cfg server.Config, logger log.Logger) error {
	ctx := context.Background()

	llmOpts := []openai.Option{
		openai.WithToken(cfg.OpenAIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.OpenAIBaseURL != "" {
		llmOpts = append(llmOpts, openai.WithBaseURL(cfg.OpenAIBaseURL))
	}
	llm, err := openai.New(llmOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM: %w", err)
	}

	retriever, err := buildRetriever(ctx, cfg, llm)
	if err != nil {
		return err
	}

	searcher, err := search.NewTavilyClient(cfg.TavilyKey)
	if err != nil {
		return fmt.Errorf("failed to initialize web search: %w", err)
	}

	pipeline, err := advisor.New(advisor.Config{
		Retriever: retriever,
		Searcher:  searcher,
		Model:     llm,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	store, err := buildHistoryStore(ctx, cfg)
	if err != nil {
		return err
	}

	return server.NewServer(cfg, pipeline, store, logger).Start()
}

func buildRetriever(ctx context.Context, cfg server.Config, llm *openai.LLM) (advisor.Retriever, error) {
	switch cfg.VectorStoreType {
	case "memory":
		embedder, err := embed.NewOpenAIEmbedder(cfg.OpenAIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		return vectorstore.NewMemoryStore(embedder, cfg.TopK), nil
	case "chroma":
		embedder, err := embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		return vectorstore.NewChromaStore(embedder, vectorstore.ChromaOptions{
			URL:  cfg.ChromaURL,
			TopK: cfg.TopK,
		})
	case "pgvector":
		embedder, err := embed.NewOpenAIEmbedder(cfg.OpenAIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		store, err := vectorstore.NewPgvectorStore(ctx, embedder, vectorstore.PgvectorOptions{
			ConnString: cfg.PostgresDSN,
			TopK:       cfg.TopK,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect pgvector store: %w", err)
		}
		if err := store.InitSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported vector store type: %s", cfg.VectorStoreType)
	}
}

func buildHistoryStore(ctx context.Context, cfg server.Config) (history.Store, error) {
	var store history.Store
	switch cfg.HistoryBackend {
	case "sqlite":
		s, err := history.NewSqliteStore(cfg.SqlitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		store = s
	case "postgres":
		s, err := history.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect history database: %w", err)
		}
		if err := s.InitSchema(ctx); err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("unsupported history backend: %s", cfg.HistoryBackend)
	}

	if cfg.RedisAddr != "" {
		cache := history.NewCache(history.CacheOptions{Addr: cfg.RedisAddr})
		store = history.NewCachedStore(store, cache)
	}
	return store, nil
}
