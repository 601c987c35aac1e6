// Command agrigraph-ingest loads knowledge-base source files into the
// configured vector store.
//
// Usage:
//
//	agrigraph-ingest [-ocr] [-lang eng] <dir-or-file> [...]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/kataras/golog"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/smallnest/agrigraph/embed"
	"github.com/smallnest/agrigraph/ingest"
	"github.com/smallnest/agrigraph/log"
	"github.com/smallnest/agrigraph/ocr"
	"github.com/smallnest/agrigraph/server"
	"github.com/smallnest/agrigraph/vectorstore"
)

func main() {
	useOCR := flag.Bool("ocr", false, "run OCR on image files")
	langs := flag.String("lang", "eng", "comma-separated Tesseract languages")
	flag.Parse()

	logger := log.NewGologLogger(golog.Default)
	log.SetDefaultLogger(logger)

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: agrigraph-ingest [-ocr] [-lang eng] <dir-or-file> [...]")
		os.Exit(2)
	}

	cfg := server.LoadConfig()
	if cfg.OpenAIKey == "" {
		logger.Error("OPENAI_API_KEY environment variable is required")
		os.Exit(1)
	}

	if err := run(cfg, logger, *useOCR, *langs, flag.Args()); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func run(cfg server.Config, logger log.Logger, useOCR bool, langs string, paths []string) error {
	ctx := context.Background()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}

	opts := []ingest.Option{ingest.WithLogger(logger)}
	if useOCR {
		opts = append(opts, ingest.WithOCR(ocr.NewExtractor(strings.Split(langs, ",")...)))
	}
	loader := ingest.NewLoader(opts...)

	total := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}

		if info.IsDir() {
			chunks, err := loader.LoadDirectory(ctx, path)
			if err != nil {
				return err
			}
			if err := store.Add(ctx, chunks); err != nil {
				return err
			}
			total += len(chunks)
		} else {
			chunks, err := loader.LoadFile(ctx, path)
			if err != nil {
				return err
			}
			if err := store.Add(ctx, chunks); err != nil {
				return err
			}
			total += len(chunks)
		}
	}

	logger.Info("ingested %d chunks from %d paths", total, len(paths))
	return nil
}

func buildStore(ctx context.Context, cfg server.Config) (vectorstore.Store, error) {
	switch cfg.VectorStoreType {
	case "chroma":
		llm, err := openai.New(openai.WithToken(cfg.OpenAIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM: %w", err)
		}
		embedder, err := embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		return vectorstore.NewChromaStore(embedder, vectorstore.ChromaOptions{
			URL:  cfg.ChromaURL,
			TopK: cfg.TopK,
		})
	case "pgvector":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is required for the pgvector store")
		}
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
		return nil, fmt.Errorf("ingestion requires a persistent vector store, got %q", cfg.VectorStoreType)
	}
}
