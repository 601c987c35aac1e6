package vectorstore

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/tmc/langchaingo/vectorstores/chroma"

	"github.com/smallnest/agrigraph/advisor"
)

// chromaSearcher is the slice of the Chroma store the retriever needs.
type chromaSearcher interface {
	AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error)
	SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error)
}

// ChromaStore serves the knowledge base out of a Chroma server. Embedding
// happens inside the langchaingo store via the configured embedder.
type ChromaStore struct {
	store chromaSearcher
	topK  int
}

// ChromaOptions configures a ChromaStore.
type ChromaOptions struct {
	URL       string
	Namespace string
	TopK      int // default 4
}

// NewChromaStore connects to a Chroma server with cosine distance.
func NewChromaStore(embedder embeddings.Embedder, opts ChromaOptions) (*ChromaStore, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("chroma url is required")
	}
	if opts.Namespace == "" {
		opts.Namespace = "agrigraph"
	}
	store, err := chroma.New(
		chroma.WithChromaURL(opts.URL),
		chroma.WithEmbedder(embedder),
		chroma.WithDistanceFunction("cosine"),
		chroma.WithNameSpace(opts.Namespace),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chroma: %w", err)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 4
	}
	return &ChromaStore{store: &store, topK: topK}, nil
}

// Add stores the documents; the Chroma store computes the embeddings.
func (s *ChromaStore) Add(ctx context.Context, docs []advisor.Document) error {
	if len(docs) == 0 {
		return nil
	}
	chunks := make([]schema.Document, len(docs))
	for i, doc := range docs {
		chunks[i] = schema.Document{
			PageContent: doc.Content,
			Metadata:    doc.Metadata,
		}
	}
	if _, err := s.store.AddDocuments(ctx, chunks); err != nil {
		return fmt.Errorf("failed to add documents to chroma: %w", err)
	}
	return nil
}

// Retrieve returns the topK most similar documents.
func (s *ChromaStore) Retrieve(ctx context.Context, query string) ([]advisor.Document, error) {
	found, err := s.store.SimilaritySearch(ctx, query, s.topK)
	if err != nil {
		return nil, fmt.Errorf("chroma similarity search failed: %w", err)
	}
	docs := make([]advisor.Document, len(found))
	for i, chunk := range found {
		docs[i] = advisor.Document{
			Content:  chunk.PageContent,
			Metadata: chunk.Metadata,
		}
	}
	return docs, nil
}
