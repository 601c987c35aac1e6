package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/smallnest/agrigraph/advisor"
	"github.com/smallnest/agrigraph/embed"
)

// MemoryStore keeps documents and their embeddings in process memory.
// It is meant for development and tests; nothing survives a restart.
type MemoryStore struct {
	embedder embed.Embedder
	topK     int

	mu         sync.RWMutex
	documents  []advisor.Document
	embeddings [][]float32
}

// NewMemoryStore builds an in-memory store that returns up to topK
// documents per retrieval.
func NewMemoryStore(embedder embed.Embedder, topK int) *MemoryStore {
	if topK <= 0 {
		topK = 4
	}
	return &MemoryStore{
		embedder: embedder,
		topK:     topK,
	}
}

// Add embeds and stores the given documents.
func (s *MemoryStore) Add(ctx context.Context, docs []advisor.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed documents: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = append(s.documents, docs...)
	s.embeddings = append(s.embeddings, vectors...)
	return nil
}

// Retrieve returns the topK documents most similar to the query.
func (s *MemoryStore) Retrieve(ctx context.Context, query string) ([]advisor.Document, error) {
	queryVec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.documents) == 0 {
		return []advisor.Document{}, nil
	}

	type docScore struct {
		index int
		score float64
	}
	scores := make([]docScore, len(s.documents))
	for i, vec := range s.embeddings {
		scores[i] = docScore{index: i, score: cosineSimilarity(queryVec, vec)}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	k := s.topK
	if k > len(scores) {
		k = len(scores)
	}
	docs := make([]advisor.Document, k)
	for i := 0; i < k; i++ {
		docs[i] = s.documents[scores[i].index]
	}
	return docs, nil
}

// Len reports the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
