// Package embed provides text embedding clients for the vector stores.
package embed

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Embedder turns text into dense vectors.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// embeddingAPI is the slice of the OpenAI client the embedder needs.
type embeddingAPI interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIEmbedder embeds text through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client embeddingAPI
	model  openai.EmbeddingModel
}

// OpenAIOption customizes an OpenAIEmbedder.
type OpenAIOption func(*OpenAIEmbedder)

// WithModel selects the embedding model (default text-embedding-3-small).
func WithModel(model openai.EmbeddingModel) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.model = model }
}

// WithClient replaces the underlying API client, mainly for tests.
func WithClient(client embeddingAPI) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.client = client }
}

// NewOpenAIEmbedder builds an embedder for the given API key.
func NewOpenAIEmbedder(apiKey string, opts ...OpenAIOption) (*OpenAIEmbedder, error) {
	e := &OpenAIEmbedder{
		model: openai.SmallEmbedding3,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		if apiKey == "" {
			return nil, fmt.Errorf("openai api key is required")
		}
		e.client = openai.NewClient(apiKey)
	}
	return e, nil
}

// EmbedText embeds a single text.
func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds a batch of texts in one API call, preserving order.
func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to embed")
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d texts", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding response index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}
