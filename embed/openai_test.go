package embed

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbeddingAPI struct {
	resp openai.EmbeddingResponse
	err  error
	got  openai.EmbeddingRequest
}

func (f *fakeEmbeddingAPI) CreateEmbeddings(_ context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	if r, ok := req.(openai.EmbeddingRequest); ok {
		f.got = r
	}
	return f.resp, f.err
}

func TestEmbedTextsPreservesOrder(t *testing.T) {
	t.Parallel()

	api := &fakeEmbeddingAPI{resp: openai.EmbeddingResponse{
		Data: []openai.Embedding{
			{Index: 1, Embedding: []float32{0, 1}},
			{Index: 0, Embedding: []float32{1, 0}},
		},
	}}
	e, err := NewOpenAIEmbedder("", WithClient(api))
	require.NoError(t, err)

	vectors, err := e.EmbedTexts(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
	assert.Equal(t, openai.SmallEmbedding3, api.got.Model)
}

func TestEmbedTextSingle(t *testing.T) {
	t.Parallel()

	api := &fakeEmbeddingAPI{resp: openai.EmbeddingResponse{
		Data: []openai.Embedding{{Index: 0, Embedding: []float32{0.5, 0.5}}},
	}}
	e, err := NewOpenAIEmbedder("", WithClient(api))
	require.NoError(t, err)

	vec, err := e.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vec)
}

func TestEmbedTextsErrors(t *testing.T) {
	t.Parallel()

	api := &fakeEmbeddingAPI{err: errors.New("quota exceeded")}
	e, err := NewOpenAIEmbedder("", WithClient(api))
	require.NoError(t, err)

	_, err = e.EmbedTexts(context.Background(), []string{"text"})
	assert.ErrorContains(t, err, "quota exceeded")

	_, err = e.EmbedTexts(context.Background(), nil)
	assert.ErrorContains(t, err, "no texts")
}

func TestNewOpenAIEmbedderRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewOpenAIEmbedder("")
	assert.Error(t, err)
}
