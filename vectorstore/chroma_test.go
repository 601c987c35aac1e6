package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"

	"github.com/smallnest/agrigraph/advisor"
)

type fakeChroma struct {
	added   []schema.Document
	results []schema.Document
	err     error
	lastK   int
}

func (f *fakeChroma) AddDocuments(_ context.Context, docs []schema.Document, _ ...vectorstores.Option) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.added = append(f.added, docs...)
	return make([]string, len(docs)), nil
}

func (f *fakeChroma) SimilaritySearch(_ context.Context, _ string, numDocuments int, _ ...vectorstores.Option) ([]schema.Document, error) {
	f.lastK = numDocuments
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func TestChromaStoreAdd(t *testing.T) {
	t.Parallel()

	fake := &fakeChroma{}
	store := &ChromaStore{store: fake, topK: 3}

	err := store.Add(context.Background(), []advisor.Document{
		{Content: "soil ph basics", Metadata: map[string]any{"source": "soil.pdf"}},
	})
	require.NoError(t, err)

	require.Len(t, fake.added, 1)
	assert.Equal(t, "soil ph basics", fake.added[0].PageContent)
	assert.Equal(t, "soil.pdf", fake.added[0].Metadata["source"])
}

func TestChromaStoreRetrieve(t *testing.T) {
	t.Parallel()

	fake := &fakeChroma{results: []schema.Document{
		{PageContent: "soil ph basics", Metadata: map[string]any{"source": "soil.pdf"}},
	}}
	store := &ChromaStore{store: fake, topK: 3}

	docs, err := store.Retrieve(context.Background(), "soil ph")
	require.NoError(t, err)

	assert.Equal(t, 3, fake.lastK)
	require.Len(t, docs, 1)
	assert.Equal(t, "soil ph basics", docs[0].Content)
	assert.Equal(t, "soil.pdf", docs[0].Metadata["source"])
}

func TestChromaStoreSearchError(t *testing.T) {
	t.Parallel()

	fake := &fakeChroma{err: errors.New("chroma down")}
	store := &ChromaStore{store: fake, topK: 3}

	_, err := store.Retrieve(context.Background(), "any")
	assert.ErrorContains(t, err, "chroma down")
}
