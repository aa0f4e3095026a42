package semantic

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-backend/internal/catalog"
)

type keywordEmbedder struct{}

var keywords = []string{"parafuso", "porca", "trena", "chave", "arruela"}

func (keywordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		vec := make([]float32, len(keywords)+1)
		vec[len(keywords)] = 0.1
		for j, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				vec[j] = 1
			}
		}
		vectors[i] = vec
	}
	return vectors, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedder unavailable")
}

func TestSearchRanksByQuerySimilarity(t *testing.T) {
	index := NewIndex(keywordEmbedder{})
	store := catalog.NewMemoryStore(catalog.SeedProducts()...)
	require.NoError(t, index.Reindex(context.Background(), store))

	results, err := index.Search(context.Background(), "preciso de uma trena", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "SKU_005", results[0].Sku)
	assert.Len(t, results, 3)
}

func TestSearchEmptyIndex(t *testing.T) {
	index := NewIndex(keywordEmbedder{})

	_, err := index.Search(context.Background(), "parafuso", 3)
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestReindexReplacesEntries(t *testing.T) {
	index := NewIndex(keywordEmbedder{})

	store := catalog.NewMemoryStore(catalog.SeedProducts()...)
	require.NoError(t, index.Reindex(context.Background(), store))

	// Reindexing against an empty catalog clears the index.
	require.NoError(t, index.Reindex(context.Background(), catalog.NewMemoryStore()))

	_, err := index.Search(context.Background(), "parafuso", 3)
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestReindexPropagatesEmbedderError(t *testing.T) {
	index := NewIndex(failingEmbedder{})
	store := catalog.NewMemoryStore(catalog.SeedProducts()...)

	err := index.Reindex(context.Background(), store)
	assert.Error(t, err)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosine([]float32{1, 0}, []float32{1}))
	assert.Equal(t, 0.0, cosine(nil, nil))
}
