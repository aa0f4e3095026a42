package queryexec

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-backend/internal/catalog"
	"procurement-backend/internal/semantic"
)

// keywordEmbedder embeds texts into a tiny keyword-presence vector so cosine
// ranking is deterministic without a model.
type keywordEmbedder struct{}

var embedderKeywords = []string{"parafuso", "porca", "trena", "chave", "arruela"}

func (keywordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		vec := make([]float32, len(embedderKeywords)+1)
		vec[len(embedderKeywords)] = 0.1
		for j, keyword := range embedderKeywords {
			if strings.Contains(lower, keyword) {
				vec[j] = 1
			}
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// failingStore simulates the catalog service being unreachable.
type failingStore struct{}

var errCatalogDown = errors.New("catalog service unreachable")

func (failingStore) GetBySku(ctx context.Context, sku string) (catalog.Product, error) {
	return catalog.Product{}, errCatalogDown
}

func (failingStore) ResolveName(ctx context.Context, name string) (catalog.Product, error) {
	return catalog.Product{}, errCatalogDown
}

func (failingStore) Search(ctx context.Context, filter catalog.Filter, limit int) ([]catalog.Product, error) {
	return nil, errCatalogDown
}

func (failingStore) List(ctx context.Context) ([]catalog.Product, error) {
	return nil, errCatalogDown
}

func seededStore() catalog.Store {
	return catalog.NewMemoryStore(catalog.SeedProducts()...)
}

func seededIndex(t *testing.T, store catalog.Store) *semantic.Index {
	index := semantic.NewIndex(keywordEmbedder{})
	require.NoError(t, index.Reindex(context.Background(), store))
	return index
}

func TestDirectStockAnswer(t *testing.T) {
	executor := New(nil, seededStore(), semantic.NewIndex(keywordEmbedder{}))

	content, err := executor.Direct(context.Background(), "SKU_001", false)
	require.NoError(t, err)

	assert.Contains(t, content, "150 unidades")
	assert.Contains(t, content, "SKU_001")
	assert.Contains(t, content, "acima do mínimo")
}

func TestDirectStockAnswerBelowMinimum(t *testing.T) {
	executor := New(nil, seededStore(), semantic.NewIndex(keywordEmbedder{}))

	content, err := executor.Direct(context.Background(), "SKU_002", false)
	require.NoError(t, err)

	assert.Contains(t, content, "40 unidades")
	assert.Contains(t, content, "reposição recomendada")
}

func TestDirectPriceAnswer(t *testing.T) {
	executor := New(nil, seededStore(), semantic.NewIndex(keywordEmbedder{}))

	content, err := executor.Direct(context.Background(), "SKU_001", true)
	require.NoError(t, err)

	assert.Contains(t, content, "R$ 0.85")
}

func TestDirectUnknownSku(t *testing.T) {
	executor := New(nil, seededStore(), semantic.NewIndex(keywordEmbedder{}))

	_, err := executor.Direct(context.Background(), "SKU_404", false)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestLowStockFilterQuery(t *testing.T) {
	store := seededStore()
	executor := New(nil, store, seededIndex(t, store))

	answer, err := executor.Answer(context.Background(), "Quais produtos estão com estoque baixo?")
	require.NoError(t, err)

	assert.Equal(t, ModeSQL, answer.Mode)
	assert.False(t, answer.Degraded)
	// SKU_002 (40/80) and SKU_005 (8/15) sit at or below minimum stock.
	assert.Contains(t, answer.Content, "SKU_002")
	assert.Contains(t, answer.Content, "SKU_005")
	assert.NotContains(t, answer.Content, "SKU_003")
}

func TestSemanticQuery(t *testing.T) {
	store := seededStore()
	executor := New(nil, store, seededIndex(t, store))

	answer, err := executor.Answer(context.Background(), "Para que serve um parafuso?")
	require.NoError(t, err)

	assert.Equal(t, ModeRAG, answer.Mode)
	assert.Contains(t, answer.Content, "Parafuso Sextavado M8")
}

func TestCatalogDownDegradesToSemantic(t *testing.T) {
	// The index was built before the catalog went down.
	index := seededIndex(t, seededStore())
	executor := New(nil, failingStore{}, index)

	answer, err := executor.Answer(context.Background(), "Quais produtos estão com estoque baixo?")
	require.NoError(t, err)

	assert.Equal(t, ModeRAG, answer.Mode)
	assert.True(t, answer.Degraded)
	assert.Contains(t, answer.Content, "⚠️")
}

func TestEmptyIndexDegradesToCatalog(t *testing.T) {
	store := seededStore()
	executor := New(nil, store, semantic.NewIndex(keywordEmbedder{}))

	answer, err := executor.Answer(context.Background(), "Para que serve um parafuso?")
	require.NoError(t, err)

	assert.Equal(t, ModeSQL, answer.Mode)
	assert.True(t, answer.Degraded)
	assert.Contains(t, answer.Content, "⚠️")
}

func TestBothSourcesDownReturnsErrNoSources(t *testing.T) {
	executor := New(nil, failingStore{}, semantic.NewIndex(keywordEmbedder{}))

	_, err := executor.Answer(context.Background(), "Quais produtos estão com estoque baixo?")
	assert.ErrorIs(t, err, ErrNoSources)
}

func TestClassifyFallback(t *testing.T) {
	tests := []struct {
		question string
		mode     Mode
		lowStock bool
	}{
		{"Quais produtos estão com estoque baixo?", ModeSQL, true},
		{"Liste os itens abaixo de R$ 10", ModeSQL, false},
		{"Para que serve uma trena?", ModeRAG, false},
	}

	for _, test := range tests {
		c := classifyFallback(test.question)
		assert.Equal(t, string(test.mode), c.Mode, "question: %s", test.question)
		assert.Equal(t, test.lowStock, c.LowStock, "question: %s", test.question)
	}
}
