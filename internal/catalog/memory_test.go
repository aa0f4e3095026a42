package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBySkuIsCaseInsensitive(t *testing.T) {
	store := NewMemoryStore(SeedProducts()...)

	product, err := store.GetBySku(context.Background(), "sku_001")
	require.NoError(t, err)
	assert.Equal(t, "SKU_001", product.Sku)

	_, err = store.GetBySku(context.Background(), "SKU_404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveName(t *testing.T) {
	store := NewMemoryStore(SeedProducts()...)

	tests := []struct {
		name string
		sku  string
	}{
		{"Parafuso Sextavado M8", "SKU_001"}, // exact
		{"parafuso m8", "SKU_001"},           // every word present
		{"Trena", "SKU_005"},                 // substring
		{"porca sextavada", "SKU_002"},
	}

	for _, test := range tests {
		product, err := store.ResolveName(context.Background(), test.name)
		require.NoError(t, err, "name: %s", test.name)
		assert.Equal(t, test.sku, product.Sku, "name: %s", test.name)
	}

	_, err := store.ResolveName(context.Background(), "martelo pneumático")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.ResolveName(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchFilters(t *testing.T) {
	store := NewMemoryStore(SeedProducts()...)

	lowStock, err := store.Search(context.Background(), Filter{LowStock: true}, 0)
	require.NoError(t, err)
	skus := make([]string, 0, len(lowStock))
	for _, p := range lowStock {
		skus = append(skus, p.Sku)
	}
	assert.ElementsMatch(t, []string{"SKU_002", "SKU_005"}, skus)

	tools, err := store.Search(context.Background(), Filter{Category: "ferramentas"}, 0)
	require.NoError(t, err)
	assert.Len(t, tools, 2)

	cheap, err := store.Search(context.Background(), Filter{MaxPrice: 1.0}, 0)
	require.NoError(t, err)
	assert.Len(t, cheap, 3)

	limited, err := store.Search(context.Background(), Filter{}, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListIsSortedBySku(t *testing.T) {
	store := NewMemoryStore(SeedProducts()...)

	products, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 5)
	for i := 1; i < len(products); i++ {
		assert.Less(t, products[i-1].Sku, products[i].Sku)
	}
}
