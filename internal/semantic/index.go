// Package semantic provides the nearest-neighbor index over catalog product
// descriptions used by the RAG answer path.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"procurement-backend/internal/catalog"
)

var ErrEmptyIndex = errors.New("semantic index is empty")

// Embedder is the slice of the language-model client the index needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Result struct {
	Sku     string
	Name    string
	Snippet string
	Score   float64
}

type entry struct {
	sku    string
	name   string
	text   string
	vector []float32
}

// Index is an in-process vector store. Entries are replaced wholesale by
// Reindex; Search is safe for concurrent use.
type Index struct {
	embedder Embedder

	mu      sync.RWMutex
	entries []entry
}

func NewIndex(embedder Embedder) *Index {
	return &Index{embedder: embedder}
}

// Reindex rebuilds the index from the catalog's current product descriptions.
func (idx *Index) Reindex(ctx context.Context, store catalog.Store) error {
	products, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing catalog for indexing: %w", err)
	}
	if len(products) == 0 {
		idx.mu.Lock()
		idx.entries = nil
		idx.mu.Unlock()
		return nil
	}

	texts := make([]string, len(products))
	for i, p := range products {
		texts[i] = fmt.Sprintf("%s (%s): %s", p.Name, p.Sku, p.Description)
	}

	vectors, err := idx.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding catalog descriptions: %w", err)
	}
	if len(vectors) != len(products) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(products))
	}

	entries := make([]entry, len(products))
	for i, p := range products {
		entries[i] = entry{sku: p.Sku, name: p.Name, text: texts[i], vector: vectors[i]}
	}

	idx.mu.Lock()
	idx.entries = entries
	idx.mu.Unlock()
	return nil
}

// Search returns the top-k entries by cosine similarity to the query.
func (idx *Index) Search(ctx context.Context, query string, k int) ([]Result, error) {
	idx.mu.RLock()
	entries := idx.entries
	idx.mu.RUnlock()

	if len(entries) == 0 {
		return nil, ErrEmptyIndex
	}

	vectors, err := idx.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	queryVec := vectors[0]

	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		results = append(results, Result{
			Sku:     e.sku,
			Name:    e.name,
			Snippet: e.text,
			Score:   cosine(queryVec, e.vector),
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
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
