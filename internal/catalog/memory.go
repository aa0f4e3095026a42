package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory catalog used by tests and by local mode when no
// catalog service URL is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]Product
}

func NewMemoryStore(products ...Product) *MemoryStore {
	store := &MemoryStore{products: make(map[string]Product, len(products))}
	for _, p := range products {
		store.products[p.Sku] = p
	}
	return store
}

// SeedProducts is the demo catalog loaded in local mode.
func SeedProducts() []Product {
	return []Product{
		{Sku: "SKU_001", Name: "Parafuso Sextavado M8", Description: "Parafuso sextavado M8 em aço carbono zincado, rosca total", Category: "fixadores", UnitPrice: 0.85, AvgUnitCost: 0.62, CurrentStock: 150, MinimumStock: 50, AvgMonthlySales: 320},
		{Sku: "SKU_002", Name: "Porca Sextavada M8", Description: "Porca sextavada M8 zincada, classe 8", Category: "fixadores", UnitPrice: 0.35, AvgUnitCost: 0.22, CurrentStock: 40, MinimumStock: 80, AvgMonthlySales: 410},
		{Sku: "SKU_003", Name: "Arruela Lisa M8", Description: "Arruela lisa M8 em aço zincado", Category: "fixadores", UnitPrice: 0.12, AvgUnitCost: 0.07, CurrentStock: 900, MinimumStock: 200, AvgMonthlySales: 650},
		{Sku: "SKU_004", Name: "Chave de Fenda 6mm", Description: "Chave de fenda ponta chata 6mm, cabo emborrachado", Category: "ferramentas", UnitPrice: 14.90, AvgUnitCost: 9.80, CurrentStock: 25, MinimumStock: 10, AvgMonthlySales: 18},
		{Sku: "SKU_005", Name: "Trena 5m", Description: "Trena de 5 metros com trava e clipe de cinto", Category: "ferramentas", UnitPrice: 22.50, AvgUnitCost: 15.10, CurrentStock: 8, MinimumStock: 15, AvgMonthlySales: 30},
	}
}

func (s *MemoryStore) Add(product Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.Sku] = product
}

func (s *MemoryStore) GetBySku(ctx context.Context, sku string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	product, ok := s.products[strings.ToUpper(sku)]
	if !ok {
		return Product{}, ErrNotFound
	}
	return product, nil
}

func (s *MemoryStore) ResolveName(ctx context.Context, name string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return Product{}, ErrNotFound
	}

	products := s.sorted()

	// Exact match.
	for _, p := range products {
		if strings.ToLower(p.Name) == query {
			return p, nil
		}
	}

	// Partial match: every query word appears in the product name.
	words := strings.Fields(query)
	for _, p := range products {
		lower := strings.ToLower(p.Name)
		all := true
		for _, w := range words {
			if !strings.Contains(lower, w) {
				all = false
				break
			}
		}
		if all {
			return p, nil
		}
	}

	// Substring containment, either direction.
	for _, p := range products {
		lower := strings.ToLower(p.Name)
		if strings.Contains(lower, query) || strings.Contains(query, lower) {
			return p, nil
		}
	}

	return Product{}, ErrNotFound
}

func (s *MemoryStore) Search(ctx context.Context, filter Filter, limit int) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Product
	for _, p := range s.sorted() {
		if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
			continue
		}
		if filter.LowStock && p.CurrentStock > p.MinimumStock {
			continue
		}
		if filter.MaxPrice > 0 && p.UnitPrice > filter.MaxPrice {
			continue
		}
		if filter.NameQuery != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.NameQuery)) {
			continue
		}
		results = append(results, p)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(), nil
}

func (s *MemoryStore) sorted() []Product {
	products := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Sku < products[j].Sku })
	return products
}
