package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("product not found")

// Product is the catalog item snapshot used for lookups and analysis.
type Product struct {
	Sku             string  `json:"sku"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Category        string  `json:"category"`
	UnitPrice       float64 `json:"unit_price"`
	AvgUnitCost     float64 `json:"avg_unit_cost"`
	CurrentStock    int     `json:"current_stock"`
	MinimumStock    int     `json:"minimum_stock"`
	AvgMonthlySales float64 `json:"avg_monthly_sales"`
}

// Filter is a bounded structured query against the catalog.
type Filter struct {
	Category  string
	LowStock  bool
	MaxPrice  float64
	NameQuery string
}

// Store is the catalog collaborator. Name resolution tries exact match, then
// partial (all words present), then substring containment, stopping at the
// first hit.
type Store interface {
	GetBySku(ctx context.Context, sku string) (Product, error)

	ResolveName(ctx context.Context, name string) (Product, error)

	Search(ctx context.Context, filter Filter, limit int) ([]Product, error)

	List(ctx context.Context) ([]Product, error)
}
