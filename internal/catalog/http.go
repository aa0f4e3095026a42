package catalog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPStore talks to the external catalog service.
type HTTPStore struct {
	client *resty.Client
}

func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second),
	}
}

func (s *HTTPStore) GetBySku(ctx context.Context, sku string) (Product, error) {
	var product Product
	res, err := s.client.R().
		SetContext(ctx).
		SetResult(&product).
		Get("/products/" + sku)
	if err != nil {
		return Product{}, fmt.Errorf("catalog service unreachable: %w", err)
	}
	if res.StatusCode() == 404 {
		return Product{}, ErrNotFound
	}
	if !res.IsSuccess() {
		return Product{}, fmt.Errorf("catalog service returned status %d", res.StatusCode())
	}
	return product, nil
}

func (s *HTTPStore) ResolveName(ctx context.Context, name string) (Product, error) {
	var product Product
	res, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("name", name).
		SetResult(&product).
		Get("/products/resolve")
	if err != nil {
		return Product{}, fmt.Errorf("catalog service unreachable: %w", err)
	}
	if res.StatusCode() == 404 {
		return Product{}, ErrNotFound
	}
	if !res.IsSuccess() {
		return Product{}, fmt.Errorf("catalog service returned status %d", res.StatusCode())
	}
	return product, nil
}

func (s *HTTPStore) Search(ctx context.Context, filter Filter, limit int) ([]Product, error) {
	req := s.client.R().SetContext(ctx)
	if filter.Category != "" {
		req.SetQueryParam("category", filter.Category)
	}
	if filter.LowStock {
		req.SetQueryParam("low_stock", "true")
	}
	if filter.MaxPrice > 0 {
		req.SetQueryParam("max_price", strconv.FormatFloat(filter.MaxPrice, 'f', -1, 64))
	}
	if filter.NameQuery != "" {
		req.SetQueryParam("name", filter.NameQuery)
	}
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}

	var products []Product
	res, err := req.SetResult(&products).Get("/products")
	if err != nil {
		return nil, fmt.Errorf("catalog service unreachable: %w", err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("catalog service returned status %d", res.StatusCode())
	}
	return products, nil
}

func (s *HTTPStore) List(ctx context.Context) ([]Product, error) {
	return s.Search(ctx, Filter{}, 0)
}
