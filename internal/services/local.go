package services

import (
	"context"
	"math"

	"procurement-backend/internal/catalog"
)

// LocalForecastService derives a deterministic forecast from the catalog
// snapshot. Used in local mode and tests when no forecasting service URL is
// configured.
type LocalForecastService struct {
	Catalog catalog.Store
}

func (s *LocalForecastService) Forecast(ctx context.Context, sku string, horizonMonths int) (Forecast, error) {
	product, err := s.Catalog.GetBySku(ctx, sku)
	if err != nil {
		return Forecast{}, err
	}

	trend := "stable"
	if float64(product.CurrentStock) < product.AvgMonthlySales {
		trend = "up"
	}

	return Forecast{
		Sku:              sku,
		HorizonMonths:    horizonMonths,
		AvgMonthlyDemand: product.AvgMonthlySales,
		Trend:            trend,
		Confidence:       0.8,
	}, nil
}

// LocalSupplierService returns canned offers priced around the catalog
// average unit cost.
type LocalSupplierService struct {
	Catalog catalog.Store
}

func (s *LocalSupplierService) Offers(ctx context.Context, sku string) ([]Offer, error) {
	product, err := s.Catalog.GetBySku(ctx, sku)
	if err != nil {
		return nil, err
	}

	base := product.AvgUnitCost
	if base == 0 {
		base = product.UnitPrice * 0.7
	}

	return []Offer{
		{Supplier: "Distribuidora Alfa", Sku: sku, UnitPrice: base * 0.98, MinQuantity: 100, LeadTimeDays: 7, Reliability: 0.92, Latitude: -23.55, Longitude: -46.63},
		{Supplier: "Comercial Beta", Sku: sku, UnitPrice: base * 0.93, MinQuantity: 500, LeadTimeDays: 15, Reliability: 0.78, Latitude: -22.90, Longitude: -43.20},
		{Supplier: "Atacado Gama", Sku: sku, UnitPrice: base * 1.05, MinQuantity: 50, LeadTimeDays: 3, Reliability: 0.97, Latitude: -25.43, Longitude: -49.27},
	}, nil
}

// HaversineGeoService computes great-circle distances locally.
type HaversineGeoService struct{}

const earthRadiusKm = 6371.0

func (HaversineGeoService) DistanceKm(ctx context.Context, from, to Coordinates) (float64, error) {
	lat1 := from.Latitude * math.Pi / 180
	lat2 := to.Latitude * math.Pi / 180
	dLat := (to.Latitude - from.Latitude) * math.Pi / 180
	dLon := (to.Longitude - from.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c, nil
}
