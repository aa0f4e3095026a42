// Package services holds the clients for the external collaborators consumed
// by the analysis pipeline: demand forecasting, supplier offers and
// geodistance.
package services

import "context"

// Forecast is the demand prediction for a SKU over the requested horizon.
type Forecast struct {
	Sku              string  `json:"sku"`
	HorizonMonths    int     `json:"horizon_months"`
	AvgMonthlyDemand float64 `json:"avg_monthly_demand"`
	Trend            string  `json:"trend"` // "up", "down" or "stable"
	Confidence       float64 `json:"confidence"`
}

type ForecastService interface {
	Forecast(ctx context.Context, sku string, horizonMonths int) (Forecast, error)
}

// Offer is a candidate supplier quote for a SKU.
type Offer struct {
	Supplier     string  `json:"supplier"`
	Sku          string  `json:"sku"`
	UnitPrice    float64 `json:"unit_price"`
	MinQuantity  int     `json:"min_quantity"`
	LeadTimeDays int     `json:"lead_time_days"`
	Reliability  float64 `json:"reliability"` // 0..1
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

type SupplierService interface {
	Offers(ctx context.Context, sku string) ([]Offer, error)
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type GeoService interface {
	// DistanceKm returns the distance between two coordinate pairs in km.
	DistanceKm(ctx context.Context, from, to Coordinates) (float64, error)
}
