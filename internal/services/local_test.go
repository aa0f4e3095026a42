package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement-backend/internal/catalog"
)

func TestHaversineDistance(t *testing.T) {
	geo := HaversineGeoService{}

	saoPaulo := Coordinates{Latitude: -23.5505, Longitude: -46.6333}
	rio := Coordinates{Latitude: -22.9068, Longitude: -43.1729}

	km, err := geo.DistanceKm(context.Background(), saoPaulo, rio)
	require.NoError(t, err)
	assert.InDelta(t, 360, km, 10)

	same, err := geo.DistanceKm(context.Background(), saoPaulo, saoPaulo)
	require.NoError(t, err)
	assert.InDelta(t, 0, same, 1e-6)
}

func TestLocalForecastDerivesFromCatalog(t *testing.T) {
	store := catalog.NewMemoryStore(catalog.SeedProducts()...)
	forecast := &LocalForecastService{Catalog: store}

	// SKU_002: stock 40 below monthly sales 410, so the trend is up.
	result, err := forecast.Forecast(context.Background(), "SKU_002", 3)
	require.NoError(t, err)
	assert.Equal(t, 410.0, result.AvgMonthlyDemand)
	assert.Equal(t, "up", result.Trend)

	// SKU_003: stock 900 above monthly sales 650.
	result, err = forecast.Forecast(context.Background(), "SKU_003", 3)
	require.NoError(t, err)
	assert.Equal(t, "stable", result.Trend)

	_, err = forecast.Forecast(context.Background(), "SKU_404", 3)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestLocalSupplierOffersPricedAroundCost(t *testing.T) {
	store := catalog.NewMemoryStore(catalog.SeedProducts()...)
	suppliers := &LocalSupplierService{Catalog: store}

	offers, err := suppliers.Offers(context.Background(), "SKU_001")
	require.NoError(t, err)
	require.Len(t, offers, 3)

	for _, offer := range offers {
		assert.Equal(t, "SKU_001", offer.Sku)
		// Priced within ±10% of the historical average cost of 0.62.
		assert.InDelta(t, 0.62, offer.UnitPrice, 0.62*0.10)
		assert.Greater(t, offer.Reliability, 0.0)
	}
}
