package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const clientTimeout = 15 * time.Second

type HTTPForecastService struct {
	client *resty.Client
}

func NewHTTPForecastService(baseURL string) *HTTPForecastService {
	return &HTTPForecastService{client: resty.New().SetBaseURL(baseURL).SetTimeout(clientTimeout)}
}

func (s *HTTPForecastService) Forecast(ctx context.Context, sku string, horizonMonths int) (Forecast, error) {
	var forecast Forecast
	res, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("horizon_months", strconv.Itoa(horizonMonths)).
		SetResult(&forecast).
		Get("/forecast/" + sku)
	if err != nil {
		return Forecast{}, fmt.Errorf("forecast service unreachable: %w", err)
	}
	if !res.IsSuccess() {
		return Forecast{}, fmt.Errorf("forecast service returned status %d", res.StatusCode())
	}
	return forecast, nil
}

type HTTPSupplierService struct {
	client *resty.Client
}

func NewHTTPSupplierService(baseURL string) *HTTPSupplierService {
	return &HTTPSupplierService{client: resty.New().SetBaseURL(baseURL).SetTimeout(clientTimeout)}
}

func (s *HTTPSupplierService) Offers(ctx context.Context, sku string) ([]Offer, error) {
	var offers []Offer
	res, err := s.client.R().
		SetContext(ctx).
		SetResult(&offers).
		Get("/offers/" + sku)
	if err != nil {
		return nil, fmt.Errorf("supplier service unreachable: %w", err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("supplier service returned status %d", res.StatusCode())
	}
	return offers, nil
}

type HTTPGeoService struct {
	client *resty.Client
}

func NewHTTPGeoService(baseURL string) *HTTPGeoService {
	return &HTTPGeoService{client: resty.New().SetBaseURL(baseURL).SetTimeout(clientTimeout)}
}

func (s *HTTPGeoService) DistanceKm(ctx context.Context, from, to Coordinates) (float64, error) {
	var result struct {
		DistanceKm float64 `json:"distance_km"`
	}
	res, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("from_lat", strconv.FormatFloat(from.Latitude, 'f', -1, 64)).
		SetQueryParam("from_lon", strconv.FormatFloat(from.Longitude, 'f', -1, 64)).
		SetQueryParam("to_lat", strconv.FormatFloat(to.Latitude, 'f', -1, 64)).
		SetQueryParam("to_lon", strconv.FormatFloat(to.Longitude, 'f', -1, 64)).
		SetResult(&result).
		Get("/distance")
	if err != nil {
		return 0, fmt.Errorf("geodistance service unreachable: %w", err)
	}
	if !res.IsSuccess() {
		return 0, fmt.Errorf("geodistance service returned status %d", res.StatusCode())
	}
	return result.DistanceKm, nil
}
