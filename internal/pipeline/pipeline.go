package pipeline

import (
	"context"
	"log/slog"
	"time"

	"procurement-backend/internal/catalog"
	"procurement-backend/internal/services"
)

const stageTimeout = 30 * time.Second

// Pipeline holds the collaborators the stages call. All dependencies are
// injected at construction time.
type Pipeline struct {
	catalog   catalog.Store
	forecast  services.ForecastService
	suppliers services.SupplierService
	geo       services.GeoService

	// Warehouse is the delivery destination for logistics estimates.
	warehouse services.Coordinates
}

func New(store catalog.Store, forecast services.ForecastService, suppliers services.SupplierService, geo services.GeoService, warehouse services.Coordinates) *Pipeline {
	return &Pipeline{
		catalog:   store,
		forecast:  forecast,
		suppliers: suppliers,
		geo:       geo,
		warehouse: warehouse,
	}
}

// Run executes the chain for one SKU and always returns a trace ending in a
// purchase decision. requestedQty is the quantity the user asked about, 0
// when absent.
func (p *Pipeline) Run(ctx context.Context, sku string, requestedQty int) Trace {
	var trace Trace

	demand := p.runDemand(ctx, sku, requestedQty)
	trace = append(trace, demand)

	// High-confidence "no restock needed" short-circuits straight to the
	// decision stage.
	if !demand.Demand.NeedRestock && demand.Confidence >= confidenceHigh {
		slog.Info("demand analysis short-circuited pipeline", "sku", sku)
		trace = append(trace, p.runDecision(trace))
		return trace
	}

	market := p.runMarket(ctx, sku, demand.Demand)
	trace = append(trace, market)

	logistics := p.runLogistics(ctx, market.Market, demand.Demand)
	trace = append(trace, logistics)

	trace = append(trace, p.runDecision(trace))
	return trace
}

// stageContext bounds each stage's collaborator calls so a hung service
// degrades the stage instead of blocking the worker.
func stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, stageTimeout)
}
