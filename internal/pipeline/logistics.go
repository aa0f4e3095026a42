package pipeline

import (
	"context"
	"fmt"
	"sort"

	"procurement-backend/internal/services"
)

// Freight estimate per unit per km; a floor keeps short hauls realistic.
const (
	freightPerUnitKm = 0.0004
	minFreightCost   = 25.0
)

// runLogistics computes the total landed cost of each offer (price plus a
// distance-derived freight estimate), weights it by supplier reliability and
// selects the minimal weighted cost.
func (p *Pipeline) runLogistics(ctx context.Context, market *MarketResult, demand *DemandResult) StageResult {
	ctx, cancel := stageContext(ctx)
	defer cancel()

	result := LogisticsResult{}

	if market == nil || len(market.Offers) == 0 {
		return StageResult{
			Stage:         StageLogistics,
			Justification: "Nenhuma oferta para avaliar; custo logístico não calculado.",
			Confidence:    confidenceLow,
			Logistics:     &result,
		}
	}

	quantity := demand.RecommendedQty
	if quantity < 1 {
		quantity = 1
	}

	confidence := confidenceHigh
	degraded := false

	ranked := make([]RankedOffer, 0, len(market.Offers))
	for _, offer := range market.Offers {
		distance, err := p.geo.DistanceKm(ctx, services.Coordinates{Latitude: offer.Latitude, Longitude: offer.Longitude}, p.warehouse)
		if err != nil {
			// Distance unknown: fall back to a pessimistic default so the
			// offer stays comparable instead of being dropped.
			distance = 1000
			degraded = true
		}

		freight := freightPerUnitKm * distance * float64(quantity)
		if freight < minFreightCost {
			freight = minFreightCost
		}

		total := offer.UnitPrice*float64(quantity) + freight

		reliability := offer.Reliability
		if reliability <= 0 {
			reliability = 0.5
		}

		ranked = append(ranked, RankedOffer{
			Offer:         offer,
			DistanceKm:    distance,
			LogisticsCost: freight,
			TotalCost:     total,
			WeightedCost:  total / reliability,
		})
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].WeightedCost < ranked[j].WeightedCost })

	result.Selected = &ranked[0]
	if len(ranked) > 1 {
		result.Alternatives = ranked[1:]
	}

	justification := fmt.Sprintf("Melhor custo total para %d unidades: %s a R$ %.2f (frete estimado R$ %.2f, confiabilidade %.0f%%).",
		quantity, result.Selected.Offer.Supplier, result.Selected.TotalCost, result.Selected.LogisticsCost, result.Selected.Offer.Reliability*100)
	if degraded {
		confidence = confidenceGood
		justification += " Serviço de geodistância indisponível para parte das ofertas; distância padrão aplicada."
	}

	return StageResult{
		Stage:         StageLogistics,
		Justification: justification,
		Confidence:    confidence,
		Logistics:     &result,
	}
}
