package pipeline

import (
	"context"
	"fmt"
	"math"
)

const forecastHorizonMonths = 3

// runDemand compares the catalog stock snapshot against the demand forecast.
// Collaborator errors are recorded in the justification and lower the stage
// confidence; the stage always produces a result.
func (p *Pipeline) runDemand(ctx context.Context, sku string, requestedQty int) StageResult {
	ctx, cancel := stageContext(ctx)
	defer cancel()

	result := DemandResult{}
	confidence := confidenceHigh
	justification := ""

	product, err := p.catalog.GetBySku(ctx, sku)
	if err != nil {
		confidence = confidenceLow
		justification = fmt.Sprintf("Não foi possível consultar o catálogo para %s (%v). ", sku, err)
	} else {
		result.ProductName = product.Name
		result.CurrentStock = product.CurrentStock
		result.MinimumStock = product.MinimumStock
		result.AvgUnitCost = product.AvgUnitCost
		result.AvgMonthlyDemand = product.AvgMonthlySales
		result.Trend = "stable"
	}

	forecast, err := p.forecast.Forecast(ctx, sku, forecastHorizonMonths)
	if err != nil {
		if confidence > confidenceGood {
			confidence = confidenceGood
		}
		justification += fmt.Sprintf("Serviço de previsão indisponível (%v); usando apenas a média histórica do catálogo. ", err)
	} else {
		result.AvgMonthlyDemand = forecast.AvgMonthlyDemand
		result.Trend = forecast.Trend
		confidence = math.Min(confidence, math.Max(forecast.Confidence, confidenceLow))
	}

	// Restock is needed when stock sits at or below the minimum, or when it
	// covers less than one month of forecast demand.
	result.NeedRestock = result.CurrentStock <= result.MinimumStock ||
		float64(result.CurrentStock) < result.AvgMonthlyDemand

	if result.NeedRestock {
		target := result.MinimumStock + int(math.Ceil(result.AvgMonthlyDemand))
		result.RecommendedQty = target - result.CurrentStock
		if requestedQty > result.RecommendedQty {
			result.RecommendedQty = requestedQty
		}
		if result.RecommendedQty < 1 {
			result.RecommendedQty = 1
		}
		justification += fmt.Sprintf("Estoque atual de %d unidades contra mínimo de %d e demanda mensal prevista de %.0f; reposição de %d unidades recomendada (tendência %s).",
			result.CurrentStock, result.MinimumStock, result.AvgMonthlyDemand, result.RecommendedQty, result.Trend)
	} else {
		justification += fmt.Sprintf("Estoque atual de %d unidades cobre o mínimo de %d e a demanda mensal prevista de %.0f; reposição não é necessária (tendência %s).",
			result.CurrentStock, result.MinimumStock, result.AvgMonthlyDemand, result.Trend)
	}

	return StageResult{
		Stage:         StageDemand,
		Justification: justification,
		Confidence:    confidence,
		Demand:        &result,
	}
}
