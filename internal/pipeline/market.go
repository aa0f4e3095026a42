package pipeline

import (
	"context"
	"fmt"
	"sort"
)

// runMarket gathers candidate supplier offers and summarizes the price trend
// relative to the historical average cost from the demand stage.
func (p *Pipeline) runMarket(ctx context.Context, sku string, demand *DemandResult) StageResult {
	ctx, cancel := stageContext(ctx)
	defer cancel()

	result := MarketResult{}
	confidence := confidenceHigh

	offers, err := p.suppliers.Offers(ctx, sku)
	if err != nil {
		confidence = confidenceLow
		result.TrendSummary = "Sem dados de mercado disponíveis."
		return StageResult{
			Stage:         StageMarket,
			Justification: fmt.Sprintf("Serviço de fornecedores indisponível (%v); nenhuma oferta coletada.", err),
			Confidence:    confidence,
			Market:        &result,
		}
	}

	sort.Slice(offers, func(i, j int) bool { return offers[i].UnitPrice < offers[j].UnitPrice })
	result.Offers = offers

	justification := fmt.Sprintf("%d ofertas coletadas para %s.", len(offers), sku)
	if len(offers) == 0 {
		confidence = confidenceLow
		result.TrendSummary = "Nenhuma oferta de fornecedor encontrada."
	} else {
		best := offers[0].UnitPrice
		worst := offers[len(offers)-1].UnitPrice
		switch {
		case demand.AvgUnitCost > 0 && best > demand.AvgUnitCost*1.10:
			result.TrendSummary = fmt.Sprintf("Preços em alta: melhor oferta R$ %.2f contra custo médio histórico de R$ %.2f.", best, demand.AvgUnitCost)
		case demand.AvgUnitCost > 0 && best < demand.AvgUnitCost*0.95:
			result.TrendSummary = fmt.Sprintf("Preços favoráveis: melhor oferta R$ %.2f abaixo do custo médio histórico de R$ %.2f.", best, demand.AvgUnitCost)
		default:
			result.TrendSummary = fmt.Sprintf("Preços estáveis entre R$ %.2f e R$ %.2f.", best, worst)
		}
	}

	return StageResult{
		Stage:         StageMarket,
		Justification: justification,
		Confidence:    confidence,
		Market:        &result,
	}
}
