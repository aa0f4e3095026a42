package pipeline

import "fmt"

// Total landed unit cost may exceed the historical average by at most 10%
// before approval requires a human.
const costTolerance = 1.10

// runDecision consumes every prior StageResult (or just the demand analysis
// on a short-circuited run) and always yields a terminal decision: approve,
// reject, or manual_review. Any missing data or low upstream confidence
// downgrades to manual_review, never to an unresolved state.
func (p *Pipeline) runDecision(trace Trace) StageResult {
	var demand *DemandResult
	var logistics *LogisticsResult
	minUpstreamConfidence := 1.0

	for _, stage := range trace {
		if stage.Confidence < minUpstreamConfidence {
			minUpstreamConfidence = stage.Confidence
		}
		switch stage.Stage {
		case StageDemand:
			demand = stage.Demand
		case StageLogistics:
			logistics = stage.Logistics
		}
	}

	result := DecisionResult{Decision: DecisionManualReview}
	confidence := minUpstreamConfidence

	switch {
	case demand == nil:
		result.Rationale = "Análise de demanda ausente; decisão encaminhada para revisão manual."
		result.NextSteps = []string{"Executar nova análise para o item."}

	case !demand.NeedRestock && minUpstreamConfidence >= confidenceHigh:
		result.Decision = DecisionReject
		result.Rationale = fmt.Sprintf("Compra rejeitada: estoque de %d unidades cobre o mínimo (%d) e a demanda mensal prevista (%.0f).",
			demand.CurrentStock, demand.MinimumStock, demand.AvgMonthlyDemand)
		result.NextSteps = []string{"Reavaliar o item na próxima revisão de estoque."}

	case !demand.NeedRestock:
		result.Rationale = "A análise indica que não há necessidade de reposição, mas a confiança dos dados é baixa; revisão manual recomendada."
		result.NextSteps = []string{"Validar os níveis de estoque e a previsão de demanda com o comprador."}

	case logistics == nil || logistics.Selected == nil:
		result.QuantityRecommended = demand.RecommendedQty
		result.Rationale = "Reposição necessária, porém nenhuma oferta de fornecedor pôde ser avaliada; revisão manual necessária."
		result.NextSteps = []string{"Solicitar cotações manualmente aos fornecedores cadastrados."}

	default:
		selected := logistics.Selected
		result.Supplier = selected.Offer.Supplier
		result.UnitPrice = selected.Offer.UnitPrice
		result.TotalCost = selected.TotalCost
		result.QuantityRecommended = demand.RecommendedQty

		unitLandedCost := selected.TotalCost / float64(max(demand.RecommendedQty, 1))
		withinTolerance := demand.AvgUnitCost > 0 && unitLandedCost <= demand.AvgUnitCost*costTolerance

		if minUpstreamConfidence >= confidenceGood && withinTolerance {
			result.Decision = DecisionApprove
			result.Rationale = fmt.Sprintf("Compra aprovada: %s oferece custo total de R$ %.2f (R$ %.4f/unidade, dentro da tolerância de %.0f%% sobre o custo médio histórico de R$ %.2f).",
				selected.Offer.Supplier, selected.TotalCost, unitLandedCost, (costTolerance-1)*100, demand.AvgUnitCost)
			result.NextSteps = []string{
				fmt.Sprintf("Emitir pedido de compra de %d unidades para %s.", demand.RecommendedQty, selected.Offer.Supplier),
				fmt.Sprintf("Confirmar prazo de entrega de %d dias.", selected.Offer.LeadTimeDays),
			}
		} else if !withinTolerance {
			result.Rationale = fmt.Sprintf("Custo unitário de R$ %.4f excede a tolerância sobre o custo médio histórico de R$ %.2f; revisão manual necessária.",
				unitLandedCost, demand.AvgUnitCost)
			result.NextSteps = []string{"Negociar preço com o fornecedor selecionado ou buscar novas cotações."}
		} else {
			result.Rationale = "Reposição recomendada, mas a confiança dos dados coletados é insuficiente para aprovação automática."
			result.NextSteps = []string{"Revisar manualmente as ofertas e os dados de demanda."}
		}
	}

	return StageResult{
		Stage:         StageDecision,
		Justification: result.Rationale,
		Confidence:    confidence,
		Decision:      &result,
	}
}
