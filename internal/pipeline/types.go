// Package pipeline implements the four-stage purchase analysis chain:
// demand analysis, market research, logistics evaluation and the purchase
// decision. Stages run strictly sequentially, each consuming the previous
// stage's typed result; collaborator failures degrade a stage's confidence
// but never abort the run, so every run ends in a terminal decision.
package pipeline

import "procurement-backend/internal/services"

type StageName string

const (
	StageDemand    StageName = "demand_analysis"
	StageMarket    StageName = "market_research"
	StageLogistics StageName = "logistics_evaluation"
	StageDecision  StageName = "purchase_decision"
)

// Confidence bands used by the decision rules.
const (
	confidenceHigh = 0.8
	confidenceGood = 0.7
	confidenceLow  = 0.4
)

type DemandResult struct {
	NeedRestock      bool    `json:"need_restock"`
	AvgMonthlyDemand float64 `json:"avg_monthly_demand"`
	Trend            string  `json:"trend"`
	RecommendedQty   int     `json:"recommended_qty"`
	CurrentStock     int     `json:"current_stock"`
	MinimumStock     int     `json:"minimum_stock"`
	AvgUnitCost      float64 `json:"avg_unit_cost"`
	ProductName      string  `json:"product_name"`
}

type MarketResult struct {
	Offers       []services.Offer `json:"offers"`
	TrendSummary string           `json:"trend_summary"`
}

// RankedOffer is a supplier offer with its landed cost. WeightedCost inflates
// the total by the supplier's unreliability and is what the selection
// minimizes; TotalCost is what gets reported.
type RankedOffer struct {
	Offer         services.Offer `json:"offer"`
	DistanceKm    float64        `json:"distance_km"`
	LogisticsCost float64        `json:"logistics_cost"`
	TotalCost     float64        `json:"total_cost"`
	WeightedCost  float64        `json:"weighted_cost"`
}

type LogisticsResult struct {
	Selected     *RankedOffer  `json:"selected,omitempty"`
	Alternatives []RankedOffer `json:"alternatives,omitempty"`
}

type Decision string

const (
	DecisionApprove      Decision = "approve"
	DecisionReject       Decision = "reject"
	DecisionManualReview Decision = "manual_review"
)

type DecisionResult struct {
	Decision            Decision `json:"decision"`
	Supplier            string   `json:"supplier,omitempty"`
	UnitPrice           float64  `json:"unit_price,omitempty"`
	TotalCost           float64  `json:"total_cost,omitempty"`
	QuantityRecommended int      `json:"quantity_recommended"`
	Rationale           string   `json:"rationale"`
	NextSteps           []string `json:"next_steps"`
}

// StageResult is one link of the execution trace. Exactly one of the typed
// payloads is set, matching Stage.
type StageResult struct {
	Stage         StageName        `json:"stage"`
	Justification string           `json:"justification"`
	Confidence    float64          `json:"confidence"`
	Demand        *DemandResult    `json:"demand,omitempty"`
	Market        *MarketResult    `json:"market,omitempty"`
	Logistics     *LogisticsResult `json:"logistics,omitempty"`
	Decision      *DecisionResult  `json:"decision,omitempty"`
}

// Trace is the ordered StageResult list of one run: always a strict prefix of
// [demand, market, logistics, decision] with the decision last, of length 2
// (short-circuit) or 4 (full run).
type Trace []StageResult

func (t Trace) Decision() *DecisionResult {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Stage == StageDecision {
			return t[i].Decision
		}
	}
	return nil
}
