// Package router maps extracted entities to an execution path. Route is a
// pure function: identical inputs always produce the identical decision.
package router

import "procurement-backend/internal/extractor"

type Path string

const (
	// PathDirect answers with a single catalog lookup.
	PathDirect Path = "direct"
	// PathSemantic answers with similarity search only.
	PathSemantic Path = "semantic"
	// PathHybrid combines a structured filter with similarity search.
	PathHybrid Path = "hybrid"
	// PathStaged dispatches the asynchronous analysis pipeline.
	PathStaged Path = "staged"
	// PathClarify returns the capability menu.
	PathClarify Path = "clarify"
)

type Decision struct {
	Path        Path
	Synchronous bool
}

// intentPriority is the fixed evaluation order when a turn could match more
// than one intent: purchase_decision > forecast > logistics > price_check >
// stock_check > general.
var intentPriority = []extractor.Intent{
	extractor.IntentPurchaseDecision,
	extractor.IntentForecast,
	extractor.IntentLogistics,
	extractor.IntentPriceCheck,
	extractor.IntentStockCheck,
	extractor.IntentGeneralInquiry,
}

// Route decides the execution path for one turn.
func Route(entities extractor.Entities) Decision {
	switch entities.Intent {
	case extractor.IntentPurchaseDecision, extractor.IntentForecast, extractor.IntentLogistics:
		if entities.Sku != "" {
			return Decision{Path: PathStaged, Synchronous: false}
		}
		return Decision{Path: PathClarify, Synchronous: true}

	case extractor.IntentPriceCheck, extractor.IntentStockCheck:
		if entities.Sku != "" {
			return Decision{Path: PathDirect, Synchronous: true}
		}
		// Descriptive question about a product class rather than one SKU.
		if entities.ProductName != "" {
			return Decision{Path: PathHybrid, Synchronous: true}
		}
		return Decision{Path: PathSemantic, Synchronous: true}

	case extractor.IntentGeneralInquiry:
		// Descriptive/comparative questions without a resolved subject go to
		// similarity search; pure small talk gets the capability menu.
		if entities.ProductName != "" || entities.Sku != "" {
			return Decision{Path: PathSemantic, Synchronous: true}
		}
		return Decision{Path: PathClarify, Synchronous: true}

	default:
		return Decision{Path: PathClarify, Synchronous: true}
	}
}

// Pick returns the highest-priority intent among candidates, used when the
// extraction surface reports several plausible intents for one turn.
func Pick(candidates []extractor.Intent) extractor.Intent {
	for _, intent := range intentPriority {
		for _, candidate := range candidates {
			if candidate == intent {
				return intent
			}
		}
	}
	return extractor.IntentUnknown
}
