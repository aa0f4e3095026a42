package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"procurement-backend/internal/extractor"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		name     string
		entities extractor.Entities
		path     Path
		sync     bool
	}{
		{"stock check with sku", extractor.Entities{Intent: extractor.IntentStockCheck, Sku: "SKU_001"}, PathDirect, true},
		{"price check with sku", extractor.Entities{Intent: extractor.IntentPriceCheck, Sku: "SKU_001"}, PathDirect, true},
		{"stock check with product name only", extractor.Entities{Intent: extractor.IntentStockCheck, ProductName: "parafuso"}, PathHybrid, true},
		{"price check with nothing resolved", extractor.Entities{Intent: extractor.IntentPriceCheck}, PathSemantic, true},
		{"purchase decision with sku", extractor.Entities{Intent: extractor.IntentPurchaseDecision, Sku: "SKU_002"}, PathStaged, false},
		{"forecast with sku", extractor.Entities{Intent: extractor.IntentForecast, Sku: "SKU_002"}, PathStaged, false},
		{"logistics with sku", extractor.Entities{Intent: extractor.IntentLogistics, Sku: "SKU_002"}, PathStaged, false},
		{"purchase decision without sku", extractor.Entities{Intent: extractor.IntentPurchaseDecision}, PathClarify, true},
		{"general inquiry with subject", extractor.Entities{Intent: extractor.IntentGeneralInquiry, ProductName: "fixadores"}, PathSemantic, true},
		{"general inquiry small talk", extractor.Entities{Intent: extractor.IntentGeneralInquiry}, PathClarify, true},
		{"unknown intent", extractor.Entities{Intent: extractor.IntentUnknown}, PathClarify, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			decision := Route(test.entities)
			assert.Equal(t, test.path, decision.Path)
			assert.Equal(t, test.sync, decision.Synchronous)
		})
	}
}

func TestRouteIsDeterministic(t *testing.T) {
	entities := extractor.Entities{Intent: extractor.IntentPurchaseDecision, Sku: "SKU_002", Quantity: 10}
	first := Route(entities)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Route(entities))
	}
}

func TestPick(t *testing.T) {
	assert.Equal(t, extractor.IntentPurchaseDecision, Pick([]extractor.Intent{
		extractor.IntentStockCheck, extractor.IntentPurchaseDecision, extractor.IntentPriceCheck,
	}))
	assert.Equal(t, extractor.IntentForecast, Pick([]extractor.Intent{
		extractor.IntentStockCheck, extractor.IntentForecast,
	}))
	assert.Equal(t, extractor.IntentUnknown, Pick(nil))
}
