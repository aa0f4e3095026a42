package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"procurement-backend/internal/catalog"
)

// failingLLM simulates a model outage so every Extract call exercises the
// deterministic fallback.
type failingLLM struct{}

func (failingLLM) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	return "", errors.New("model unavailable")
}

func (failingLLM) GenerateJSON(ctx context.Context, systemPrompt, prompt, schemaName string, schema map[string]any) (string, error) {
	return "", errors.New("model unavailable")
}

func (failingLLM) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("model unavailable")
}

// cannedLLM returns a fixed JSON payload from GenerateJSON.
type cannedLLM struct {
	response string
}

func (c cannedLLM) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	return c.response, nil
}

func (c cannedLLM) GenerateJSON(ctx context.Context, systemPrompt, prompt, schemaName string, schema map[string]any) (string, error) {
	return c.response, nil
}

func (c cannedLLM) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("not implemented")
}

func testStore() catalog.Store {
	return catalog.NewMemoryStore(catalog.SeedProducts()...)
}

func TestDeterministicSkuExtraction(t *testing.T) {
	ext := New(nil, testStore())

	entities := ext.Extract(context.Background(), "Qual o estoque do SKU_001?", Context{})

	assert.Equal(t, "SKU_001", entities.Sku)
	assert.Equal(t, IntentStockCheck, entities.Intent)
	assert.Equal(t, ConfidenceMedium, entities.Confidence)
}

func TestSkuNormalization(t *testing.T) {
	ext := New(nil, testStore())

	for _, text := range []string{"estoque do sku-001", "estoque do sku 001", "estoque do SKU_001"} {
		entities := ext.Extract(context.Background(), text, Context{})
		assert.Equal(t, "SKU_001", entities.Sku, "input: %s", text)
	}
}

func TestFallbackRunsWhenModelFails(t *testing.T) {
	ext := New(failingLLM{}, testStore())

	entities := ext.Extract(context.Background(), "Devo comprar 200 unidades do SKU_002?", Context{})

	assert.Equal(t, "SKU_002", entities.Sku)
	assert.Equal(t, IntentPurchaseDecision, entities.Intent)
	assert.Equal(t, 200, entities.Quantity)
	// Fallback results never exceed medium confidence.
	assert.Equal(t, ConfidenceMedium, entities.Confidence)
}

func TestFallbackOnMalformedModelOutput(t *testing.T) {
	ext := New(cannedLLM{response: "not json at all"}, testStore())

	entities := ext.Extract(context.Background(), "Qual o estoque do SKU_001?", Context{})

	assert.Equal(t, "SKU_001", entities.Sku)
	assert.Equal(t, IntentStockCheck, entities.Intent)
}

func TestModelPathValidatesIntent(t *testing.T) {
	ext := New(cannedLLM{response: `{"sku": "SKU_001", "product_name": "", "intent": "banana", "quantity": 0}`}, testStore())

	entities := ext.Extract(context.Background(), "Qual o estoque do SKU_001?", Context{})

	// Invalid enum value discards the model output and the fallback result
	// still carries the SKU.
	assert.Equal(t, "SKU_001", entities.Sku)
	assert.Equal(t, IntentStockCheck, entities.Intent)
}

func TestModelPathHighConfidence(t *testing.T) {
	ext := New(cannedLLM{response: `{"sku": "SKU_001", "product_name": "", "intent": "stock_check", "quantity": 0}`}, testStore())

	entities := ext.Extract(context.Background(), "Qual o estoque do SKU_001?", Context{})

	assert.Equal(t, "SKU_001", entities.Sku)
	assert.Equal(t, IntentStockCheck, entities.Intent)
	assert.Equal(t, ConfidenceHigh, entities.Confidence)
}

func TestProductNameResolvesToSku(t *testing.T) {
	ext := New(nil, testStore())

	entities := ext.Extract(context.Background(), "Tem o produto Parafuso Sextavado M8?", Context{})

	assert.Equal(t, "SKU_001", entities.Sku)
	assert.Equal(t, "Parafuso Sextavado M8", entities.ProductName)
	assert.Equal(t, IntentStockCheck, entities.Intent)
}

func TestPartialProductNameResolves(t *testing.T) {
	ext := New(nil, testStore())

	entities := ext.Extract(context.Background(), "Tem o produto Parafuso M8?", Context{})

	assert.Equal(t, "SKU_001", entities.Sku)
}

func TestPronounInheritsLastSku(t *testing.T) {
	ext := New(nil, testStore())

	entities := ext.Extract(context.Background(), "e o preço dele?", Context{
		LastSku:         "SKU_001",
		LastProductName: "Parafuso Sextavado M8",
	})

	assert.Equal(t, "SKU_001", entities.Sku)
	assert.Equal(t, "Parafuso Sextavado M8", entities.ProductName)
	assert.Equal(t, IntentPriceCheck, entities.Intent)
}

func TestPronounWithoutContextStaysUnresolved(t *testing.T) {
	ext := New(nil, testStore())

	entities := ext.Extract(context.Background(), "e o preço dele?", Context{})

	assert.Empty(t, entities.Sku)
	assert.Equal(t, IntentPriceCheck, entities.Intent)
}

func TestGreetingIsGeneralInquiry(t *testing.T) {
	ext := New(nil, testStore())

	entities := ext.Extract(context.Background(), "Oi, tudo bem?", Context{})

	assert.Empty(t, entities.Sku)
	assert.Empty(t, entities.ProductName)
	assert.Equal(t, IntentGeneralInquiry, entities.Intent)
}

func TestUnresolvedUnknownIsLowConfidence(t *testing.T) {
	ext := New(nil, testStore())

	entities := ext.Extract(context.Background(), "xyzzy", Context{})

	assert.Empty(t, entities.Sku)
	assert.Equal(t, IntentUnknown, entities.Intent)
	assert.Equal(t, ConfidenceLow, entities.Confidence)
}

func TestIntentPriorityPurchaseBeatsStock(t *testing.T) {
	ext := New(nil, testStore())

	// Both "comprar" and "estoque" appear; purchase_decision wins.
	entities := ext.Extract(context.Background(), "O estoque está baixo, devo comprar o SKU_002?", Context{})

	assert.Equal(t, IntentPurchaseDecision, entities.Intent)
	assert.Equal(t, "SKU_002", entities.Sku)
}
