// Package extractor turns a free-text user turn into structured entities:
// SKU, product name, intent and quantity. The primary path is a structured
// language-model call; on any failure it falls back to a deterministic
// keyword/regex path so extraction never depends on the model being up.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"procurement-backend/internal/catalog"
	"procurement-backend/internal/llm"
)

type Intent string

const (
	IntentForecast         Intent = "forecast"
	IntentPriceCheck       Intent = "price_check"
	IntentStockCheck       Intent = "stock_check"
	IntentPurchaseDecision Intent = "purchase_decision"
	IntentLogistics        Intent = "logistics"
	IntentGeneralInquiry   Intent = "general_inquiry"
	IntentUnknown          Intent = "unknown"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Entities is the transient extraction result for one turn.
type Entities struct {
	Sku         string
	ProductName string
	Intent      Intent
	Quantity    int
	Confidence  Confidence
}

// Context carries the previous turn's resolved entities for pronoun
// resolution ("e o preço dele?").
type Context struct {
	LastSku         string
	LastProductName string
}

type Extractor struct {
	llm     llm.Client
	catalog catalog.Store
}

// New builds an extractor. The llm client may be nil, in which case only the
// deterministic path runs.
func New(client llm.Client, store catalog.Store) *Extractor {
	return &Extractor{llm: client, catalog: store}
}

// Extract is a pure function of the text, the session context and the catalog
// collaborator; it has no side effects.
func (e *Extractor) Extract(ctx context.Context, text string, sessionCtx Context) Entities {
	if e.llm != nil {
		entities, err := e.extractWithModel(ctx, text)
		if err == nil {
			return e.resolve(ctx, text, entities, sessionCtx, true)
		}
		slog.Warn("model extraction failed, using deterministic fallback", "error", err)
	}

	entities := e.extractDeterministic(text)
	return e.resolve(ctx, text, entities, sessionCtx, false)
}

const extractionSystemPrompt = `You extract purchasing intents from user messages written in Portuguese.
Return the SKU exactly as written when present, the product name if mentioned,
the intent and the quantity (0 when absent). Use intent "unknown" when unsure.`

var extractionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"sku":          map[string]any{"type": "string"},
		"product_name": map[string]any{"type": "string"},
		"intent": map[string]any{
			"type": "string",
			"enum": []string{"forecast", "price_check", "stock_check", "purchase_decision", "logistics", "general_inquiry", "unknown"},
		},
		"quantity": map[string]any{"type": "integer"},
	},
	"required":             []string{"sku", "product_name", "intent", "quantity"},
	"additionalProperties": false,
}

type extractionOutput struct {
	Sku         string `json:"sku"`
	ProductName string `json:"product_name"`
	Intent      string `json:"intent"`
	Quantity    int    `json:"quantity"`
}

func (e *Extractor) extractWithModel(ctx context.Context, text string) (Entities, error) {
	var lastErr error
	// Malformed output gets one retry before falling back.
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := e.llm.GenerateJSON(ctx, extractionSystemPrompt, text, "extracted_entities", extractionSchema)
		if err != nil {
			return Entities{}, err
		}

		var out extractionOutput
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			lastErr = err
			continue
		}

		intent := Intent(out.Intent)
		switch intent {
		case IntentForecast, IntentPriceCheck, IntentStockCheck, IntentPurchaseDecision, IntentLogistics, IntentGeneralInquiry, IntentUnknown:
		default:
			lastErr = errors.New("model returned unknown intent value: " + out.Intent)
			continue
		}

		confidence := ConfidenceHigh
		if out.Sku == "" && out.ProductName == "" {
			confidence = ConfidenceMedium
		}

		return Entities{
			Sku:         normalizeSku(out.Sku),
			ProductName: strings.TrimSpace(out.ProductName),
			Intent:      intent,
			Quantity:    out.Quantity,
			Confidence:  confidence,
		}, nil
	}
	return Entities{}, lastErr
}

func (e *Extractor) extractDeterministic(text string) Entities {
	entities := Entities{
		Sku:        normalizeSku(findSku(text)),
		Intent:     matchIntent(text),
		Quantity:   findQuantity(text),
		Confidence: ConfidenceMedium, // fallback results are capped at medium
	}

	if entities.Sku == "" {
		entities.ProductName = findProductName(text)
	}

	return entities
}

// resolve finishes extraction: product names are resolved against the
// catalog, pronoun turns inherit the previous SKU, and the confidence is
// downgraded when nothing resolved.
func (e *Extractor) resolve(ctx context.Context, text string, entities Entities, sessionCtx Context, primary bool) Entities {
	if entities.Sku == "" && entities.ProductName != "" && e.catalog != nil {
		product, err := e.catalog.ResolveName(ctx, entities.ProductName)
		if err == nil {
			entities.Sku = product.Sku
			entities.ProductName = product.Name
		} else if !errors.Is(err, catalog.ErrNotFound) {
			slog.Warn("catalog name resolution failed", "name", entities.ProductName, "error", err)
		}
	}

	if entities.Sku == "" && hasPronounReference(text) && sessionCtx.LastSku != "" {
		entities.Sku = sessionCtx.LastSku
		if entities.ProductName == "" {
			entities.ProductName = sessionCtx.LastProductName
		}
	}

	if !primary && entities.Confidence == ConfidenceHigh {
		entities.Confidence = ConfidenceMedium
	}

	if entities.Sku == "" && entities.Intent == IntentUnknown {
		entities.Confidence = ConfidenceLow
	}

	return entities
}

func normalizeSku(sku string) string {
	sku = strings.TrimSpace(strings.ToUpper(sku))
	sku = strings.ReplaceAll(sku, "-", "_")
	return sku
}

func findQuantity(text string) int {
	match := quantityPattern.FindStringSubmatch(text)
	if match == nil {
		return 0
	}
	quantity, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return quantity
}
