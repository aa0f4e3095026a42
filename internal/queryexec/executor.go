// Package queryexec answers synchronous catalog questions. A classification
// call picks the sub-path (structured filter, similarity search, or both) and
// the executor degrades gracefully when either source is unavailable.
package queryexec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"procurement-backend/internal/catalog"
	"procurement-backend/internal/llm"
	"procurement-backend/internal/semantic"
)

// ErrNoSources is returned when neither the catalog nor the semantic index
// could serve the question; callers fall back to a clarification reply.
var ErrNoSources = errors.New("no query sources available")

const (
	maxRows = 50
	topK    = 5
)

type Mode string

const (
	ModeSQL    Mode = "sql"
	ModeRAG    Mode = "rag"
	ModeHybrid Mode = "hybrid"
)

type Answer struct {
	Content  string
	Mode     Mode
	Degraded bool
}

type Executor struct {
	llm     llm.Client
	catalog catalog.Store
	index   *semantic.Index
}

func New(client llm.Client, store catalog.Store, index *semantic.Index) *Executor {
	return &Executor{llm: client, catalog: store, index: index}
}

// Direct answers a stock or price check for one resolved SKU with a single
// catalog lookup.
func (e *Executor) Direct(ctx context.Context, sku string, priceCheck bool) (string, error) {
	product, err := e.catalog.GetBySku(ctx, sku)
	if err != nil {
		return "", err
	}

	if priceCheck {
		return fmt.Sprintf("O preço atual de %s (%s) é R$ %.2f por unidade (custo médio histórico R$ %.2f).",
			product.Name, product.Sku, product.UnitPrice, product.AvgUnitCost), nil
	}

	status := "acima do mínimo"
	if product.CurrentStock <= product.MinimumStock {
		status = "abaixo do mínimo, reposição recomendada"
	}
	return fmt.Sprintf("O estoque atual de %s (%s) é de %d unidades (mínimo %d, %s).",
		product.Name, product.Sku, product.CurrentStock, product.MinimumStock, status), nil
}

type classification struct {
	Mode     string  `json:"mode"`
	LowStock bool    `json:"low_stock"`
	Category string  `json:"category"`
	MaxPrice float64 `json:"max_price"`
}

const classifySystemPrompt = `You classify purchasing catalog questions written in Portuguese.
Pick "sql" for questions answered by a structured filter (stock levels, price
thresholds, categories), "rag" for descriptive or comparative questions about
what products are, and "hybrid" when both are needed. Also extract filter
hints: low_stock is true for questions about items at or below minimum stock
("estoque baixo"), category when one is named, max_price when a price ceiling
is given (0 otherwise).`

var classifySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"mode":      map[string]any{"type": "string", "enum": []string{"sql", "rag", "hybrid"}},
		"low_stock": map[string]any{"type": "boolean"},
		"category":  map[string]any{"type": "string"},
		"max_price": map[string]any{"type": "number"},
	},
	"required":             []string{"mode", "low_stock", "category", "max_price"},
	"additionalProperties": false,
}

func (e *Executor) classify(ctx context.Context, question string) classification {
	if e.llm != nil {
		for attempt := 0; attempt < 2; attempt++ {
			raw, err := e.llm.GenerateJSON(ctx, classifySystemPrompt, question, "query_classification", classifySchema)
			if err != nil {
				slog.Warn("query classification call failed, using keyword fallback", "error", err)
				break
			}
			var c classification
			if err := json.Unmarshal([]byte(raw), &c); err != nil {
				continue
			}
			switch Mode(c.Mode) {
			case ModeSQL, ModeRAG, ModeHybrid:
				return c
			}
		}
	}
	return classifyFallback(question)
}

// classifyFallback mirrors the keyword heuristics: filterable vocabulary goes
// to the structured path, everything else to similarity search.
func classifyFallback(question string) classification {
	lower := strings.ToLower(question)
	c := classification{Mode: string(ModeRAG)}

	if strings.Contains(lower, "estoque baixo") || strings.Contains(lower, "abaixo do mínimo") || strings.Contains(lower, "abaixo do minimo") {
		c.LowStock = true
		c.Mode = string(ModeSQL)
	}
	for _, keyword := range []string{"listar", "liste", "quais produtos", "quantos", "abaixo de", "acima de", "mais barato"} {
		if strings.Contains(lower, keyword) {
			c.Mode = string(ModeSQL)
			break
		}
	}
	return c
}

// Answer executes the classified sub-path with per-source degradation:
// catalog down -> RAG-only with a caveat, index down -> SQL-only, both down
// -> ErrNoSources.
func (e *Executor) Answer(ctx context.Context, question string) (Answer, error) {
	c := e.classify(ctx, question)
	mode := Mode(c.Mode)

	var rows []catalog.Product
	var rowsErr error
	if mode == ModeSQL || mode == ModeHybrid {
		rows, rowsErr = e.catalog.Search(ctx, catalog.Filter{
			Category: c.Category,
			LowStock: c.LowStock,
			MaxPrice: c.MaxPrice,
		}, maxRows)
		if rowsErr != nil {
			slog.Warn("catalog search failed, degrading to semantic answer", "error", rowsErr)
		}
	}

	var snippets []semantic.Result
	var ragErr error
	if mode == ModeRAG || mode == ModeHybrid || rowsErr != nil {
		snippets, ragErr = e.index.Search(ctx, question, topK)
		if ragErr != nil {
			slog.Warn("semantic search failed", "error", ragErr)
		}
	}

	switch {
	case mode == ModeSQL && rowsErr == nil:
		return Answer{Content: formatRows(rows), Mode: ModeSQL}, nil

	case mode == ModeSQL && ragErr == nil:
		content := e.summarize(ctx, question, nil, snippets)
		return Answer{Content: content + catalogCaveat, Mode: ModeRAG, Degraded: true}, nil

	case mode == ModeRAG && ragErr == nil:
		return Answer{Content: e.summarize(ctx, question, nil, snippets), Mode: ModeRAG}, nil

	case mode == ModeRAG && ragErr != nil:
		// Index empty or unreachable: degrade to a plain tabular answer.
		rows, rowsErr = e.catalog.Search(ctx, catalog.Filter{NameQuery: ""}, maxRows)
		if rowsErr == nil {
			return Answer{Content: formatRows(rows) + indexCaveat, Mode: ModeSQL, Degraded: true}, nil
		}

	case mode == ModeHybrid:
		if rowsErr == nil && ragErr == nil {
			return Answer{Content: e.summarize(ctx, question, rows, snippets), Mode: ModeHybrid}, nil
		}
		if rowsErr == nil {
			return Answer{Content: formatRows(rows) + indexCaveat, Mode: ModeSQL, Degraded: true}, nil
		}
		if ragErr == nil {
			content := e.summarize(ctx, question, nil, snippets)
			return Answer{Content: content + catalogCaveat, Mode: ModeRAG, Degraded: true}, nil
		}
	}

	return Answer{}, ErrNoSources
}

const (
	catalogCaveat = "\n\n⚠️ O catálogo estruturado está indisponível no momento; esta resposta usa apenas a busca semântica."
	indexCaveat   = "\n\n⚠️ A busca semântica está indisponível no momento; esta resposta usa apenas o filtro estruturado."
)

const summarizeSystemPrompt = `You answer purchasing catalog questions in Portuguese.
Use ONLY the facts present in the provided rows and snippets; never invent
products, prices or stock numbers that are not listed. If the provided data
does not answer the question, say so.`

func (e *Executor) summarize(ctx context.Context, question string, rows []catalog.Product, snippets []semantic.Result) string {
	var b strings.Builder
	b.WriteString("Pergunta: ")
	b.WriteString(question)
	b.WriteString("\n\n")
	if len(rows) > 0 {
		b.WriteString("Linhas do catálogo:\n")
		b.WriteString(formatRows(rows))
		b.WriteString("\n")
	}
	if len(snippets) > 0 {
		b.WriteString("Trechos recuperados:\n")
		for _, s := range snippets {
			fmt.Fprintf(&b, "- %s\n", s.Snippet)
		}
	}

	if e.llm != nil {
		answer, err := e.llm.Generate(ctx, summarizeSystemPrompt, b.String())
		if err == nil && strings.TrimSpace(answer) != "" {
			return answer
		}
		slog.Warn("summarization call failed, returning raw evidence", "error", err)
	}

	// Without a model we still answer with the retrieved evidence itself.
	if len(rows) > 0 {
		return formatRows(rows)
	}
	var fallback strings.Builder
	fallback.WriteString("Produtos relacionados encontrados:\n")
	for _, s := range snippets {
		fmt.Fprintf(&fallback, "- %s\n", s.Snippet)
	}
	return fallback.String()
}

func formatRows(rows []catalog.Product) string {
	if len(rows) == 0 {
		return "Nenhum produto encontrado para esse filtro."
	}
	var b strings.Builder
	b.WriteString("SKU | Produto | Estoque | Mínimo | Preço\n")
	for _, p := range rows {
		fmt.Fprintf(&b, "%s | %s | %d | %d | R$ %.2f\n", p.Sku, p.Name, p.CurrentStock, p.MinimumStock, p.UnitPrice)
	}
	return b.String()
}
