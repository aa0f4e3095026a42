package extractor

import (
	"regexp"
	"strings"
)

var (
	skuPattern      = regexp.MustCompile(`(?i)\bSKU[_\- ]?(\w+)\b`)
	quantityPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(?:unidades|unidade|peças|peça|pcs|un)\b`)

	// Candidate product-name extraction, tried in order, first hit wins.
	productNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)produto\s+([\p{L}\d][\p{L}\d ./-]*)`),
		regexp.MustCompile(`(?i)\btem\s+(?:o|a|um|uma)?\s*([\p{L}\d][\p{L}\d ./-]*)`),
		regexp.MustCompile(`(?i)\b(?:do|da)\s+([\p{L}][\p{L}\d ./-]*)`),
	}

	pronounPattern  = regexp.MustCompile(`(?i)\b(dele|dela|desse|dessa|deste|desta|disso|ele|ela)\b`)
	greetingPattern = regexp.MustCompile(`(?i)\b(oi|olá|ola|bom dia|boa tarde|boa noite|tudo bem|obrigado|obrigada)\b`)
)

// intentTriggers is the priority-ordered keyword table of the deterministic
// path; the first intent whose trigger matches wins. Order mirrors the
// router's intent priority so that e.g. "comprar" beats "estoque" when both
// appear in one turn.
var intentTriggers = []struct {
	intent   Intent
	keywords []string
}{
	{IntentPurchaseDecision, []string{"comprar", "compra", "pedido", "devo adquirir", "vale a pena"}},
	{IntentForecast, []string{"demanda", "média", "media", "histórico", "historico", "análise", "analise", "vendas", "giro", "previsão", "previsao"}},
	{IntentLogistics, []string{"fornecedor", "fornecedores", "prazo", "entrega", "frete", "logística", "logistica"}},
	{IntentPriceCheck, []string{"preço", "preco", "custo", "cotação", "cotacao", "valor"}},
	{IntentStockCheck, []string{"estoque", "disponível", "disponivel", "quantos tem", "tem o", "tem a"}},
}

func matchIntent(text string) Intent {
	lower := strings.ToLower(text)
	for _, trigger := range intentTriggers {
		for _, keyword := range trigger.keywords {
			if strings.Contains(lower, keyword) {
				return trigger.intent
			}
		}
	}
	if greetingPattern.MatchString(text) {
		return IntentGeneralInquiry
	}
	return IntentUnknown
}

func findSku(text string) string {
	match := skuPattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return "SKU_" + match[1]
}

func findProductName(text string) string {
	for _, pattern := range productNamePatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		if name := cleanProductName(match[1]); name != "" {
			return name
		}
	}
	return ""
}

// cleanProductName strips trailing punctuation and stop words that the broad
// capture groups drag along.
func cleanProductName(raw string) string {
	name := strings.TrimSpace(strings.Trim(raw, "?!.,;"))

	stopSuffixes := []string{" em estoque", " no estoque", " disponível", " disponivel"}
	lower := strings.ToLower(name)
	for _, suffix := range stopSuffixes {
		if strings.HasSuffix(lower, suffix) {
			name = strings.TrimSpace(name[:len(name)-len(suffix)])
			lower = strings.ToLower(name)
		}
	}

	if len([]rune(name)) < 3 {
		return ""
	}
	return name
}

func hasPronounReference(text string) bool {
	return pronounPattern.MatchString(text)
}
