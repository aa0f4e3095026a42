// Package chat ties one user turn together: extraction, routing, execution or
// async dispatch, message persistence and session context updates.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"procurement-backend/internal/catalog"
	"procurement-backend/internal/database"
	"procurement-backend/internal/extractor"
	"procurement-backend/internal/messaging"
	"procurement-backend/internal/queryexec"
	"procurement-backend/internal/router"
	"procurement-backend/pkg/api"
	"procurement-backend/pkg/models"
)

type Orchestrator struct {
	db        *gorm.DB
	extractor *extractor.Extractor
	executor  *queryexec.Executor
	publisher messaging.Publisher
}

func NewOrchestrator(db *gorm.DB, ext *extractor.Extractor, exec *queryexec.Executor, publisher messaging.Publisher) *Orchestrator {
	return &Orchestrator{db: db, extractor: ext, executor: exec, publisher: publisher}
}

const capabilityMenu = `Não consegui identificar um produto ou intenção na sua mensagem. Posso ajudar com:

• Consulta de estoque — ex.: "Qual o estoque do SKU_001?"
• Preços e cotações — ex.: "Qual o preço do Parafuso M8?"
• Busca de produtos por descrição — ex.: "Quais produtos servem para fixação?"
• Análise de compra completa — ex.: "Devo comprar o SKU_002?"

Sobre qual produto você quer saber?`

// HandleTurn processes one user turn and returns the immediate agent reply:
// a direct/semantic/hybrid answer, a clarification, or the async
// acknowledgment placeholder. The user message and the reply are both
// appended to the session log before returning.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID uuid.UUID, text string) (database.ChatMessage, error) {
	if _, err := database.GetSession(o.db, sessionID); err != nil {
		return database.ChatMessage{}, fmt.Errorf("session %s not found: %w", sessionID, err)
	}

	userMessage := database.ChatMessage{
		SessionId: sessionID,
		Sender:    database.SenderUser,
		Content:   text,
	}
	if err := database.AppendMessage(o.db, &userMessage); err != nil {
		return database.ChatMessage{}, fmt.Errorf("error saving user message: %w", err)
	}

	sessionCtx, err := database.GetSessionContext(o.db, sessionID)
	if err != nil {
		slog.Warn("error loading session context, continuing without it", "session_id", sessionID, "error", err)
		sessionCtx = database.SessionContext{SessionId: sessionID}
	}

	entities := o.extractor.Extract(ctx, text, extractor.Context{
		LastSku:         sessionCtx.LastSku,
		LastProductName: sessionCtx.LastProductName,
	})
	decision := router.Route(entities)

	slog.Info("routed turn", "session_id", sessionID, "intent", entities.Intent, "sku", entities.Sku, "path", decision.Path)

	content, metadata := o.execute(ctx, sessionID, text, entities, decision)

	reply, err := o.appendAgentMessage(sessionID, content, metadata)
	if err != nil {
		return database.ChatMessage{}, err
	}

	o.updateSessionContext(sessionCtx, entities)

	return reply, nil
}

func (o *Orchestrator) execute(ctx context.Context, sessionID uuid.UUID, text string, entities extractor.Entities, decision router.Decision) (string, api.MessageMetadata) {
	switch decision.Path {
	case router.PathDirect:
		content, err := o.executor.Direct(ctx, entities.Sku, entities.Intent == extractor.IntentPriceCheck)
		if err == nil {
			return content, api.MessageMetadata{
				Type:       database.MessageDirectAnswer,
				SKU:        entities.Sku,
				Confidence: string(entities.Confidence),
			}
		}
		if errors.Is(err, catalog.ErrNotFound) {
			return fmt.Sprintf("Não encontrei o item %s no catálogo. Confirme o código ou informe o nome do produto.", entities.Sku),
				api.MessageMetadata{Type: database.MessageClarification}
		}
		// Catalog unreachable: degrade through the hybrid executor, which
		// falls back to semantic-only answers with a caveat.
		slog.Warn("direct lookup failed, degrading to hybrid executor", "sku", entities.Sku, "error", err)
		fallthrough

	case router.PathSemantic, router.PathHybrid:
		answer, err := o.executor.Answer(ctx, text)
		if err != nil {
			slog.Warn("query executor could not answer, returning clarification", "error", err)
			return capabilityMenu, api.MessageMetadata{Type: database.MessageClarification}
		}
		messageType := database.MessageSemanticAnswer
		if decision.Path == router.PathHybrid {
			messageType = database.MessageHybridAnswer
		}
		return answer.Content, api.MessageMetadata{
			Type:       messageType,
			SKU:        entities.Sku,
			Confidence: string(entities.Confidence),
		}

	case router.PathStaged:
		return o.dispatchAnalysis(ctx, sessionID, entities)

	default:
		return capabilityMenu, api.MessageMetadata{Type: database.MessageClarification}
	}
}

// dispatchAnalysis enqueues the staged pipeline and returns the synchronous
// acknowledgment placeholder tagged async=true.
func (o *Orchestrator) dispatchAnalysis(ctx context.Context, sessionID uuid.UUID, entities extractor.Entities) (string, api.MessageMetadata) {
	correlationID := uuid.New()

	payload := models.AnalysisTaskPayload{
		CorrelationId: correlationID,
		SessionId:     sessionID,
		Sku:           entities.Sku,
		Quantity:      entities.Quantity,
		Reason:        string(entities.Intent),
	}

	if err := o.publisher.PublishAnalysisTask(ctx, payload); err != nil {
		slog.Error("error publishing analysis task", "correlation_id", correlationID, "error", err)
		return "Não consegui iniciar a análise de compra agora. Tente novamente em instantes.",
			api.MessageMetadata{Type: database.MessageClarification, SKU: entities.Sku}
	}

	product := entities.ProductName
	if product == "" {
		product = entities.Sku
	}

	return fmt.Sprintf("🔎 Iniciei a análise de compra para %s. O resultado aparecerá nesta conversa em instantes.", product),
		api.MessageMetadata{
			Type:          database.MessageAnalysisAck,
			SKU:           entities.Sku,
			CorrelationID: correlationID.String(),
			Async:         true,
		}
}

func (o *Orchestrator) appendAgentMessage(sessionID uuid.UUID, content string, metadata api.MessageMetadata) (database.ChatMessage, error) {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return database.ChatMessage{}, fmt.Errorf("error marshalling message metadata: %w", err)
	}

	message := database.ChatMessage{
		SessionId: sessionID,
		Sender:    database.SenderAgent,
		Content:   content,
		Metadata:  metadataJSON,
	}
	if err := database.AppendMessage(o.db, &message); err != nil {
		return database.ChatMessage{}, fmt.Errorf("error saving agent message: %w", err)
	}
	return message, nil
}

// updateSessionContext overwrites the context only when this turn resolved an
// entity; pronoun-only turns keep the prior SKU so later turns still inherit
// it.
func (o *Orchestrator) updateSessionContext(sessionCtx database.SessionContext, entities extractor.Entities) {
	if entities.Sku == "" && entities.ProductName == "" {
		return
	}
	if entities.Sku != "" {
		sessionCtx.LastSku = entities.Sku
	}
	if entities.ProductName != "" {
		sessionCtx.LastProductName = entities.ProductName
	}
	if err := database.SaveSessionContext(o.db, &sessionCtx); err != nil {
		slog.Warn("error saving session context", "session_id", sessionCtx.SessionId, "error", err)
	}
}
