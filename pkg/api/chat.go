package api

import "github.com/google/uuid"

type StartSessionRequest struct {
	Title string `json:"title"`
}

type StartSessionResponse struct {
	SessionID string `json:"session_id"`
}

type ChatSessionMetadata struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt string    `json:"created_at"`
}

type GetSessionsResponse struct {
	Sessions []ChatSessionMetadata `json:"sessions"`
}

type SendMessageRequest struct {
	Message string `json:"message"`
}

// MessageMetadata is the structured metadata attached to agent messages. Type
// identifies the kind of reply (direct_answer, semantic_answer, hybrid_answer,
// clarification, analysis_ack, analysis_result, analysis_error).
type MessageMetadata struct {
	Type          string `json:"type,omitempty"`
	SKU           string `json:"sku,omitempty"`
	Confidence    string `json:"confidence,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Async         bool   `json:"async,omitempty"`
	Decision      string `json:"decision,omitempty"`
}

type ChatMessageItem struct {
	ID        uuid.UUID        `json:"id"`
	Sender    string           `json:"sender"` // "user" or "agent"
	Content   string           `json:"content"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
	CreatedAt string           `json:"created_at"`
}

type SendMessageResponse struct {
	Reply ChatMessageItem `json:"reply"`
}

type ListMessagesParams struct {
	Since string `schema:"since"`
}

type ListMessagesResponse struct {
	Messages []ChatMessageItem `json:"messages"`
}
