package models

import "github.com/google/uuid"

// AnalysisTaskPayload is the queue payload dispatched when a turn requires the
// staged analysis pipeline. CorrelationId links the eventual terminal message
// back to the acknowledgment returned to the caller.
type AnalysisTaskPayload struct {
	CorrelationId uuid.UUID `json:"correlation_id"`
	SessionId     uuid.UUID `json:"session_id"`
	Sku           string    `json:"sku"`
	Quantity      int       `json:"quantity"`
	Reason        string    `json:"reason"`
}
