package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"procurement-backend/internal/database"
)

// Poller implements the client-side eventual-delivery contract: after an
// async acknowledgment, fetch the session's messages at a fixed interval
// until the terminal message for the correlation id appears. Any push channel
// is a latency optimization only; this polling loop alone guarantees
// delivery.
type Poller struct {
	db       *gorm.DB
	interval time.Duration
}

func NewPoller(db *gorm.DB, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Poller{db: db, interval: interval}
}

// AwaitResult blocks until the terminal message (analysis_result or
// analysis_error) for the correlation id is appended, or the context is
// done.
func (p *Poller) AwaitResult(ctx context.Context, sessionID, correlationID uuid.UUID) (database.ChatMessage, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		messages, err := database.ListMessages(p.db, sessionID)
		if err != nil {
			return database.ChatMessage{}, fmt.Errorf("error listing session messages: %w", err)
		}

		for _, message := range messages {
			meta := database.ParseMetadata(message)
			if meta == nil || meta.CorrelationID != correlationID.String() {
				continue
			}
			if meta.Type == database.MessageAnalysisResult || meta.Type == database.MessageAnalysisError {
				return message, nil
			}
		}

		select {
		case <-ctx.Done():
			return database.ChatMessage{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
