package messaging

import (
	"context"
	"time"

	"procurement-backend/pkg/models"
)

const (
	AnalysisQueue   = "analysis_queue"
	RetryDelay      = 5 * time.Second
	MaxConnectRetry = 5
)

type Task interface {
	Type() string

	Payload() []byte

	Ack() error

	Nack() error

	Reject() error
}

type Publisher interface {
	PublishAnalysisTask(ctx context.Context, payload models.AnalysisTaskPayload) error

	Close()
}

type Receiver interface {
	Tasks() <-chan Task

	Close()
}
