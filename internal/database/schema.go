package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SenderUser  string = "user"
	SenderAgent string = "agent"
)

// Message metadata types. A correlation id has exactly one terminal message,
// either MessageAnalysisResult or MessageAnalysisError.
const (
	MessageDirectAnswer   string = "direct_answer"
	MessageSemanticAnswer string = "semantic_answer"
	MessageHybridAnswer   string = "hybrid_answer"
	MessageClarification  string = "clarification"
	MessageAnalysisAck    string = "analysis_ack"
	MessageAnalysisResult string = "analysis_result"
	MessageAnalysisError  string = "analysis_error"
)

type ChatSession struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`

	Messages []ChatMessage   `gorm:"foreignKey:SessionId;constraint:OnDelete:CASCADE" json:"-"`
	Context  *SessionContext `gorm:"foreignKey:SessionId;constraint:OnDelete:CASCADE" json:"-"`
}

// ChatMessage is append-only; rows are never mutated after insertion and the
// message log ordered by CreatedAt is the single source of truth for async
// task completion.
type ChatMessage struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	SessionId uuid.UUID      `gorm:"type:uuid;index;not null"`
	Sender    string         `gorm:"size:10;not null"`
	Content   string         `gorm:"not null"`
	Metadata  datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time      `gorm:"index"`
}

// SessionContext is the per-session last-resolved entity memory, one mutable
// row per session updated read-modify-write (last-write-wins on races).
type SessionContext struct {
	SessionId       uuid.UUID `gorm:"type:uuid;primaryKey"`
	LastSku         string
	LastProductName string
	UpdatedAt       time.Time
}
