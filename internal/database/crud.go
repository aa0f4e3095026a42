package database

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"procurement-backend/pkg/api"
)

// SQLite only supports one writer at a time, so we serialize writes. Harmless
// under postgres.
var dbMutex sync.Mutex

func CreateSession(db *gorm.DB, session *ChatSession) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	if session.Id == uuid.Nil {
		session.Id = uuid.New()
	}
	return db.Create(session).Error
}

func GetSession(db *gorm.DB, sessionID uuid.UUID) (ChatSession, error) {
	var session ChatSession
	err := db.First(&session, "id = ?", sessionID).Error
	return session, err
}

func GetSessions(db *gorm.DB) ([]ChatSession, error) {
	var sessions []ChatSession
	err := db.Order("created_at ASC").Find(&sessions).Error
	return sessions, err
}

func DeleteSession(db *gorm.DB, sessionID uuid.UUID) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	if err := db.Delete(&ChatMessage{}, "session_id = ?", sessionID).Error; err != nil {
		return err
	}
	if err := db.Delete(&SessionContext{}, "session_id = ?", sessionID).Error; err != nil {
		return err
	}
	return db.Delete(&ChatSession{}, "id = ?", sessionID).Error
}

// AppendMessage inserts a new message row. Messages are never updated.
func AppendMessage(db *gorm.DB, message *ChatMessage) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	if message.Id == uuid.Nil {
		message.Id = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	return db.Create(message).Error
}

func ListMessages(db *gorm.DB, sessionID uuid.UUID) ([]ChatMessage, error) {
	var messages []ChatMessage
	err := db.Where("session_id = ?", sessionID).Order("created_at ASC").Find(&messages).Error
	return messages, err
}

// ParseMetadata decodes the JSON metadata column; returns nil for messages
// without metadata.
func ParseMetadata(message ChatMessage) *api.MessageMetadata {
	if len(message.Metadata) == 0 {
		return nil
	}
	var meta api.MessageMetadata
	if err := json.Unmarshal(message.Metadata, &meta); err != nil {
		return nil
	}
	return &meta
}

// HasTerminalMessage reports whether a terminal message (analysis_result or
// analysis_error) for the given correlation id already exists in the session
// log. Used to keep task completion idempotent.
func HasTerminalMessage(db *gorm.DB, sessionID uuid.UUID, correlationID uuid.UUID) (bool, error) {
	messages, err := ListMessages(db, sessionID)
	if err != nil {
		return false, err
	}
	for _, message := range messages {
		meta := ParseMetadata(message)
		if meta == nil || meta.CorrelationID != correlationID.String() {
			continue
		}
		if meta.Type == MessageAnalysisResult || meta.Type == MessageAnalysisError {
			return true, nil
		}
	}
	return false, nil
}

func GetSessionContext(db *gorm.DB, sessionID uuid.UUID) (SessionContext, error) {
	var context SessionContext
	err := db.First(&context, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SessionContext{SessionId: sessionID}, nil
	}
	return context, err
}

// SaveSessionContext overwrites the per-session context row (last-write-wins).
func SaveSessionContext(db *gorm.DB, context *SessionContext) error {
	dbMutex.Lock()
	defer dbMutex.Unlock()
	context.UpdatedAt = time.Now()
	return db.Save(context).Error
}
