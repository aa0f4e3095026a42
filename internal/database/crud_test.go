package database

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"procurement-backend/pkg/api"
)

func testDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	// An in-memory sqlite database exists per connection; cap the pool at one
	// so every query sees the same database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, GetMigrator(db).Migrate())
	return db
}

func TestSessionLifecycle(t *testing.T) {
	db := testDB(t)

	session := ChatSession{Title: "Compras de agosto", CreatedAt: time.Now()}
	require.NoError(t, CreateSession(db, &session))
	assert.NotEqual(t, uuid.Nil, session.Id)

	loaded, err := GetSession(db, session.Id)
	require.NoError(t, err)
	assert.Equal(t, "Compras de agosto", loaded.Title)

	sessions, err := GetSessions(db)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	require.NoError(t, DeleteSession(db, session.Id))
	_, err = GetSession(db, session.Id)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMessagesAreAppendOnlyAndOrdered(t *testing.T) {
	db := testDB(t)

	session := ChatSession{Title: "test", CreatedAt: time.Now()}
	require.NoError(t, CreateSession(db, &session))

	base := time.Now()
	for i, content := range []string{"primeira", "segunda", "terceira"} {
		message := ChatMessage{
			SessionId: session.Id,
			Sender:    SenderUser,
			Content:   content,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, AppendMessage(db, &message))
	}

	messages, err := ListMessages(db, session.Id)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "primeira", messages[0].Content)
	assert.Equal(t, "terceira", messages[2].Content)
}

func TestDeleteSessionRemovesMessagesAndContext(t *testing.T) {
	db := testDB(t)

	session := ChatSession{Title: "test", CreatedAt: time.Now()}
	require.NoError(t, CreateSession(db, &session))

	message := ChatMessage{SessionId: session.Id, Sender: SenderUser, Content: "oi"}
	require.NoError(t, AppendMessage(db, &message))
	require.NoError(t, SaveSessionContext(db, &SessionContext{SessionId: session.Id, LastSku: "SKU_001"}))

	require.NoError(t, DeleteSession(db, session.Id))

	messages, err := ListMessages(db, session.Id)
	require.NoError(t, err)
	assert.Empty(t, messages)

	context, err := GetSessionContext(db, session.Id)
	require.NoError(t, err)
	assert.Empty(t, context.LastSku)
}

func TestSessionContextRoundTrip(t *testing.T) {
	db := testDB(t)

	session := ChatSession{Title: "test", CreatedAt: time.Now()}
	require.NoError(t, CreateSession(db, &session))

	// Missing context row yields a usable zero value, not an error.
	context, err := GetSessionContext(db, session.Id)
	require.NoError(t, err)
	assert.Equal(t, session.Id, context.SessionId)
	assert.Empty(t, context.LastSku)

	context.LastSku = "SKU_001"
	context.LastProductName = "Parafuso Sextavado M8"
	require.NoError(t, SaveSessionContext(db, &context))

	loaded, err := GetSessionContext(db, session.Id)
	require.NoError(t, err)
	assert.Equal(t, "SKU_001", loaded.LastSku)
	assert.Equal(t, "Parafuso Sextavado M8", loaded.LastProductName)

	// Last write wins.
	loaded.LastSku = "SKU_002"
	require.NoError(t, SaveSessionContext(db, &loaded))

	final, err := GetSessionContext(db, session.Id)
	require.NoError(t, err)
	assert.Equal(t, "SKU_002", final.LastSku)
}

func TestHasTerminalMessage(t *testing.T) {
	db := testDB(t)

	session := ChatSession{Title: "test", CreatedAt: time.Now()}
	require.NoError(t, CreateSession(db, &session))

	correlationID := uuid.New()

	ackMeta, err := json.Marshal(api.MessageMetadata{Type: MessageAnalysisAck, CorrelationID: correlationID.String(), Async: true})
	require.NoError(t, err)
	require.NoError(t, AppendMessage(db, &ChatMessage{SessionId: session.Id, Sender: SenderAgent, Content: "analisando", Metadata: ackMeta}))

	// An acknowledgment is not terminal.
	done, err := HasTerminalMessage(db, session.Id, correlationID)
	require.NoError(t, err)
	assert.False(t, done)

	resultMeta, err := json.Marshal(api.MessageMetadata{Type: MessageAnalysisResult, CorrelationID: correlationID.String(), Async: true, Decision: "approve"})
	require.NoError(t, err)
	require.NoError(t, AppendMessage(db, &ChatMessage{SessionId: session.Id, Sender: SenderAgent, Content: "resultado", Metadata: resultMeta}))

	done, err = HasTerminalMessage(db, session.Id, correlationID)
	require.NoError(t, err)
	assert.True(t, done)

	// Other correlation ids stay unresolved.
	done, err = HasTerminalMessage(db, session.Id, uuid.New())
	require.NoError(t, err)
	assert.False(t, done)
}

func TestParseMetadata(t *testing.T) {
	meta, err := json.Marshal(api.MessageMetadata{Type: MessageDirectAnswer, SKU: "SKU_001", Confidence: "high"})
	require.NoError(t, err)

	parsed := ParseMetadata(ChatMessage{Metadata: meta})
	require.NotNil(t, parsed)
	assert.Equal(t, MessageDirectAnswer, parsed.Type)
	assert.Equal(t, "SKU_001", parsed.SKU)

	assert.Nil(t, ParseMetadata(ChatMessage{}))
	assert.Nil(t, ParseMetadata(ChatMessage{Metadata: []byte("{invalid")}))
}
