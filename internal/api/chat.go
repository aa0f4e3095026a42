package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"procurement-backend/internal/chat"
	"procurement-backend/internal/database"
	"procurement-backend/pkg/api"
)

type ChatService struct {
	db           *gorm.DB
	orchestrator *chat.Orchestrator
}

func NewChatService(db *gorm.DB, orchestrator *chat.Orchestrator) *ChatService {
	return &ChatService{db: db, orchestrator: orchestrator}
}

func (s *ChatService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Route("/chat", func(r chi.Router) {
		r.Get("/sessions", RestHandler(s.GetSessions))
		r.Post("/sessions", RestHandler(s.StartSession))
		r.Get("/sessions/{session_id}", RestHandler(s.GetSession))
		r.Delete("/sessions/{session_id}", RestHandler(s.DeleteSession))
		r.Post("/sessions/{session_id}/messages", RestHandler(s.SendMessage))
		r.Get("/sessions/{session_id}/messages", RestHandler(s.ListMessages))
	})
}

func (s *ChatService) StartSession(r *http.Request) (any, error) {
	req, err := ParseRequest[api.StartSessionRequest](r)
	if err != nil {
		return nil, err
	}

	session := database.ChatSession{Title: req.Title, CreatedAt: time.Now()}
	if err := database.CreateSession(s.db, &session); err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create session")
	}

	return api.StartSessionResponse{SessionID: session.Id.String()}, nil
}

func (s *ChatService) GetSessions(r *http.Request) (any, error) {
	sessions, err := database.GetSessions(s.db)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to list sessions")
	}

	resp := api.GetSessionsResponse{Sessions: []api.ChatSessionMetadata{}}
	for _, session := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionMetadata(session))
	}
	return resp, nil
}

func (s *ChatService) GetSession(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	session, err := database.GetSession(s.db, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "session not found")
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to get session")
	}

	return toSessionMetadata(session), nil
}

func (s *ChatService) DeleteSession(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	if err := database.DeleteSession(s.db, sessionID); err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to delete session")
	}
	return nil, nil
}

// SendMessage runs one orchestrated turn and returns the immediate reply;
// async analyses return an acknowledgment whose terminal result is later
// observed through ListMessages.
func (s *ChatService) SendMessage(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.SendMessageRequest](r)
	if err != nil {
		return nil, err
	}
	if req.Message == "" {
		return nil, CodedErrorf(http.StatusBadRequest, "message must not be empty")
	}

	if _, err := database.GetSession(s.db, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "session not found")
		}
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to load session")
	}

	reply, err := s.orchestrator.HandleTurn(r.Context(), sessionID, req.Message)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to process message")
	}

	return api.SendMessageResponse{Reply: toMessageItem(reply)}, nil
}

// ListMessages returns the session's full message log ordered ascending by
// creation time. Clients poll this endpoint to observe async results.
func (s *ChatService) ListMessages(r *http.Request) (any, error) {
	sessionID, err := URLParamUUID(r, "session_id")
	if err != nil {
		return nil, err
	}

	params, err := ParseRequestQueryParams[api.ListMessagesParams](r)
	if err != nil {
		return nil, err
	}

	messages, err := database.ListMessages(s.db, sessionID)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to list messages")
	}

	var since time.Time
	if params.Since != "" {
		since, err = time.Parse(time.RFC3339, params.Since)
		if err != nil {
			return nil, CodedErrorf(http.StatusBadRequest, "invalid 'since' timestamp, expected RFC3339")
		}
	}

	resp := api.ListMessagesResponse{Messages: []api.ChatMessageItem{}}
	for _, message := range messages {
		if !since.IsZero() && !message.CreatedAt.After(since) {
			continue
		}
		resp.Messages = append(resp.Messages, toMessageItem(message))
	}
	return resp, nil
}

func toSessionMetadata(session database.ChatSession) api.ChatSessionMetadata {
	return api.ChatSessionMetadata{
		ID:        session.Id,
		Title:     session.Title,
		CreatedAt: session.CreatedAt.Format(time.RFC3339),
	}
}

func toMessageItem(message database.ChatMessage) api.ChatMessageItem {
	return api.ChatMessageItem{
		ID:        message.Id,
		Sender:    message.Sender,
		Content:   message.Content,
		Metadata:  database.ParseMetadata(message),
		CreatedAt: message.CreatedAt.Format(time.RFC3339),
	}
}
