package in_memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/iamvkosarev/study-energy-bot/internal/model"
)

var (
	ErrSessionDoesNotExist = errors.New("chat session does not exist")
)

type ChatSessionStorage struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*model.ChatSession
}

func NewChatSessionStorage() *ChatSessionStorage {
	return &ChatSessionStorage{
		sessions: make(map[uuid.UUID]*model.ChatSession),
	}
}

func (s *ChatSessionStorage) CreateSession(
	_ context.Context,
	userID uuid.UUID,
	feature model.Feature,
	seed []model.Message,
) (model.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessionID := uuid.New()
	session := model.ChatSession{
		SessionID: sessionID,
		UserID:    userID,
		Feature:   feature,
		Messages:  append(make([]model.Message, 0, len(seed)), seed...),
	}
	s.sessions[sessionID] = &session
	return copySession(&session), nil
}

func (s *ChatSessionStorage) GetSession(_ context.Context, sessionID uuid.UUID) (model.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return model.ChatSession{}, ErrSessionDoesNotExist
	}
	return copySession(session), nil
}

func (s *ChatSessionStorage) AppendMessage(_ context.Context, sessionID uuid.UUID, msg model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionDoesNotExist
	}
	session.Messages = append(session.Messages, msg)
	return nil
}

func (s *ChatSessionStorage) SetPending(_ context.Context, sessionID uuid.UUID, pending bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionDoesNotExist
	}
	session.Pending = pending
	return nil
}

func (s *ChatSessionStorage) DeleteSession(_ context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func copySession(session *model.ChatSession) model.ChatSession {
	out := *session
	out.Messages = append(make([]model.Message, 0, len(session.Messages)), session.Messages...)
	return out
}
