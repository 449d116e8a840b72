package key_value

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/iamvkosarev/study-energy-bot/internal/model"
	"github.com/redis/go-redis/v9"
)

var (
	ErrSessionDoesNotExist = errors.New("chat session does not exist")
)

type messageInternal struct {
	ID      int64             `json:"id"`
	Role    model.MessageRole `json:"role"`
	Content string            `json:"content"`
	Avatar  string            `json:"avatar,omitempty"`
}

type sessionInternal struct {
	SessionID string            `json:"session_id"`
	UserID    string            `json:"user_id"`
	Feature   model.Feature     `json:"feature"`
	Messages  []messageInternal `json:"messages"`
	Pending   bool              `json:"pending"`
}

type ChatSessionStorage struct {
	rdb *redis.Client
}

func NewChatSessionStorage(rdb *redis.Client) *ChatSessionStorage {
	return &ChatSessionStorage{
		rdb: rdb,
	}
}

func (s *ChatSessionStorage) CreateSession(
	ctx context.Context,
	userID uuid.UUID,
	feature model.Feature,
	seed []model.Message,
) (model.ChatSession, error) {
	sessionID := uuid.New()
	sessionInt := sessionInternal{
		SessionID: sessionID.String(),
		UserID:    userID.String(),
		Feature:   feature,
		Messages:  make([]messageInternal, 0, len(seed)),
	}
	for _, msg := range seed {
		sessionInt.Messages = append(sessionInt.Messages, toMessageInternal(msg))
	}
	if err := s.setSessionInt(ctx, sessionID, sessionInt); err != nil {
		return model.ChatSession{}, fmt.Errorf("failed to set session internal %s: %w", sessionID.String(), err)
	}
	return model.ChatSession{
		SessionID: sessionID,
		UserID:    userID,
		Feature:   feature,
		Messages:  append(make([]model.Message, 0, len(seed)), seed...),
	}, nil
}

func (s *ChatSessionStorage) GetSession(ctx context.Context, sessionID uuid.UUID) (model.ChatSession, error) {
	sessionInt, err := s.getSessionInt(ctx, sessionID)
	if err != nil {
		return model.ChatSession{}, err
	}
	userID, err := uuid.Parse(sessionInt.UserID)
	if err != nil {
		return model.ChatSession{}, fmt.Errorf("failed to parse session %s user id: %w", sessionID, err)
	}

	messages := make([]model.Message, 0, len(sessionInt.Messages))
	for _, msg := range sessionInt.Messages {
		messages = append(
			messages, model.Message{
				ID:      msg.ID,
				Role:    msg.Role,
				Content: msg.Content,
				Avatar:  msg.Avatar,
			},
		)
	}
	return model.ChatSession{
		SessionID: sessionID,
		UserID:    userID,
		Feature:   sessionInt.Feature,
		Messages:  messages,
		Pending:   sessionInt.Pending,
	}, nil
}

func (s *ChatSessionStorage) AppendMessage(ctx context.Context, sessionID uuid.UUID, msg model.Message) error {
	sessionInt, err := s.getSessionInt(ctx, sessionID)
	if err != nil {
		return err
	}
	sessionInt.Messages = append(sessionInt.Messages, toMessageInternal(msg))
	if err = s.setSessionInt(ctx, sessionID, sessionInt); err != nil {
		return fmt.Errorf("failed to set internal session %s: %w", sessionID.String(), err)
	}
	return nil
}

func (s *ChatSessionStorage) SetPending(ctx context.Context, sessionID uuid.UUID, pending bool) error {
	sessionInt, err := s.getSessionInt(ctx, sessionID)
	if err != nil {
		return err
	}
	sessionInt.Pending = pending
	if err = s.setSessionInt(ctx, sessionID, sessionInt); err != nil {
		return fmt.Errorf("failed to set internal session %s: %w", sessionID.String(), err)
	}
	return nil
}

func (s *ChatSessionStorage) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.rdb.Del(ctx, getSessionIDKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

func (s *ChatSessionStorage) getSessionInt(ctx context.Context, sessionID uuid.UUID) (sessionInternal, error) {
	sessionIDKey := getSessionIDKey(sessionID)
	sessionIntRaw, err := s.rdb.Get(ctx, sessionIDKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return sessionInternal{}, ErrSessionDoesNotExist
		}
		return sessionInternal{}, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}
	var sessionInt sessionInternal
	if err = json.Unmarshal([]byte(sessionIntRaw), &sessionInt); err != nil {
		return sessionInternal{}, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	return sessionInt, nil
}

func (s *ChatSessionStorage) setSessionInt(ctx context.Context, sessionID uuid.UUID, sessionInt sessionInternal) error {
	sessionIntJSON, err := json.Marshal(sessionInt)
	if err != nil {
		return fmt.Errorf("failed to marshal internal session: %w", err)
	}
	if err = s.rdb.Set(ctx, getSessionIDKey(sessionID), sessionIntJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to save sessionInternal %s: %w", sessionID, err)
	}
	return nil
}

func toMessageInternal(msg model.Message) messageInternal {
	return messageInternal{
		ID:      msg.ID,
		Role:    msg.Role,
		Content: msg.Content,
		Avatar:  msg.Avatar,
	}
}

func getSessionIDKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("chat_session_%v", sessionID.String())
}
