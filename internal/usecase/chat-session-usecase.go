package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iamvkosarev/study-energy-bot/internal/model"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

type ChatSessionStorage interface {
	CreateSession(ctx context.Context, userID uuid.UUID, feature model.Feature, seed []model.Message) (model.ChatSession, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (model.ChatSession, error)
	AppendMessage(ctx context.Context, sessionID uuid.UUID, msg model.Message) error
	SetPending(ctx context.Context, sessionID uuid.UUID, pending bool) error
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
}

type ChatSessionUsecaseDeps struct {
	SessionStorage ChatSessionStorage
	Generation     *GenerationUsecase
}

// ChatSessionUsecase owns the conversation state machine shared by the
// tree-hole and buddy-chat features: an append-only message log per
// session and a single-flight guard so at most one generation is ever in
// flight per session.
type ChatSessionUsecase struct {
	ChatSessionUsecaseDeps
	logger *zap.Logger
	wg     *conc.WaitGroup

	mu       sync.Mutex
	inFlight map[uuid.UUID]context.CancelFunc

	idMu          sync.Mutex
	lastMessageID int64
}

func NewChatSessionUsecase(deps ChatSessionUsecaseDeps, logger *zap.Logger) *ChatSessionUsecase {
	return &ChatSessionUsecase{
		ChatSessionUsecaseDeps: deps,
		logger:                 logger,
		wg:                     conc.NewWaitGroup(),
		inFlight:               make(map[uuid.UUID]context.CancelFunc),
	}
}

// StartSession creates a session for one feature view, optionally seeded
// with welcome messages. The seed is plain data, never a pipeline call.
func (c *ChatSessionUsecase) StartSession(
	ctx context.Context,
	userID uuid.UUID,
	feature model.Feature,
	seed ...model.Message,
) (model.ChatSession, error) {
	return c.SessionStorage.CreateSession(ctx, userID, feature, seed)
}

func (c *ChatSessionUsecase) GetSession(ctx context.Context, sessionID uuid.UUID) (model.ChatSession, error) {
	return c.SessionStorage.GetSession(ctx, sessionID)
}

// NewSystemMessage builds a system message with a fresh ordering key, for
// session seeding and replies alike.
func (c *ChatSessionUsecase) NewSystemMessage(content, avatar string) model.Message {
	return model.Message{
		ID:      c.nextMessageID(),
		Role:    model.MessageRoleSystem,
		Content: content,
		Avatar:  avatar,
	}
}

// Submit appends the user's message immediately and drives the generation
// pipeline in the background. The returned channel yields the system
// reply once the pipeline settles; it is closed without a value when the
// session is closed first or the invocation aborts. ok is false when the
// submission is dropped: empty text, or a generation already in flight
// (the second submission is dropped, not queued).
func (c *ChatSessionUsecase) Submit(
	ctx context.Context,
	sessionID uuid.UUID,
	userText string,
	replyAvatar string,
) (reply <-chan model.Message, ok bool, err error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return nil, false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, pending := c.inFlight[sessionID]; pending {
		return nil, false, nil
	}

	session, err := c.SessionStorage.GetSession(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	if session.Pending {
		// No in-flight call owns the flag, so it is stale state left
		// behind by a process that died mid-generation.
		if err = c.SessionStorage.SetPending(ctx, sessionID, false); err != nil {
			return nil, false, err
		}
	}

	userMsg := model.Message{
		ID:      c.nextMessageID(),
		Role:    model.MessageRoleUser,
		Content: userText,
	}
	if err = c.SessionStorage.AppendMessage(ctx, sessionID, userMsg); err != nil {
		return nil, false, err
	}
	if err = c.SessionStorage.SetPending(ctx, sessionID, true); err != nil {
		return nil, false, err
	}

	// The pipeline is bound to the session's lifetime, not the caller's
	// request: closing the session cancels it, leaving a view does not.
	genCtx, cancel := context.WithCancel(context.Background())
	c.inFlight[sessionID] = cancel

	replyChan := make(chan model.Message, 1)
	feature := session.Feature
	c.wg.Go(
		func() {
			payload, genErr := c.Generation.GeneratePayload(
				genCtx, feature, map[string]string{"content": userText},
			)
			c.complete(genCtx, sessionID, payload, genErr, replyAvatar, replyChan)
		},
	)
	return replyChan, true, nil
}

func (c *ChatSessionUsecase) complete(
	genCtx context.Context,
	sessionID uuid.UUID,
	payload model.ExtractedPayload,
	genErr error,
	replyAvatar string,
	replyChan chan model.Message,
) {
	defer close(replyChan)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, sessionID)

	if genCtx.Err() != nil {
		// Session was closed while the call was outstanding. The late
		// result is dropped, never appended.
		c.logger.Debug("dropping late generation result", zap.String("session", sessionID.String()))
		return
	}

	ctx := context.Background()
	if genErr != nil {
		// Only programming-error failures reach here; transport and
		// extraction failures were already replaced by fallbacks.
		c.logger.Error("generation aborted", zap.String("session", sessionID.String()), zap.Error(genErr))
		if err := c.SessionStorage.SetPending(ctx, sessionID, false); err != nil {
			c.logger.Error("failed to clear pending flag", zap.Error(err))
		}
		return
	}

	sysMsg := c.NewSystemMessage(payload.Content, replyAvatar)
	if err := c.SessionStorage.AppendMessage(ctx, sessionID, sysMsg); err != nil {
		c.logger.Error("failed to append system message", zap.Error(err))
	}
	if err := c.SessionStorage.SetPending(ctx, sessionID, false); err != nil {
		c.logger.Error("failed to clear pending flag", zap.Error(err))
	}
	replyChan <- sysMsg
}

// CloseSession discards the session and cancels its outstanding
// generation, if any.
func (c *ChatSessionUsecase) CloseSession(ctx context.Context, sessionID uuid.UUID) error {
	c.mu.Lock()
	if cancel, ok := c.inFlight[sessionID]; ok {
		cancel()
		delete(c.inFlight, sessionID)
	}
	c.mu.Unlock()
	return c.SessionStorage.DeleteSession(ctx, sessionID)
}

// Wait blocks until every in-flight pipeline invocation has settled.
func (c *ChatSessionUsecase) Wait() {
	c.wg.Wait()
}

func (c *ChatSessionUsecase) nextMessageID() int64 {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	id := time.Now().UnixMilli()
	if id <= c.lastMessageID {
		id = c.lastMessageID + 1
	}
	c.lastMessageID = id
	return id
}
