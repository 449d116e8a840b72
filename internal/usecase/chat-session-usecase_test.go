package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/iamvkosarev/study-energy-bot/internal/model"
	in_memory "github.com/iamvkosarev/study-energy-bot/internal/storage/in-memory"
	"github.com/iamvkosarev/study-energy-bot/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSessionUsecase(gen usecase.Generator) *usecase.ChatSessionUsecase {
	return usecase.NewChatSessionUsecase(
		usecase.ChatSessionUsecaseDeps{
			SessionStorage: in_memory.NewChatSessionStorage(),
			Generation:     newGeneration(gen),
		}, zap.NewNop(),
	)
}

func TestSubmitAppendsUserThenSystemMessage(t *testing.T) {
	ctx := context.Background()
	sessions := newSessionUsecase(
		&fakeGenerator{response: `{"content":"你好呀！"}`, delay: 50 * time.Millisecond},
	)

	session, err := sessions.StartSession(ctx, uuid.New(), model.FeatureTreeHole)
	require.NoError(t, err)

	reply, ok, err := sessions.Submit(ctx, session.SessionID, "你好", "❤️")
	require.NoError(t, err)
	require.True(t, ok)

	// The user message is visible before the pipeline settles.
	current, err := sessions.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	require.Len(t, current.Messages, 1)
	assert.Equal(t, model.MessageRoleUser, current.Messages[0].Role)
	assert.Equal(t, "你好", current.Messages[0].Content)
	assert.True(t, current.Pending)

	sysMsg, open := <-reply
	require.True(t, open)
	assert.Equal(t, "你好呀！", sysMsg.Content)

	current, err = sessions.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	require.Len(t, current.Messages, 2)
	assert.Equal(t, model.MessageRoleUser, current.Messages[0].Role)
	assert.Equal(t, model.MessageRoleSystem, current.Messages[1].Role)
	assert.Less(t, current.Messages[0].ID, current.Messages[1].ID)
	assert.False(t, current.Pending)
}

func TestSubmitSecondCallWhilePendingIsDropped(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{response: `{"content":"回复"}`, delay: 100 * time.Millisecond}
	sessions := newSessionUsecase(gen)

	session, err := sessions.StartSession(ctx, uuid.New(), model.FeatureTreeHole)
	require.NoError(t, err)

	reply, ok, err := sessions.Submit(ctx, session.SessionID, "第一条", "❤️")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = sessions.Submit(ctx, session.SessionID, "第二条", "❤️")
	require.NoError(t, err)
	assert.False(t, ok, "submission while pending is dropped, not queued")

	<-reply
	sessions.Wait()

	current, err := sessions.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	require.Len(t, current.Messages, 2)
	assert.Equal(t, "第一条", current.Messages[0].Content)
	assert.Equal(t, int32(1), gen.calls.Load(), "exactly one generation in flight")
}

func TestSubmitEmptyTextIsNoOp(t *testing.T) {
	ctx := context.Background()
	sessions := newSessionUsecase(&fakeGenerator{response: `{"content":"x"}`})

	session, err := sessions.StartSession(ctx, uuid.New(), model.FeatureTreeHole)
	require.NoError(t, err)

	_, ok, err := sessions.Submit(ctx, session.SessionID, "   ", "❤️")
	require.NoError(t, err)
	assert.False(t, ok)

	current, err := sessions.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Empty(t, current.Messages)
	assert.False(t, current.Pending)
}

func TestSubmitResetsStalePendingFlag(t *testing.T) {
	ctx := context.Background()
	storage := in_memory.NewChatSessionStorage()
	sessions := usecase.NewChatSessionUsecase(
		usecase.ChatSessionUsecaseDeps{
			SessionStorage: storage,
			Generation:     newGeneration(&fakeGenerator{response: `{"content":"又见面啦"}`}),
		}, zap.NewNop(),
	)

	session, err := sessions.StartSession(ctx, uuid.New(), model.FeatureTreeHole)
	require.NoError(t, err)

	// A pending flag with no in-flight call behind it is what a crash
	// mid-generation leaves in persistent storage.
	require.NoError(t, storage.SetPending(ctx, session.SessionID, true))

	reply, ok, err := sessions.Submit(ctx, session.SessionID, "你好", "❤️")
	require.NoError(t, err)
	require.True(t, ok, "stale pending state must not block new submissions")
	<-reply
	sessions.Wait()

	current, err := sessions.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	require.Len(t, current.Messages, 2)
	assert.False(t, current.Pending)
}

func TestSubmitToMissingSession(t *testing.T) {
	sessions := newSessionUsecase(&fakeGenerator{})
	_, ok, err := sessions.Submit(context.Background(), uuid.New(), "你好", "❤️")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestSeededSessionKeepsWelcomeFirst(t *testing.T) {
	ctx := context.Background()
	sessions := newSessionUsecase(&fakeGenerator{response: `{"content":"好的"}`})

	welcome := sessions.NewSystemMessage("你好！我是面对疾风，很高兴认识你，有什么想聊的吗？", "👋")
	session, err := sessions.StartSession(ctx, uuid.New(), model.FeatureBuddyChat, welcome)
	require.NoError(t, err)

	reply, ok, err := sessions.Submit(ctx, session.SessionID, "在吗", "👋")
	require.NoError(t, err)
	require.True(t, ok)
	<-reply

	current, err := sessions.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	require.Len(t, current.Messages, 3)
	assert.Equal(t, model.MessageRoleSystem, current.Messages[0].Role)
	assert.Equal(t, "👋", current.Messages[0].Avatar)
	assert.Equal(t, model.MessageRoleUser, current.Messages[1].Role)
	assert.Equal(t, model.MessageRoleSystem, current.Messages[2].Role)
}

func TestCloseSessionDropsLateResult(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{response: `{"content":"太迟了"}`, delay: 200 * time.Millisecond}
	sessions := newSessionUsecase(gen)

	session, err := sessions.StartSession(ctx, uuid.New(), model.FeatureTreeHole)
	require.NoError(t, err)

	reply, ok, err := sessions.Submit(ctx, session.SessionID, "你好", "❤️")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, sessions.CloseSession(ctx, session.SessionID))

	_, open := <-reply
	assert.False(t, open, "late result is dropped, not delivered")
	sessions.Wait()

	_, err = sessions.GetSession(ctx, session.SessionID)
	require.Error(t, err)
}
