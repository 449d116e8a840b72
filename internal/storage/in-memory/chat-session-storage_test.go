package in_memory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/iamvkosarev/study-energy-bot/internal/model"
	in_memory "github.com/iamvkosarev/study-energy-bot/internal/storage/in-memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSessionStorageLifecycle(t *testing.T) {
	ctx := context.Background()
	storage := in_memory.NewChatSessionStorage()

	seed := model.Message{ID: 1, Role: model.MessageRoleSystem, Content: "欢迎", Avatar: "❤️"}
	session, err := storage.CreateSession(ctx, uuid.New(), model.FeatureTreeHole, []model.Message{seed})
	require.NoError(t, err)
	require.Len(t, session.Messages, 1)

	err = storage.AppendMessage(ctx, session.SessionID, model.Message{ID: 2, Role: model.MessageRoleUser, Content: "你好"})
	require.NoError(t, err)
	require.NoError(t, storage.SetPending(ctx, session.SessionID, true))

	got, err := storage.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.FeatureTreeHole, got.Feature)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "欢迎", got.Messages[0].Content)
	assert.True(t, got.Pending)

	require.NoError(t, storage.DeleteSession(ctx, session.SessionID))
	_, err = storage.GetSession(ctx, session.SessionID)
	require.ErrorIs(t, err, in_memory.ErrSessionDoesNotExist)
}

func TestChatSessionStorageReturnsCopies(t *testing.T) {
	ctx := context.Background()
	storage := in_memory.NewChatSessionStorage()

	session, err := storage.CreateSession(ctx, uuid.New(), model.FeatureBuddyChat, nil)
	require.NoError(t, err)

	got, err := storage.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	got.Messages = append(got.Messages, model.Message{ID: 9, Role: model.MessageRoleUser, Content: "改不到"})

	again, err := storage.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Empty(t, again.Messages)
}

func TestChatSessionStorageUnknownSession(t *testing.T) {
	ctx := context.Background()
	storage := in_memory.NewChatSessionStorage()

	err := storage.AppendMessage(ctx, uuid.New(), model.Message{ID: 1})
	require.ErrorIs(t, err, in_memory.ErrSessionDoesNotExist)
	err = storage.SetPending(ctx, uuid.New(), true)
	require.ErrorIs(t, err, in_memory.ErrSessionDoesNotExist)
}
