package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/iamvkosarev/study-energy-bot/config"
	"github.com/iamvkosarev/study-energy-bot/internal/model"
	in_memory "github.com/iamvkosarev/study-energy-bot/internal/storage/in-memory"
	"github.com/iamvkosarev/study-energy-bot/internal/usecase"
	"github.com/iamvkosarev/study-energy-bot/pkg/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingBuddyStorage struct {
	err error
}

func (f *failingBuddyStorage) GetSearch(context.Context, uuid.UUID) (model.BuddySearch, bool, error) {
	return model.BuddySearch{}, false, f.err
}

func (f *failingBuddyStorage) SaveSearch(context.Context, uuid.UUID, model.BuddySearch) error {
	return f.err
}

func (f *failingBuddyStorage) ClearSearch(context.Context, uuid.UUID) error {
	return f.err
}

func newBuddies(t *testing.T, searchDelay time.Duration) (*usecase.BuddyUsecase, *usecase.PetUsecase) {
	t.Helper()
	pets := usecase.NewPetUsecase(config.Pet{DecayInterval: time.Hour}, local.Chn, zap.NewNop())
	buddies := usecase.NewBuddyUsecase(
		usecase.BuddyUsecaseDeps{
			BuddyStorage: in_memory.NewBuddyStorage(),
			Pet:          pets,
		},
		config.Buddy{SearchDelay: searchDelay},
		zap.NewNop(),
	)
	return buddies, pets
}

func TestBuddySearchFindsNearbyBuddies(t *testing.T) {
	buddies, _ := newBuddies(t, 10*time.Millisecond)
	userID := uuid.New()

	found, err := buddies.Search(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, found, 3)
	assert.Equal(t, "面对疾风", found[0].Name)
	assert.Equal(t, "0.5km", found[0].Distance)
	assert.Equal(t, "数学", found[0].Subject)
}

func TestBuddySearchWaitsForDelay(t *testing.T) {
	buddies, _ := newBuddies(t, 50*time.Millisecond)

	start := time.Now()
	_, err := buddies.Search(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestBuddySearchPropagatesStorageFailure(t *testing.T) {
	storageErr := errors.New("storage unreachable")
	pets := usecase.NewPetUsecase(config.Pet{DecayInterval: time.Hour}, local.Chn, zap.NewNop())
	buddies := usecase.NewBuddyUsecase(
		usecase.BuddyUsecaseDeps{
			BuddyStorage: &failingBuddyStorage{err: storageErr},
			Pet:          pets,
		},
		config.Buddy{SearchDelay: time.Millisecond},
		zap.NewNop(),
	)

	_, err := buddies.Search(context.Background(), uuid.New())
	require.ErrorIs(t, err, storageErr, "a storage failure must not pass for a fresh state")
}

func TestBuddySearchWhileSearching(t *testing.T) {
	storage := in_memory.NewBuddyStorage()
	pets := usecase.NewPetUsecase(config.Pet{DecayInterval: time.Hour}, local.Chn, zap.NewNop())
	buddies := usecase.NewBuddyUsecase(
		usecase.BuddyUsecaseDeps{BuddyStorage: storage, Pet: pets},
		config.Buddy{SearchDelay: time.Second},
		zap.NewNop(),
	)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, storage.SaveSearch(ctx, userID, model.BuddySearch{Searching: true}))
	_, err := buddies.Search(ctx, userID)
	require.ErrorIs(t, err, usecase.ErrSearchInProgress)
}

func TestBuddySearchCancelled(t *testing.T) {
	buddies, _ := newBuddies(t, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := buddies.Search(ctx, uuid.New())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBuddyToggleLike(t *testing.T) {
	buddies, _ := newBuddies(t, time.Millisecond)
	ctx := context.Background()
	userID := uuid.New()

	_, err := buddies.Search(ctx, userID)
	require.NoError(t, err)

	liked, err := buddies.ToggleLike(ctx, userID, 2)
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = buddies.ToggleLike(ctx, userID, 2)
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestBuddyToggleLikeUnknownBuddy(t *testing.T) {
	buddies, _ := newBuddies(t, time.Millisecond)
	ctx := context.Background()
	userID := uuid.New()

	_, err := buddies.Search(ctx, userID)
	require.NoError(t, err)

	_, err = buddies.ToggleLike(ctx, userID, 99)
	require.ErrorIs(t, err, usecase.ErrBuddyDoesNotExist)
}

func TestBuddyEnterFreshClearsState(t *testing.T) {
	buddies, _ := newBuddies(t, time.Millisecond)
	ctx := context.Background()
	userID := uuid.New()

	_, err := buddies.Search(ctx, userID)
	require.NoError(t, err)
	_, err = buddies.ToggleLike(ctx, userID, 1)
	require.NoError(t, err)

	search, err := buddies.Enter(ctx, userID, false)
	require.NoError(t, err)
	assert.Empty(t, search.Buddies)
	assert.Empty(t, search.Liked)
}

func TestBuddyEnterFromChatRestoresState(t *testing.T) {
	buddies, _ := newBuddies(t, time.Millisecond)
	ctx := context.Background()
	userID := uuid.New()

	_, err := buddies.Search(ctx, userID)
	require.NoError(t, err)
	_, err = buddies.ToggleLike(ctx, userID, 1)
	require.NoError(t, err)

	search, err := buddies.Enter(ctx, userID, true)
	require.NoError(t, err)
	assert.Len(t, search.Buddies, 3)
	assert.True(t, search.Liked[1])
}

func TestBuddyGiftEnergyCheersPet(t *testing.T) {
	buddies, pets := newBuddies(t, time.Millisecond)
	ctx := context.Background()
	userID := uuid.New()

	_, err := buddies.Search(ctx, userID)
	require.NoError(t, err)

	buddy, err := buddies.GiftEnergy(ctx, userID, 3)
	require.NoError(t, err)
	assert.Equal(t, "小甜甜", buddy.Name)
	assert.Equal(t, 90, pets.GetPet(userID).Energy)
}
