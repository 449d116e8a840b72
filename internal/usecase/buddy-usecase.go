package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iamvkosarev/study-energy-bot/config"
	"github.com/iamvkosarev/study-energy-bot/internal/model"
	"go.uber.org/zap"
)

const giftEnergyAmount = 10

var (
	ErrBuddyDoesNotExist = errors.New("buddy does not exist")
	ErrSearchInProgress  = errors.New("buddy search already in progress")
)

// The radar is a mock: every search round finds the same nearby buddies.
var nearbyBuddies = []model.Buddy{
	{ID: 1, Name: "面对疾风", Distance: "0.5km", Subject: "数学"},
	{ID: 2, Name: "听风的蝉", Distance: "1.2km", Subject: "英语"},
	{ID: 3, Name: "小甜甜", Distance: "2.0km", Subject: "物理"},
}

type BuddyStorage interface {
	GetSearch(ctx context.Context, userID uuid.UUID) (model.BuddySearch, bool, error)
	SaveSearch(ctx context.Context, userID uuid.UUID, search model.BuddySearch) error
	ClearSearch(ctx context.Context, userID uuid.UUID) error
}

type BuddyUsecaseDeps struct {
	BuddyStorage BuddyStorage
	Pet          *PetUsecase
}

// BuddyUsecase drives the peer-matching feature. A search round's result
// list and like-state live in storage as one explicit record per user:
// restored when the user comes back from a buddy chat, cleared on any
// fresh entry.
type BuddyUsecase struct {
	BuddyUsecaseDeps
	cfg    config.Buddy
	logger *zap.Logger
}

func NewBuddyUsecase(deps BuddyUsecaseDeps, cfg config.Buddy, logger *zap.Logger) *BuddyUsecase {
	return &BuddyUsecase{
		BuddyUsecaseDeps: deps,
		cfg:              cfg,
		logger:           logger,
	}
}

// Enter resolves the state shown when the feature view is opened.
// Previous results survive only a return from a nested buddy chat.
func (b *BuddyUsecase) Enter(ctx context.Context, userID uuid.UUID, returnFromChat bool) (model.BuddySearch, error) {
	if !returnFromChat {
		if err := b.BuddyStorage.ClearSearch(ctx, userID); err != nil {
			return model.BuddySearch{}, err
		}
		return model.BuddySearch{}, nil
	}
	search, found, err := b.BuddyStorage.GetSearch(ctx, userID)
	if err != nil {
		return model.BuddySearch{}, err
	}
	if !found {
		// Nothing persisted is a normal fresh state.
		return model.BuddySearch{}, nil
	}
	return search, nil
}

// Search runs one radar round: it blocks for the configured delay, then
// persists and returns the fixed result list. Like-state from the
// previous round is kept.
func (b *BuddyUsecase) Search(ctx context.Context, userID uuid.UUID) ([]model.Buddy, error) {
	previous, _, err := b.BuddyStorage.GetSearch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if previous.Searching {
		return nil, ErrSearchInProgress
	}

	searching := model.BuddySearch{Searching: true, Liked: previous.Liked}
	if err := b.BuddyStorage.SaveSearch(ctx, userID, searching); err != nil {
		return nil, err
	}

	timer := time.NewTimer(b.cfg.SearchDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		if err := b.BuddyStorage.ClearSearch(context.Background(), userID); err != nil {
			b.logger.Warn("failed to clear aborted buddy search", zap.Error(err))
		}
		return nil, ctx.Err()
	case <-timer.C:
	}

	found := model.BuddySearch{
		Buddies: append(make([]model.Buddy, 0, len(nearbyBuddies)), nearbyBuddies...),
		Liked:   previous.Liked,
	}
	if err := b.BuddyStorage.SaveSearch(ctx, userID, found); err != nil {
		return nil, err
	}
	return found.Buddies, nil
}

// ToggleLike flips the like on one found buddy and reports the new state.
func (b *BuddyUsecase) ToggleLike(ctx context.Context, userID uuid.UUID, buddyID int) (bool, error) {
	search, _, err := b.BuddyStorage.GetSearch(ctx, userID)
	if err != nil {
		return false, err
	}
	if _, err := findBuddy(search.Buddies, buddyID); err != nil {
		return false, err
	}
	if search.Liked == nil {
		search.Liked = make(map[int]bool)
	}
	search.Liked[buddyID] = !search.Liked[buddyID]
	if err := b.BuddyStorage.SaveSearch(ctx, userID, search); err != nil {
		return false, err
	}
	return search.Liked[buddyID], nil
}

// GiftEnergy sends study energy to a buddy; the gesture cheers the
// sender's own pet as well.
func (b *BuddyUsecase) GiftEnergy(ctx context.Context, userID uuid.UUID, buddyID int) (model.Buddy, error) {
	search, _, err := b.BuddyStorage.GetSearch(ctx, userID)
	if err != nil {
		return model.Buddy{}, err
	}
	buddy, err := findBuddy(search.Buddies, buddyID)
	if err != nil {
		return model.Buddy{}, err
	}
	b.Pet.GiftEnergy(userID, giftEnergyAmount)
	return buddy, nil
}

// FindBuddy looks a buddy up in the user's current search results.
func (b *BuddyUsecase) FindBuddy(ctx context.Context, userID uuid.UUID, buddyID int) (model.Buddy, error) {
	search, _, err := b.BuddyStorage.GetSearch(ctx, userID)
	if err != nil {
		return model.Buddy{}, err
	}
	return findBuddy(search.Buddies, buddyID)
}

func findBuddy(buddies []model.Buddy, buddyID int) (model.Buddy, error) {
	for _, buddy := range buddies {
		if buddy.ID == buddyID {
			return buddy, nil
		}
	}
	return model.Buddy{}, fmt.Errorf("%w: %d", ErrBuddyDoesNotExist, buddyID)
}
