package in_memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/iamvkosarev/study-energy-bot/internal/model"
)

type BuddyStorage struct {
	mu       sync.RWMutex
	searches map[uuid.UUID]model.BuddySearch
}

func NewBuddyStorage() *BuddyStorage {
	return &BuddyStorage{
		searches: make(map[uuid.UUID]model.BuddySearch),
	}
}

func (b *BuddyStorage) GetSearch(_ context.Context, userID uuid.UUID) (model.BuddySearch, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	search, ok := b.searches[userID]
	return search, ok, nil
}

func (b *BuddyStorage) SaveSearch(_ context.Context, userID uuid.UUID, search model.BuddySearch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.searches[userID] = search
	return nil
}

func (b *BuddyStorage) ClearSearch(_ context.Context, userID uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.searches, userID)
	return nil
}
