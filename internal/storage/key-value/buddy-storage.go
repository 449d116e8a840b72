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

type buddyInternal struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Distance string `json:"distance"`
	Subject  string `json:"subject"`
	Avatar   string `json:"avatar,omitempty"`
}

type buddySearchInternal struct {
	Searching bool            `json:"searching"`
	Buddies   []buddyInternal `json:"buddies"`
	Liked     map[int]bool    `json:"liked"`
}

type BuddyStorage struct {
	rdb *redis.Client
}

func NewBuddyStorage(rdb *redis.Client) *BuddyStorage {
	return &BuddyStorage{
		rdb: rdb,
	}
}

func (b *BuddyStorage) GetSearch(ctx context.Context, userID uuid.UUID) (model.BuddySearch, bool, error) {
	searchRaw, err := b.rdb.Get(ctx, getBuddySearchKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.BuddySearch{}, false, nil
		}
		return model.BuddySearch{}, false, fmt.Errorf("failed to get buddy search %s: %w", userID, err)
	}
	var searchInt buddySearchInternal
	if err = json.Unmarshal([]byte(searchRaw), &searchInt); err != nil {
		return model.BuddySearch{}, false, fmt.Errorf("failed to unmarshal buddy search %s: %w", userID, err)
	}

	buddies := make([]model.Buddy, 0, len(searchInt.Buddies))
	for _, buddy := range searchInt.Buddies {
		buddies = append(buddies, model.Buddy(buddy))
	}
	return model.BuddySearch{
		Searching: searchInt.Searching,
		Buddies:   buddies,
		Liked:     searchInt.Liked,
	}, true, nil
}

func (b *BuddyStorage) SaveSearch(ctx context.Context, userID uuid.UUID, search model.BuddySearch) error {
	searchInt := buddySearchInternal{
		Searching: search.Searching,
		Buddies:   make([]buddyInternal, 0, len(search.Buddies)),
		Liked:     search.Liked,
	}
	for _, buddy := range search.Buddies {
		searchInt.Buddies = append(searchInt.Buddies, buddyInternal(buddy))
	}
	searchJSON, err := json.Marshal(searchInt)
	if err != nil {
		return fmt.Errorf("failed to marshal buddy search: %w", err)
	}
	if err = b.rdb.Set(ctx, getBuddySearchKey(userID), searchJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to save buddy search %s: %w", userID, err)
	}
	return nil
}

func (b *BuddyStorage) ClearSearch(ctx context.Context, userID uuid.UUID) error {
	if err := b.rdb.Del(ctx, getBuddySearchKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear buddy search %s: %w", userID, err)
	}
	return nil
}

func getBuddySearchKey(userID uuid.UUID) string {
	return fmt.Sprintf("buddy_search_%v", userID.String())
}
