package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"echofm/model"

	"github.com/go-redis/redis/v8"
)

const playlistKey = "playlist:current"

// StorePlaylist mirrors the latest reconciled list into Redis. Passes may
// overlap; the last write wins, matching the in-memory supersede semantics.
func StorePlaylist(ctx context.Context, entries []*model.PlaylistEntry) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal playlist: %w", err)
	}

	if err := RedisClient.Set(ctx, playlistKey, payload, 24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to store playlist: %w", err)
	}
	return nil
}

// GetPlaylist returns the last mirrored reconciled list, or an empty list
// when nothing has been cached yet.
func GetPlaylist(ctx context.Context) ([]*model.PlaylistEntry, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	payload, err := RedisClient.Get(ctx, playlistKey).Result()
	if err != nil {
		if err == redis.Nil {
			return []*model.PlaylistEntry{}, nil
		}
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	var entries []*model.PlaylistEntry
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal playlist: %w", err)
	}
	return entries, nil
}

// ClearPlaylist drops the mirrored list. Used by the maintenance reset.
func ClearPlaylist(ctx context.Context) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	if err := RedisClient.Del(ctx, playlistKey).Err(); err != nil {
		return fmt.Errorf("failed to clear playlist: %w", err)
	}
	return nil
}
