package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// HandleRecord is the payload stored behind a transient playback token. The
// playback element addresses audio through /stream/{token}; once the token is
// revoked or expires, the handle is gone.
type HandleRecord struct {
	BlobKey     string `json:"blobKey"`
	ContentType string `json:"contentType"`
	SongID      string `json:"songId"`
}

// DefaultHandleTTL bounds how long an unreleased handle can linger.
const DefaultHandleTTL = 6 * time.Hour

func handleKey(token string) string {
	return fmt.Sprintf("handle:%s", token)
}

// RegisterHandle stores a playback token with a TTL.
func RegisterHandle(ctx context.Context, token string, record HandleRecord, ttl time.Duration) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if ttl <= 0 {
		ttl = DefaultHandleTTL
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal handle record: %w", err)
	}

	if err := RedisClient.Set(ctx, handleKey(token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to register handle: %w", err)
	}
	return nil
}

// ResolveHandle looks up a playback token. Returns (nil, nil) for unknown or
// expired tokens.
func ResolveHandle(ctx context.Context, token string) (*HandleRecord, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	payload, err := RedisClient.Get(ctx, handleKey(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve handle: %w", err)
	}

	var record HandleRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal handle record: %w", err)
	}
	return &record, nil
}

// RevokeHandle deletes a playback token. Revoking an unknown or already
// revoked token is a no-op.
func RevokeHandle(ctx context.Context, token string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	if err := RedisClient.Del(ctx, handleKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to revoke handle: %w", err)
	}
	return nil
}
