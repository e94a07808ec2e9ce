package player

import (
	"context"
	"sync"
	"time"

	"echofm/cache"
	"echofm/logger"

	"github.com/google/uuid"
)

// HandleRegistry is the token store behind transient playback handles. The
// Redis-backed implementation lives in the cache package; tests inject an
// in-memory fake.
type HandleRegistry interface {
	Register(ctx context.Context, token string, record cache.HandleRecord, ttl time.Duration) error
	Revoke(ctx context.Context, token string) error
}

// RedisHandleRegistry adapts the cache package to HandleRegistry.
type RedisHandleRegistry struct{}

func (RedisHandleRegistry) Register(ctx context.Context, token string, record cache.HandleRecord, ttl time.Duration) error {
	return cache.RegisterHandle(ctx, token, record, ttl)
}

func (RedisHandleRegistry) Revoke(ctx context.Context, token string) error {
	return cache.RevokeHandle(ctx, token)
}

// HandleManager owns the single "currently playing" handle slot. At most one
// handle is active at a time; acquiring a new one releases the previous one
// first, strictly before the next source is swapped in. Releasing with no
// active handle, or releasing twice, is a no-op.
type HandleManager struct {
	mu       sync.Mutex
	active   string
	registry HandleRegistry
	ttl      time.Duration
}

// NewHandleManager creates a manager over the given registry.
func NewHandleManager(registry HandleRegistry) *HandleManager {
	return &HandleManager{registry: registry, ttl: cache.DefaultHandleTTL}
}

// Acquire releases any previous handle, then registers a fresh token for the
// payload and makes it the active handle. Concurrent calls race benignly:
// the last registration wins.
func (m *HandleManager) Acquire(ctx context.Context, record cache.HandleRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != "" {
		if err := m.registry.Revoke(ctx, m.active); err != nil {
			logger.Warn("failed to revoke previous playback handle",
				logger.String("token", m.active), logger.ErrorField(err))
		}
		m.active = ""
	}

	token := uuid.NewString()
	if err := m.registry.Register(ctx, token, record, m.ttl); err != nil {
		return "", err
	}
	m.active = token
	return token, nil
}

// Release revokes the active handle if there is one. Idempotent.
func (m *HandleManager) Release(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == "" {
		return nil
	}
	if err := m.registry.Revoke(ctx, m.active); err != nil {
		return err
	}
	m.active = ""
	return nil
}

// Active returns the current token, or "" when no handle is held.
func (m *HandleManager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}
