package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// UnreadTracker keeps per-(conversation, participant) unread counters.
// Counters are a derived cache over the message log: Get may report a miss,
// in which case the caller recomputes from the store and warms the cache
// with Set.
type UnreadTracker interface {
	Increment(ctx context.Context, conversationID, userID string) error
	Clear(ctx context.Context, conversationID, userID string) error
	Get(ctx context.Context, conversationID, userID string) (count int64, ok bool)
	Set(ctx context.Context, conversationID, userID string, count int64) error
}

func unreadKey(conversationID, userID string) string {
	return fmt.Sprintf("unread:conv:%s:user:%s", conversationID, userID)
}

// redisUnreadTracker stores counters in Redis so they survive restarts and
// are shared across processes.
type redisUnreadTracker struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisUnreadTracker(client *redis.Client, logger *zap.Logger) UnreadTracker {
	return &redisUnreadTracker{client: client, logger: logger}
}

func (t *redisUnreadTracker) Increment(ctx context.Context, conversationID, userID string) error {
	if err := t.client.Incr(ctx, unreadKey(conversationID, userID)).Err(); err != nil {
		t.logger.Warn("unread increment failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return err
	}
	return nil
}

func (t *redisUnreadTracker) Clear(ctx context.Context, conversationID, userID string) error {
	return t.client.Del(ctx, unreadKey(conversationID, userID)).Err()
}

func (t *redisUnreadTracker) Get(ctx context.Context, conversationID, userID string) (int64, bool) {
	count, err := t.client.Get(ctx, unreadKey(conversationID, userID)).Int64()
	if err != nil {
		// redis.Nil means cold cache; other errors degrade to a recompute.
		return 0, false
	}
	return count, true
}

func (t *redisUnreadTracker) Set(ctx context.Context, conversationID, userID string, count int64) error {
	return t.client.Set(ctx, unreadKey(conversationID, userID), count, 0).Err()
}

// memoryUnreadTracker keeps counters in-process, for deployments without
// Redis and for tests.
type memoryUnreadTracker struct {
	mu       sync.RWMutex
	counters map[string]int64
}

func NewMemoryUnreadTracker() UnreadTracker {
	return &memoryUnreadTracker{counters: make(map[string]int64)}
}

func (t *memoryUnreadTracker) Increment(_ context.Context, conversationID, userID string) error {
	t.mu.Lock()
	t.counters[unreadKey(conversationID, userID)]++
	t.mu.Unlock()
	return nil
}

func (t *memoryUnreadTracker) Clear(_ context.Context, conversationID, userID string) error {
	t.mu.Lock()
	// a cleared counter is an authoritative zero, not a cache miss
	t.counters[unreadKey(conversationID, userID)] = 0
	t.mu.Unlock()
	return nil
}

func (t *memoryUnreadTracker) Get(_ context.Context, conversationID, userID string) (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	count, ok := t.counters[unreadKey(conversationID, userID)]
	return count, ok
}

func (t *memoryUnreadTracker) Set(_ context.Context, conversationID, userID string, count int64) error {
	t.mu.Lock()
	t.counters[unreadKey(conversationID, userID)] = count
	t.mu.Unlock()
	return nil
}
