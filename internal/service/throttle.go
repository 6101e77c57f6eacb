package service

import (
	"sync"
	"time"
)

// tokenBucket is a refilling counter. Not safe for concurrent use on its
// own; SendThrottle serializes access.
type tokenBucket struct {
	capacity   int64
	tokens     int64
	refillRate int64 // tokens per second
	lastRefill time.Time
	lastUsed   time.Time
}

func (tb *tokenBucket) allow(now time.Time) bool {
	elapsed := now.Sub(tb.lastRefill)
	tokensToAdd := int64(elapsed.Seconds()) * tb.refillRate
	if tokensToAdd > 0 {
		tb.tokens += tokensToAdd
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastRefill = now
	}

	tb.lastUsed = now
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// SendThrottle bounds how fast one participant can append to one
// conversation. Chat endpoints bypass the general API limiter for latency,
// so this is the abuse backstop.
type SendThrottle struct {
	mu         sync.Mutex
	buckets    map[string]*tokenBucket
	capacity   int64
	refillRate int64
	lastSweep  time.Time
}

// Idle buckets are swept to keep the map from growing without bound.
const (
	bucketIdleTTL = 10 * time.Minute
	sweepInterval = time.Minute
)

func NewSendThrottle(capacity, perSecond int64) *SendThrottle {
	if capacity < 1 {
		capacity = 1
	}
	if perSecond < 1 {
		perSecond = 1
	}
	return &SendThrottle{
		buckets:    make(map[string]*tokenBucket),
		capacity:   capacity,
		refillRate: perSecond,
		lastSweep:  time.Now(),
	}
}

// Allow reports whether the sender may append to the conversation now.
func (t *SendThrottle) Allow(conversationID, userID string) bool {
	key := conversationID + ":" + userID
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if now.Sub(t.lastSweep) > sweepInterval {
		t.sweep(now)
	}

	bucket, ok := t.buckets[key]
	if !ok {
		bucket = &tokenBucket{
			capacity:   t.capacity,
			tokens:     t.capacity,
			refillRate: t.refillRate,
			lastRefill: now,
		}
		t.buckets[key] = bucket
	}
	return bucket.allow(now)
}

// sweep must be called with the lock held.
func (t *SendThrottle) sweep(now time.Time) {
	for key, bucket := range t.buckets {
		if now.Sub(bucket.lastUsed) > bucketIdleTTL {
			delete(t.buckets, key)
		}
	}
	t.lastSweep = now
}
