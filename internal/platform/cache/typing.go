package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTypingTTL = 5 * time.Second

// TypingCache tracks which conversations have someone typing. Entries expire
// on their own after the TTL.
type TypingCache interface {
	SetTyping(ctx context.Context, clientID string, typing bool) error
	IsTyping(ctx context.Context, clientID string) (bool, error)
}

// ---------------------------------------------------------------------------
// Redis
// ---------------------------------------------------------------------------

type RedisTypingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisTypingCache(rdb *redis.Client, ttl time.Duration) *RedisTypingCache {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &RedisTypingCache{rdb: rdb, ttl: ttl}
}

func typingKey(clientID string) string { return "typing:" + clientID }

func (c *RedisTypingCache) SetTyping(ctx context.Context, clientID string, typing bool) error {
	if !typing {
		return c.rdb.Del(ctx, typingKey(clientID)).Err()
	}
	return c.rdb.Set(ctx, typingKey(clientID), 1, c.ttl).Err()
}

func (c *RedisTypingCache) IsTyping(ctx context.Context, clientID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, typingKey(clientID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ---------------------------------------------------------------------------
// In-process
// ---------------------------------------------------------------------------

// MemoryTypingCache is used when no Redis is configured. State is per process
// and disappears on restart.
type MemoryTypingCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

func NewMemoryTypingCache(ttl time.Duration) *MemoryTypingCache {
	return newMemoryTypingCache(ttl, time.Now)
}

func newMemoryTypingCache(ttl time.Duration, now func() time.Time) *MemoryTypingCache {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	c := &MemoryTypingCache{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     now,
		stop:    make(chan struct{}),
	}
	go c.sweepLoop(ttl * 2)
	return c
}

func (c *MemoryTypingCache) SetTyping(_ context.Context, clientID string, typing bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if typing {
		c.entries[clientID] = c.now().Add(c.ttl)
	} else {
		delete(c.entries, clientID)
	}
	return nil
}

func (c *MemoryTypingCache) IsTyping(_ context.Context, clientID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp, ok := c.entries[clientID]
	if !ok {
		return false, nil
	}
	if !c.now().Before(exp) {
		delete(c.entries, clientID)
		return false, nil
	}
	return true, nil
}

func (c *MemoryTypingCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for id, exp := range c.entries {
		if !now.Before(exp) {
			delete(c.entries, id)
		}
	}
}

func (c *MemoryTypingCache) sweepLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryTypingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the background sweep.
func (c *MemoryTypingCache) Close() {
	c.once.Do(func() { close(c.stop) })
}
