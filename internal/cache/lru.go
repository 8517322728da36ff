package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

type lruEntry struct {
	value     []byte
	timestamp time.Time
}

// LRU is the in-process tier. Entries older than ttl read as misses and are
// evicted lazily.
type LRU struct {
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewLRU(size int, ttl time.Duration) (*LRU, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("lru ttl must be positive")
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &LRU{cache: c, ttl: ttl, now: time.Now}, nil
}

func (l *LRU) Name() string { return "lru" }

func (l *LRU) Get(_ context.Context, key string) ([]byte, error) {
	cached, ok := l.cache.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	entry, ok := cached.(lruEntry)
	if !ok || l.now().Sub(entry.timestamp) >= l.ttl {
		l.cache.Remove(key)
		return nil, ErrMiss
	}
	return entry.value, nil
}

func (l *LRU) Set(_ context.Context, key string, value []byte) error {
	l.cache.Add(key, lruEntry{value: value, timestamp: l.now()})
	return nil
}

func (l *LRU) Delete(_ context.Context, key string) error {
	l.cache.Remove(key)
	return nil
}

func (l *LRU) Len() int {
	return l.cache.Len()
}
