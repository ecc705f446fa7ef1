package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	customerrors "github.com/llamino/UrlShortener/internal/errors"
)

// MemoryCache is an in-process Cache implementation with per-key TTLs. It
// backs unit tests and local development without a Redis instance; the
// production deployment uses RedisCache.
type MemoryCache struct {
	mu     sync.Mutex
	values map[string]memoryEntry
	hashes map[string]map[string]int64
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		values: make(map[string]memoryEntry),
		hashes: make(map[string]map[string]int64),
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.values[key]
	if !ok {
		return "", customerrors.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.values, key)
		return "", customerrors.ErrCacheMiss
	}
	return entry.value, nil
}

func (m *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.values[key] = entry
	return nil
}

func (m *MemoryCache) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	delete(m.hashes, key)
	return nil
}

func (m *MemoryCache) HIncrBy(_ context.Context, key, field string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hash, ok := m.hashes[key]
	if !ok {
		hash = make(map[string]int64)
		m.hashes[key] = hash
	}
	hash[field] += delta
	return hash[field], nil
}

func (m *MemoryCache) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(map[string]string)
	for field, val := range m.hashes[key] {
		result[field] = strconv.FormatInt(val, 10)
	}
	return result, nil
}

func (m *MemoryCache) Rename(_ context.Context, src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hash, ok := m.hashes[src]; ok {
		m.hashes[dst] = hash
		delete(m.hashes, src)
		return nil
	}
	if entry, ok := m.values[src]; ok {
		m.values[dst] = entry
		delete(m.values, src)
		return nil
	}
	return customerrors.ErrCacheMiss
}

func (m *MemoryCache) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.values[key]
	expired := ok && !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt)
	if !ok || expired {
		m.values[key] = memoryEntry{value: "1", expiresAt: time.Now().Add(ttl)}
		return 1, nil
	}

	count, _ := strconv.ParseInt(entry.value, 10, 64)
	count++
	entry.value = strconv.FormatInt(count, 10)
	m.values[key] = entry
	return count, nil
}

func (m *MemoryCache) Ping(_ context.Context) error {
	return nil
}
