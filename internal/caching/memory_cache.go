package caching

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type memoryCacheService struct {
	cache *gocache.Cache
	mu    sync.Mutex
}

// NewMemoryCacheService is used when no Redis URL is configured. State is
// lost on restart.
func NewMemoryCacheService(cleanupInterval time.Duration) CacheService {
	return &memoryCacheService{
		cache: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (m *memoryCacheService) GetBytes(_ context.Context, key string) ([]byte, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("cache key %q does not hold bytes", key)
	}
	return append([]byte(nil), b...), nil
}

func (m *memoryCacheService) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.cache.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

func (m *memoryCacheService) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

func (m *memoryCacheService) HSet(_ context.Context, key, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := map[string]string{}
	if v, ok := m.cache.Get(key); ok {
		if existing, ok := v.(map[string]string); ok {
			hash = existing
		}
	}
	hash[field] = value
	m.cache.Set(key, hash, gocache.NoExpiration)
	return nil
}

func (m *memoryCacheService) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := map[string]string{}
	if v, ok := m.cache.Get(key); ok {
		if hash, ok := v.(map[string]string); ok {
			for k, val := range hash {
				out[k] = val
			}
		}
	}
	return out, nil
}

func (m *memoryCacheService) IsRateLimited(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := fmt.Sprintf("ratelimit:%s", key)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.cache.Add(cacheKey, 1, window); err == nil {
		return 1 > limit, nil
	}
	count, err := m.cache.IncrementInt(cacheKey, 1)
	if err != nil {
		return false, err
	}
	return count > limit, nil
}

func (m *memoryCacheService) Ping(context.Context) error {
	return nil
}
