package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"erp-onboarding/internal/caching"
)

// IdempotencyStore keeps the outcome of a create request for replay.
type IdempotencyStore struct {
	cache caching.CacheService
	ttl   time.Duration
}

func NewIdempotencyStore(cache caching.CacheService, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{cache: cache, ttl: ttl}
}

func idempotencyKey(key string) string {
	return "onboarding:idempotency:" + key
}

// Get returns nil, nil when key has no stored result. A record that no
// longer decodes is evicted and reported as a miss.
func (s *IdempotencyStore) Get(ctx context.Context, key string) (*CreateTenantResult, error) {
	data, err := s.cache.GetBytes(ctx, idempotencyKey(key))
	if err != nil {
		return nil, fmt.Errorf("read idempotency record: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	var result CreateTenantResult
	if err := json.Unmarshal(data, &result); err != nil {
		if err := s.cache.Delete(ctx, idempotencyKey(key)); err != nil {
			return nil, fmt.Errorf("evict idempotency record: %w", err)
		}
		return nil, nil
	}
	return &result, nil
}

// Put stores result without the temporary password.
func (s *IdempotencyStore) Put(ctx context.Context, key string, result *CreateTenantResult) error {
	stored := *result
	stored.TemporaryPassword = ""
	stored.Cached = false
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	return s.cache.SetBytes(ctx, idempotencyKey(key), data, s.ttl)
}
