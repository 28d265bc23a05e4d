package caching

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// CacheServiceTestSuite runs the same contract against both implementations.
type CacheServiceTestSuite struct {
	suite.Suite
	newCache func(t *testing.T) (CacheService, func(time.Duration))
	cache    CacheService
	advance  func(time.Duration)
	ctx      context.Context
}

func (s *CacheServiceTestSuite) SetupTest() {
	s.cache, s.advance = s.newCache(s.T())
	s.ctx = context.Background()
}

func TestRedisCacheService(t *testing.T) {
	suite.Run(t, &CacheServiceTestSuite{newCache: func(t *testing.T) (CacheService, func(time.Duration)) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewRedisCacheService(client), mr.FastForward
	}})
}

func TestMemoryCacheService(t *testing.T) {
	suite.Run(t, &CacheServiceTestSuite{newCache: func(t *testing.T) (CacheService, func(time.Duration)) {
		return NewMemoryCacheService(time.Minute), func(d time.Duration) { time.Sleep(d) }
	}})
}

func (s *CacheServiceTestSuite) TestGetBytesMissingKey() {
	val, err := s.cache.GetBytes(s.ctx, "missing")
	s.NoError(err)
	s.Nil(val)
}

func (s *CacheServiceTestSuite) TestSetBytesRoundTrip() {
	require.NoError(s.T(), s.cache.SetBytes(s.ctx, "k", []byte(`{"a":1}`), time.Hour))

	val, err := s.cache.GetBytes(s.ctx, "k")
	s.NoError(err)
	s.Equal(`{"a":1}`, string(val))

	require.NoError(s.T(), s.cache.Delete(s.ctx, "k"))
	val, err = s.cache.GetBytes(s.ctx, "k")
	s.NoError(err)
	s.Nil(val)
}

func (s *CacheServiceTestSuite) TestSetBytesExpires() {
	require.NoError(s.T(), s.cache.SetBytes(s.ctx, "short", []byte("v"), 50*time.Millisecond))
	s.advance(100 * time.Millisecond)

	val, err := s.cache.GetBytes(s.ctx, "short")
	s.NoError(err)
	s.Nil(val)
}

func (s *CacheServiceTestSuite) TestHashFields() {
	all, err := s.cache.HGetAll(s.ctx, "tenant:t1:provisioning")
	s.NoError(err)
	s.Empty(all)

	require.NoError(s.T(), s.cache.HSet(s.ctx, "tenant:t1:provisioning", "storage", "processing"))
	require.NoError(s.T(), s.cache.HSet(s.ctx, "tenant:t1:provisioning", "storage", "completed"))
	require.NoError(s.T(), s.cache.HSet(s.ctx, "tenant:t1:provisioning", "billing", "skipped"))

	all, err = s.cache.HGetAll(s.ctx, "tenant:t1:provisioning")
	s.NoError(err)
	s.Equal(map[string]string{"storage": "completed", "billing": "skipped"}, all)
}

func (s *CacheServiceTestSuite) TestIsRateLimited() {
	for i := 0; i < 3; i++ {
		limited, err := s.cache.IsRateLimited(s.ctx, "onboard:10.0.0.1", 3, time.Hour)
		s.NoError(err)
		s.False(limited, "request %d", i+1)
	}

	limited, err := s.cache.IsRateLimited(s.ctx, "onboard:10.0.0.1", 3, time.Hour)
	s.NoError(err)
	s.True(limited)

	limited, err = s.cache.IsRateLimited(s.ctx, "onboard:10.0.0.2", 3, time.Hour)
	s.NoError(err)
	s.False(limited)
}

func TestRedisRateLimitKeyAlwaysExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewRedisCacheService(client)
	ctx := context.Background()

	_, err := cache.IsRateLimited(ctx, "onboard:10.0.0.1", 2, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:onboard:10.0.0.1"))

	// Later hits keep the window that the first hit opened.
	mr.FastForward(20 * time.Second)
	_, err = cache.IsRateLimited(ctx, "onboard:10.0.0.1", 2, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, mr.TTL("ratelimit:onboard:10.0.0.1"))

	// A counter left without a TTL gets one on the next hit.
	require.NoError(t, mr.Set("ratelimit:onboard:10.0.0.2", "5"))
	limited, err := cache.IsRateLimited(ctx, "onboard:10.0.0.2", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, limited)
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:onboard:10.0.0.2"))

	mr.FastForward(time.Minute)
	limited, err = cache.IsRateLimited(ctx, "onboard:10.0.0.2", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, limited)
}

func TestMemoryCacheGetBytesReturnsCopy(t *testing.T) {
	cache := NewMemoryCacheService(time.Minute)
	ctx := context.Background()

	orig := []byte("abc")
	require.NoError(t, cache.SetBytes(ctx, "k", orig, 0))
	orig[0] = 'x'

	got, err := cache.GetBytes(ctx, "k")
	require.NoError(t, err)
	got[1] = 'y'

	again, _ := cache.GetBytes(ctx, "k")
	assert.Equal(t, "abc", string(again))
}
