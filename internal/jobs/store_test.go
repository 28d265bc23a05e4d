package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"erp-onboarding/internal/metrics"
	"erp-onboarding/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

func newJob(id string) *models.Job {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &models.Job{
		ID:          id,
		Type:        "seed-tenant-data",
		Payload:     json.RawMessage(`{"tenantId":"t1"}`),
		Status:      models.JobStatusPending,
		MaxAttempts: 3,
		CreatedAt:   now,
		ScheduledAt: now,
	}
}

// StoreContractSuite checks FIFO and record semantics shared by all stores.
type StoreContractSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
	ctx      context.Context
}

func (s *StoreContractSuite) SetupTest() {
	s.store = s.newStore(s.T())
	s.ctx = context.Background()
}

func TestMemoryStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func(*testing.T) Store { return NewMemoryStore() }})
}

func TestRedisStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func(t *testing.T) Store {
		mr := miniredis.RunT(t)
		return NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	}})
}

func TestFallbackStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func(t *testing.T) Store {
		mr := miniredis.RunT(t)
		primary := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
		return NewFallbackStore(primary, NewMemoryStore(), zaptest.NewLogger(t), metrics.New().StoreFallbacks)
	}})
}

func (s *StoreContractSuite) TestPopEmpty() {
	job, err := s.store.Pop(s.ctx)
	s.NoError(err)
	s.Nil(job)
}

func (s *StoreContractSuite) TestPopIsFIFO() {
	for _, id := range []string{"a", "b", "c"} {
		s.Require().NoError(s.store.Push(s.ctx, newJob(id)))
	}
	n, err := s.store.Len(s.ctx)
	s.NoError(err)
	s.Equal(int64(3), n)

	for _, want := range []string{"a", "b", "c"} {
		job, err := s.store.Pop(s.ctx)
		s.Require().NoError(err)
		s.Require().NotNil(job)
		s.Equal(want, job.ID)
	}
}

func (s *StoreContractSuite) TestPushedJobRoundTrips() {
	orig := newJob("a")
	s.Require().NoError(s.store.Push(s.ctx, orig))

	job, err := s.store.Pop(s.ctx)
	s.Require().NoError(err)
	s.Equal(orig.Type, job.Type)
	s.JSONEq(string(orig.Payload), string(job.Payload))
	s.True(orig.ScheduledAt.Equal(job.ScheduledAt))
	s.Equal(orig.MaxAttempts, job.MaxAttempts)
}

func (s *StoreContractSuite) TestSaveAndGet() {
	missing, err := s.store.Get(s.ctx, "nope")
	s.NoError(err)
	s.Nil(missing)

	job := newJob("a")
	s.Require().NoError(s.store.Save(s.ctx, job))

	job.Status = models.JobStatusProcessing
	job.Attempts = 1
	s.Require().NoError(s.store.Save(s.ctx, job))

	got, err := s.store.Get(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal(models.JobStatusProcessing, got.Status)
	s.Equal(1, got.Attempts)
}

func (s *StoreContractSuite) TestSaveCopiesRecord() {
	job := newJob("a")
	s.Require().NoError(s.store.Save(s.ctx, job))
	job.Status = models.JobStatusFailed

	got, err := s.store.Get(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal(models.JobStatusPending, got.Status)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Push(ctx context.Context, job *models.Job) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockStore) Pop(ctx context.Context) (*models.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *MockStore) Save(ctx context.Context, job *models.Job) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockStore) Get(ctx context.Context, id string) (*models.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *MockStore) Len(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestFallbackStoreDegradesOnPrimaryFailure(t *testing.T) {
	ctx := context.Background()
	primary := new(MockStore)
	m := metrics.New()
	store := NewFallbackStore(primary, NewMemoryStore(), zaptest.NewLogger(t), m.StoreFallbacks)

	down := errors.New("dial tcp: connection refused")
	primary.On("Push", mock.Anything, mock.Anything).Return(down)
	primary.On("Save", mock.Anything, mock.Anything).Return(down)
	primary.On("Pop", mock.Anything).Return(nil, down)
	primary.On("Len", mock.Anything).Return(int64(0), down)

	require.NoError(t, store.Push(ctx, newJob("a")))
	require.NoError(t, store.Save(ctx, newJob("a")))

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)

	job, err := store.Pop(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "a", job.ID)

	// Memory is drained, so the primary is asked and fails quietly.
	job, err = store.Pop(ctx)
	assert.NoError(t, err)
	assert.Nil(t, job)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreFallbacks.WithLabelValues("push")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreFallbacks.WithLabelValues("save")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreFallbacks.WithLabelValues("pop")))
	primary.AssertExpectations(t)
}

func TestFallbackStoreRecoversWhenPrimaryReturns(t *testing.T) {
	ctx := context.Background()
	primary := new(MockStore)
	memory := NewMemoryStore()
	store := NewFallbackStore(primary, memory, zaptest.NewLogger(t), metrics.New().StoreFallbacks)

	job := newJob("a")
	primary.On("Save", mock.Anything, mock.Anything).Return(errors.New("timeout")).Once()
	require.NoError(t, store.Save(ctx, job))

	stale, _ := memory.Get(ctx, "a")
	require.NotNil(t, stale)

	job.Status = models.JobStatusCompleted
	primary.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	primary.On("Get", mock.Anything, "a").Return(job, nil)
	require.NoError(t, store.Save(ctx, job))

	stale, _ = memory.Get(ctx, "a")
	assert.Nil(t, stale, "record handed back to the primary")

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
}

func TestQueueSurvivesRedisOutage(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	m := metrics.New()
	store := NewFallbackStore(NewRedisStore(client), NewMemoryStore(), zaptest.NewLogger(t), m.StoreFallbacks)
	q := NewQueue(store, WithMetrics(m), WithLogger(zaptest.NewLogger(t)))

	ran := false
	q.Register("track-event", func(context.Context, json.RawMessage) error {
		ran = true
		return nil
	})

	mr.Close()

	id, err := q.Enqueue(ctx, "track-event", nil, EnqueueOptions{})
	require.NoError(t, err)

	processed, err := q.ProcessNext(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.True(t, ran)
	assert.Equal(t, models.JobStatusCompleted, q.GetStatus(ctx, id))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.StoreFallbacks.WithLabelValues("push")), 1.0)
}
