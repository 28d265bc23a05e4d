package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"erp-onboarding/internal/metrics"
	"erp-onboarding/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

type QueueTestSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *clockwork.FakeClock
	store   *MemoryStore
	metrics *metrics.Metrics
	queue   *Queue
}

func (s *QueueTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	s.store = NewMemoryStore()
	s.metrics = metrics.New()
	s.queue = NewQueue(s.store,
		WithLogger(zaptest.NewLogger(s.T())),
		WithClock(s.clock),
		WithMetrics(s.metrics),
	)
}

func TestQueueTestSuite(t *testing.T) {
	suite.Run(t, new(QueueTestSuite))
}

func (s *QueueTestSuite) job(id string) *models.Job {
	job, err := s.queue.GetJob(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(job)
	return job
}

func (s *QueueTestSuite) TestEnqueueDefaults() {
	id, err := s.queue.Enqueue(s.ctx, "seed-tenant-data", map[string]string{"tenantId": "t1"}, EnqueueOptions{})
	s.Require().NoError(err)

	job := s.job(id)
	s.Equal(models.JobStatusPending, job.Status)
	s.Equal(0, job.Attempts)
	s.Equal(DefaultMaxAttempts, job.MaxAttempts)
	s.Equal(int64(0), job.Delay)
	s.Equal(s.clock.Now(), job.ScheduledAt)
	s.JSONEq(`{"tenantId":"t1"}`, string(job.Payload))

	n, _ := s.queue.Pending(s.ctx)
	s.Equal(int64(1), n)
}

func (s *QueueTestSuite) TestEnqueueRejectsUnencodablePayload() {
	_, err := s.queue.Enqueue(s.ctx, "track-event", make(chan int), EnqueueOptions{})
	s.Error(err)
}

func (s *QueueTestSuite) TestRegisterLastWins() {
	var first, second int32
	s.queue.Register("track-event", func(context.Context, json.RawMessage) error {
		atomic.AddInt32(&first, 1)
		return nil
	})
	s.queue.Register("track-event", func(context.Context, json.RawMessage) error {
		atomic.AddInt32(&second, 1)
		return nil
	})

	_, err := s.queue.Enqueue(s.ctx, "track-event", nil, EnqueueOptions{})
	s.Require().NoError(err)

	ran, err := s.queue.ProcessNext(s.ctx)
	s.Require().NoError(err)
	s.True(ran)
	s.Equal(int32(0), atomic.LoadInt32(&first))
	s.Equal(int32(1), atomic.LoadInt32(&second))
}

func (s *QueueTestSuite) TestDelayedJobIsNotExecutedEarly() {
	var calls int32
	s.queue.Register("trial-expiration-reminder", func(context.Context, json.RawMessage) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	id, err := s.queue.Enqueue(s.ctx, "trial-expiration-reminder", nil, EnqueueOptions{Delay: 5 * time.Second})
	s.Require().NoError(err)
	s.Equal(int64(5000), s.job(id).Delay)

	ran, err := s.queue.ProcessNext(s.ctx)
	s.NoError(err)
	s.False(ran)
	s.Equal(int32(0), atomic.LoadInt32(&calls))

	n, _ := s.queue.Pending(s.ctx)
	s.Equal(int64(1), n, "job must be pushed back")

	s.clock.Advance(5 * time.Second)
	ran, err = s.queue.ProcessNext(s.ctx)
	s.NoError(err)
	s.True(ran)
	s.Equal(models.JobStatusCompleted, s.queue.GetStatus(s.ctx, id))
}

func (s *QueueTestSuite) TestRetryWithExponentialBackoff() {
	var calls int32
	s.queue.Register("provision-storage", func(context.Context, json.RawMessage) error {
		if atomic.AddInt32(&calls, 1) <= 2 {
			return errors.New("bucket unavailable")
		}
		return nil
	})

	id, err := s.queue.Enqueue(s.ctx, "provision-storage", nil, EnqueueOptions{MaxAttempts: 3})
	s.Require().NoError(err)

	// First attempt fails: retry in 2s.
	ran, _ := s.queue.ProcessNext(s.ctx)
	s.True(ran)
	job := s.job(id)
	s.Equal(models.JobStatusPending, job.Status)
	s.Equal(1, job.Attempts)
	s.Equal(2*time.Second, job.ScheduledAt.Sub(s.clock.Now()))
	s.Equal("bucket unavailable", job.LastError)

	// Not due yet.
	s.clock.Advance(time.Second)
	ran, _ = s.queue.ProcessNext(s.ctx)
	s.False(ran)

	// Second attempt fails: retry in 4s.
	s.clock.Advance(time.Second)
	ran, _ = s.queue.ProcessNext(s.ctx)
	s.True(ran)
	job = s.job(id)
	s.Equal(2, job.Attempts)
	s.Equal(4*time.Second, job.ScheduledAt.Sub(s.clock.Now()))

	s.clock.Advance(4 * time.Second)
	ran, _ = s.queue.ProcessNext(s.ctx)
	s.True(ran)

	job = s.job(id)
	s.Equal(models.JobStatusCompleted, job.Status)
	s.Equal(3, job.Attempts)
	s.NotNil(job.CompletedAt)
	s.Equal(int32(3), atomic.LoadInt32(&calls))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.JobsRetried.WithLabelValues("provision-storage")))

	n, _ := s.queue.Pending(s.ctx)
	s.Equal(int64(0), n)
}

func (s *QueueTestSuite) TestExhaustedJobFails() {
	var calls int32
	s.queue.Register("create-stripe-customer", func(context.Context, json.RawMessage) error {
		n := atomic.AddInt32(&calls, 1)
		return errors.New("stripe timeout " + string(rune('0'+n)))
	})

	id, err := s.queue.Enqueue(s.ctx, "create-stripe-customer", nil, EnqueueOptions{MaxAttempts: 3})
	s.Require().NoError(err)

	for i := 0; i < 10; i++ {
		_, _ = s.queue.ProcessNext(s.ctx)
		s.clock.Advance(10 * time.Second)
	}

	job := s.job(id)
	s.Equal(models.JobStatusFailed, job.Status)
	s.Equal(3, job.Attempts)
	s.Equal("stripe timeout 3", job.LastError)
	s.NotNil(job.FailedAt)
	s.Equal(int32(3), atomic.LoadInt32(&calls))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.JobsFailed.WithLabelValues("create-stripe-customer")))
}

func (s *QueueTestSuite) TestUnknownJobTypeIsDropped() {
	id, err := s.queue.Enqueue(s.ctx, "mystery", nil, EnqueueOptions{})
	s.Require().NoError(err)

	s.NotPanics(func() {
		ran, err := s.queue.ProcessNext(s.ctx)
		s.NoError(err)
		s.True(ran)
	})

	s.Equal(models.JobStatusPending, s.queue.GetStatus(s.ctx, id))
	s.Equal(0, s.job(id).Attempts)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.JobsDropped.WithLabelValues("mystery")))

	n, _ := s.queue.Pending(s.ctx)
	s.Equal(int64(0), n, "dropped job is not retried")
}

func (s *QueueTestSuite) TestGetStatusUnknownJob() {
	s.Equal(models.JobStatusPending, s.queue.GetStatus(s.ctx, "does-not-exist"))
}

func (s *QueueTestSuite) TestStatusTransitions() {
	observed := make(chan models.JobStatus, 1)
	var id string
	s.queue.Register("seed-tenant-data", func(ctx context.Context, _ json.RawMessage) error {
		observed <- s.queue.GetStatus(ctx, id)
		return nil
	})

	var err error
	id, err = s.queue.Enqueue(s.ctx, "seed-tenant-data", map[string]string{"tenantId": "t1"}, EnqueueOptions{})
	s.Require().NoError(err)
	s.Equal(models.JobStatusPending, s.queue.GetStatus(s.ctx, id))

	_, _ = s.queue.ProcessNext(s.ctx)

	s.Equal(models.JobStatusProcessing, <-observed)
	s.Equal(models.JobStatusCompleted, s.queue.GetStatus(s.ctx, id))
	s.Equal(1, s.job(id).Attempts)
}

func (s *QueueTestSuite) TestHandlerPanicCountsAsFailure() {
	s.queue.Register("track-event", func(context.Context, json.RawMessage) error {
		panic("nil map")
	})

	id, _ := s.queue.Enqueue(s.ctx, "track-event", nil, EnqueueOptions{MaxAttempts: 1})
	s.NotPanics(func() { _, _ = s.queue.ProcessNext(s.ctx) })

	job := s.job(id)
	s.Equal(models.JobStatusFailed, job.Status)
	s.Contains(job.LastError, "nil map")
}

func (s *QueueTestSuite) TestHandlerReceivesPayload() {
	var got map[string]string
	s.queue.Register("seed-tenant-data", func(_ context.Context, payload json.RawMessage) error {
		return json.Unmarshal(payload, &got)
	})

	_, _ = s.queue.Enqueue(s.ctx, "seed-tenant-data", map[string]string{"tenantId": "t1", "companyName": "Acme"}, EnqueueOptions{})
	_, _ = s.queue.ProcessNext(s.ctx)

	s.Equal(map[string]string{"tenantId": "t1", "companyName": "Acme"}, got)
}

func TestImmediateDispatch(t *testing.T) {
	store := NewMemoryStore()
	q := NewQueue(store, WithImmediateDispatch(true), WithLogger(zaptest.NewLogger(t)))

	var calls int32
	q.Register("track-event", func(context.Context, json.RawMessage) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	id, err := q.Enqueue(context.Background(), "track-event", nil, EnqueueOptions{})
	require.NoError(t, err)
	q.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, models.JobStatusCompleted, q.GetStatus(context.Background(), id))

	n, _ := store.Len(context.Background())
	assert.Equal(t, int64(0), n, "immediately dispatched jobs never enter the list")

	// Delayed jobs still wait for the worker.
	_, err = q.Enqueue(context.Background(), "track-event", nil, EnqueueOptions{Delay: time.Minute})
	require.NoError(t, err)
	q.Wait()
	n, _ = store.Len(context.Background())
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, Backoff(1))
	assert.Equal(t, 4*time.Second, Backoff(2))
	assert.Equal(t, 8*time.Second, Backoff(3))
	assert.Equal(t, 65536*time.Second, Backoff(16))

	for _, attempts := range []int{17, 34, 63, 64, 1000} {
		assert.Equal(t, MaxBackoff, Backoff(attempts), "attempts=%d", attempts)
	}
	assert.Equal(t, time.Second, Backoff(-1))
}

func TestTruncateError(t *testing.T) {
	assert.Equal(t, "short", truncateError("short"))
	assert.Len(t, truncateError(strings.Repeat("x", 800)), maxErrorLength)

	multibyte := strings.Repeat("x", maxErrorLength-1) + "é"
	out := truncateError(multibyte)
	assert.Equal(t, strings.Repeat("x", maxErrorLength-1), out)
}
