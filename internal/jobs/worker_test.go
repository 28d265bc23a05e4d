package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"erp-onboarding/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func startWorker(t *testing.T, q *Queue, clock *clockwork.FakeClock) *Worker {
	t.Helper()
	w := NewWorker(q, WorkerConfig{Name: "test", PollInterval: time.Second}, zaptest.NewLogger(t))
	require.NoError(t, w.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1), "worker ticker not registered")
	return w
}

func waitStatus(t *testing.T, q *Queue, id string, want models.JobStatus) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return q.GetStatus(context.Background(), id) == want
	}, 2*time.Second, 5*time.Millisecond, "job %s never reached %s", id, want)
}

func TestWorkerEvaluatesOneJobPerTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := NewQueue(NewMemoryStore(), WithClock(clock), WithLogger(zaptest.NewLogger(t)))
	q.Register("seed-tenant-data", func(context.Context, json.RawMessage) error { return nil })

	first, _ := q.Enqueue(context.Background(), "seed-tenant-data", nil, EnqueueOptions{})
	second, _ := q.Enqueue(context.Background(), "seed-tenant-data", nil, EnqueueOptions{})

	w := startWorker(t, q, clock)
	defer func() { _ = w.Stop(context.Background()) }()

	clock.Advance(time.Second)
	waitStatus(t, q, first, models.JobStatusCompleted)
	assert.Equal(t, models.JobStatusPending, q.GetStatus(context.Background(), second))

	clock.Advance(time.Second)
	waitStatus(t, q, second, models.JobStatusCompleted)
}

func TestWorkerKeepsPollingWhileHandlerHangs(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := NewQueue(NewMemoryStore(), WithClock(clock), WithLogger(zaptest.NewLogger(t)))

	release := make(chan struct{})
	q.Register("provision-storage", func(context.Context, json.RawMessage) error {
		<-release
		return nil
	})
	q.Register("track-event", func(context.Context, json.RawMessage) error { return nil })

	hung, _ := q.Enqueue(context.Background(), "provision-storage", nil, EnqueueOptions{})
	next, _ := q.Enqueue(context.Background(), "track-event", nil, EnqueueOptions{})

	w := startWorker(t, q, clock)

	clock.Advance(time.Second)
	waitStatus(t, q, hung, models.JobStatusProcessing)

	clock.Advance(time.Second)
	waitStatus(t, q, next, models.JobStatusCompleted)

	// Stop waits for the hung job until the context gives up.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Stop(ctx), context.DeadlineExceeded)
	assert.False(t, w.IsRunning())

	close(release)
	waitStatus(t, q, hung, models.JobStatusCompleted)
}

func TestWorkerSurvivesUnknownJobType(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := NewQueue(NewMemoryStore(), WithClock(clock), WithLogger(zaptest.NewLogger(t)))
	q.Register("track-event", func(context.Context, json.RawMessage) error { return nil })

	unknown, _ := q.Enqueue(context.Background(), "legacy-job", nil, EnqueueOptions{})
	known, _ := q.Enqueue(context.Background(), "track-event", nil, EnqueueOptions{})

	w := startWorker(t, q, clock)
	defer func() { _ = w.Stop(context.Background()) }()

	clock.Advance(time.Second)
	assert.Eventually(t, func() bool {
		n, _ := q.Pending(context.Background())
		return n == 1
	}, 2*time.Second, 5*time.Millisecond)

	clock.Advance(time.Second)
	waitStatus(t, q, known, models.JobStatusCompleted)

	assert.True(t, w.IsRunning())
	assert.Equal(t, models.JobStatusPending, q.GetStatus(context.Background(), unknown))
}

func TestWorkerStartIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := NewQueue(NewMemoryStore(), WithClock(clock))
	w := startWorker(t, q, clock)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop(context.Background()))
	require.NoError(t, w.Stop(context.Background()))
	assert.False(t, w.IsRunning())
}
