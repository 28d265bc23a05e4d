package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"erp-onboarding/internal/metrics"
	"erp-onboarding/internal/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	maxErrorLength     = 500
)

// Handler runs one job. A returned error (or a panic) counts as a failed
// attempt.
type Handler func(ctx context.Context, payload json.RawMessage) error

// EnqueueOptions zero values mean three attempts and no delay.
type EnqueueOptions struct {
	MaxAttempts int
	Delay       time.Duration
}

// Queue owns the handler registry and every job record until the job
// reaches a terminal state.
type Queue struct {
	store     Store
	log       *zap.Logger
	clock     clockwork.Clock
	metrics   *metrics.Metrics
	immediate bool

	mu       sync.RWMutex
	handlers map[string]Handler

	inflight sync.WaitGroup
}

type Option func(*Queue)

func WithLogger(log *zap.Logger) Option {
	return func(q *Queue) { q.log = log.Named("jobqueue") }
}

func WithClock(clock clockwork.Clock) Option {
	return func(q *Queue) { q.clock = clock }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(q *Queue) { q.metrics = m }
}

// WithImmediateDispatch runs undelayed jobs as soon as they are enqueued
// instead of waiting for the worker to poll them.
func WithImmediateDispatch(enabled bool) Option {
	return func(q *Queue) { q.immediate = enabled }
}

func NewQueue(store Store, opts ...Option) *Queue {
	q := &Queue{
		store:    store,
		log:      zap.NewNop(),
		clock:    clockwork.NewRealClock(),
		handlers: make(map[string]Handler),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.metrics == nil {
		q.metrics = metrics.New()
	}
	return q
}

// Register binds jobType to h. Registering a type again replaces the
// previous handler.
func (q *Queue) Register(jobType string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.handlers[jobType]; exists {
		q.log.Debug("replacing job handler", zap.String("job_type", jobType))
	}
	q.handlers[jobType] = h
}

func (q *Queue) handler(jobType string) Handler {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.handlers[jobType]
}

// Clock returns the clock used for scheduling.
func (q *Queue) Clock() clockwork.Clock {
	return q.clock
}

// Enqueue creates a pending job and returns its ID. Store failures are
// logged and never returned; the only error is an unencodable payload.
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload any, opts EnqueueOptions) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", jobType, err)
	}

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}

	now := q.clock.Now().UTC()
	job := &models.Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Payload:     data,
		Status:      models.JobStatusPending,
		MaxAttempts: opts.MaxAttempts,
		Delay:       opts.Delay.Milliseconds(),
		CreatedAt:   now,
		ScheduledAt: now.Add(opts.Delay),
	}

	q.save(ctx, job)
	q.metrics.JobsEnqueued.WithLabelValues(jobType).Inc()

	if q.immediate && opts.Delay == 0 {
		q.log.Debug("dispatching job immediately", zap.String("job_id", job.ID), zap.String("job_type", jobType))
		q.dispatch(context.WithoutCancel(ctx), job)
		return job.ID, nil
	}

	q.push(ctx, job)
	q.log.Debug("job enqueued", zap.String("job_id", job.ID), zap.String("job_type", jobType),
		zap.Time("scheduled_at", job.ScheduledAt))
	return job.ID, nil
}

// Dequeue pops the oldest job. A job that is not due yet goes back to the
// tail and nil is returned.
func (q *Queue) Dequeue(ctx context.Context) (*models.Job, error) {
	job, err := q.store.Pop(ctx)
	if err != nil {
		return nil, fmt.Errorf("pop job: %w", err)
	}
	if job == nil {
		return nil, nil
	}
	if job.ScheduledAt.After(q.clock.Now()) {
		q.push(ctx, job)
		return nil, nil
	}
	return job, nil
}

// ProcessNext evaluates a single job synchronously. It reports whether a
// job was executed.
func (q *Queue) ProcessNext(ctx context.Context) (bool, error) {
	job, err := q.Dequeue(ctx)
	if err != nil || job == nil {
		return false, err
	}
	q.Execute(ctx, job)
	return true, nil
}

// Execute runs one attempt of job and records the outcome. Failed attempts
// below MaxAttempts are re-enqueued with an exponential delay.
func (q *Queue) Execute(ctx context.Context, job *models.Job) {
	log := q.log.With(zap.String("job_id", job.ID), zap.String("job_type", job.Type))

	h := q.handler(job.Type)
	if h == nil {
		q.metrics.JobsDropped.WithLabelValues(job.Type).Inc()
		log.Error("no handler registered for job type, dropping job")
		return
	}

	started := q.clock.Now().UTC()
	job.Status = models.JobStatusProcessing
	job.Attempts++
	job.StartedAt = &started
	q.save(ctx, job)

	err := runHandler(ctx, h, job.Payload)
	q.metrics.JobDuration.WithLabelValues(job.Type).Observe(q.clock.Since(started).Seconds())

	now := q.clock.Now().UTC()
	if err == nil {
		job.Status = models.JobStatusCompleted
		job.CompletedAt = &now
		q.save(ctx, job)
		q.metrics.JobsCompleted.WithLabelValues(job.Type).Inc()
		log.Info("job completed", zap.Int("attempt", job.Attempts))
		return
	}

	job.LastError = truncateError(err.Error())

	if job.Attempts < job.MaxAttempts {
		delay := Backoff(job.Attempts)
		job.Status = models.JobStatusPending
		job.ScheduledAt = now.Add(delay)
		q.save(ctx, job)
		q.push(ctx, job)
		q.metrics.JobsRetried.WithLabelValues(job.Type).Inc()
		log.Warn("job failed, retry scheduled",
			zap.Int("attempt", job.Attempts),
			zap.Int("max_attempts", job.MaxAttempts),
			zap.Duration("retry_in", delay),
			zap.Error(err))
		return
	}

	job.Status = models.JobStatusFailed
	job.FailedAt = &now
	q.save(ctx, job)
	q.metrics.JobsFailed.WithLabelValues(job.Type).Inc()
	log.Error("job failed permanently", zap.Int("attempts", job.Attempts), zap.Error(err))
}

// GetStatus returns pending for unknown IDs.
func (q *Queue) GetStatus(ctx context.Context, id string) models.JobStatus {
	job, err := q.store.Get(ctx, id)
	if err != nil || job == nil {
		return models.JobStatusPending
	}
	return job.Status
}

// GetJob returns the recorded job or nil when unknown.
func (q *Queue) GetJob(ctx context.Context, id string) (*models.Job, error) {
	return q.store.Get(ctx, id)
}

// Pending reports how many jobs are waiting in the store.
func (q *Queue) Pending(ctx context.Context) (int64, error) {
	return q.store.Len(ctx)
}

// Wait blocks until every immediately dispatched job has finished.
func (q *Queue) Wait() {
	q.inflight.Wait()
}

func (q *Queue) dispatch(ctx context.Context, job *models.Job) {
	q.inflight.Add(1)
	go func() {
		defer q.inflight.Done()
		q.Execute(ctx, job)
	}()
}

func (q *Queue) save(ctx context.Context, job *models.Job) {
	if err := q.store.Save(ctx, job); err != nil {
		q.log.Error("failed to save job record", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (q *Queue) push(ctx context.Context, job *models.Job) {
	if err := q.store.Push(ctx, job); err != nil {
		q.log.Error("failed to push job", zap.String("job_id", job.ID), zap.Error(err))
	}
}

// MaxBackoff caps the retry delay.
const MaxBackoff = 24 * time.Hour

// Backoff returns 2^attempts seconds, at most MaxBackoff.
func Backoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	// 2^17 s already exceeds MaxBackoff; larger shifts would overflow.
	if attempts > 16 {
		return MaxBackoff
	}
	return min(time.Duration(1<<attempts)*time.Second, MaxBackoff)
}

func runHandler(ctx context.Context, h Handler, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, payload)
}

func truncateError(msg string) string {
	if len(msg) <= maxErrorLength {
		return msg
	}
	cut := maxErrorLength
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
