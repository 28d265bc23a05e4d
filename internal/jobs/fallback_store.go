package jobs

import (
	"context"

	"erp-onboarding/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// FallbackStore prefers a durable primary store and degrades to an
// in-memory store whenever the primary fails. Each degradation is logged
// and counted; callers never see the primary's error.
type FallbackStore struct {
	primary   Store
	fallback  *MemoryStore
	log       *zap.Logger
	fallbacks *prometheus.CounterVec
}

func NewFallbackStore(primary Store, fallback *MemoryStore, log *zap.Logger, fallbacks *prometheus.CounterVec) *FallbackStore {
	return &FallbackStore{
		primary:   primary,
		fallback:  fallback,
		log:       log.Named("jobstore"),
		fallbacks: fallbacks,
	}
}

func (s *FallbackStore) degrade(op string, err error, fields ...zap.Field) {
	s.fallbacks.WithLabelValues(op).Inc()
	s.log.Warn("primary job store failed, using in-memory fallback",
		append(fields, zap.String("op", op), zap.Error(err))...)
}

func (s *FallbackStore) Push(ctx context.Context, job *models.Job) error {
	if err := s.primary.Push(ctx, job); err != nil {
		s.degrade("push", err, zap.String("job_id", job.ID))
		return s.fallback.Push(ctx, job)
	}
	return nil
}

// Pop drains jobs that were diverted to memory before asking the primary.
func (s *FallbackStore) Pop(ctx context.Context) (*models.Job, error) {
	if job, _ := s.fallback.Pop(ctx); job != nil {
		return job, nil
	}
	job, err := s.primary.Pop(ctx)
	if err != nil {
		s.degrade("pop", err)
		return nil, nil
	}
	return job, nil
}

func (s *FallbackStore) Save(ctx context.Context, job *models.Job) error {
	if err := s.primary.Save(ctx, job); err != nil {
		s.degrade("save", err, zap.String("job_id", job.ID))
		return s.fallback.Save(ctx, job)
	}
	s.fallback.forget(job.ID)
	return nil
}

// Get reads memory first; it only holds records the primary rejected.
func (s *FallbackStore) Get(ctx context.Context, id string) (*models.Job, error) {
	if job, _ := s.fallback.Get(ctx, id); job != nil {
		return job, nil
	}
	job, err := s.primary.Get(ctx, id)
	if err != nil {
		s.degrade("get", err, zap.String("job_id", id))
		return nil, nil
	}
	return job, nil
}

func (s *FallbackStore) Len(ctx context.Context) (int64, error) {
	mem, _ := s.fallback.Len(ctx)
	n, err := s.primary.Len(ctx)
	if err != nil {
		s.degrade("len", err)
		return mem, nil
	}
	return mem + n, nil
}
