package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"erp-onboarding/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultQueueKey     = "jobqueue:jobs"
	DefaultRecordPrefix = "jobqueue:job:"
	DefaultRecordTTL    = 7 * 24 * time.Hour
)

// RedisStore keeps the waiting list in a Redis list and mirrors each job
// record under its own key.
type RedisStore struct {
	rdb       redis.Cmdable
	queueKey  string
	recordKey string
	recordTTL time.Duration
}

func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{
		rdb:       rdb,
		queueKey:  DefaultQueueKey,
		recordKey: DefaultRecordPrefix,
		recordTTL: DefaultRecordTTL,
	}
}

func (s *RedisStore) Push(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return s.rdb.RPush(ctx, s.queueKey, data).Err()
}

func (s *RedisStore) Pop(ctx context.Context) (*models.Job, error) {
	data, err := s.rdb.LPop(ctx, s.queueKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

func (s *RedisStore) Save(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return s.rdb.Set(ctx, s.recordKey+job.ID, data, s.recordTTL).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Job, error) {
	data, err := s.rdb.Get(ctx, s.recordKey+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

func (s *RedisStore) Len(ctx context.Context) (int64, error) {
	return s.rdb.LLen(ctx, s.queueKey).Result()
}
