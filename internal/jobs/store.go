package jobs

import (
	"context"

	"erp-onboarding/internal/models"
)

// Store is the queue backing store. The list side (Push/Pop) holds jobs
// waiting to run; the record side (Save/Get) holds the latest state of
// every job for status lookups.
type Store interface {
	// Push appends job at the tail of the list.
	Push(ctx context.Context, job *models.Job) error
	// Pop removes and returns the oldest job, or nil when the list is empty.
	// Pop must be atomic so a job is never handed to two consumers.
	Pop(ctx context.Context) (*models.Job, error)
	// Save records the current state of job.
	Save(ctx context.Context, job *models.Job) error
	// Get returns the recorded job, or nil when unknown.
	Get(ctx context.Context, id string) (*models.Job, error)
	// Len reports how many jobs are waiting in the list.
	Len(ctx context.Context) (int64, error)
}
