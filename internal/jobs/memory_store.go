package jobs

import (
	"context"
	"sync"

	"erp-onboarding/internal/models"
)

// MemoryStore keeps jobs in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu      sync.Mutex
	list    []*models.Job
	records map[string]*models.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*models.Job)}
}

func (s *MemoryStore) Push(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, job.Clone())
	return nil
}

func (s *MemoryStore) Pop(_ context.Context) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.list) == 0 {
		return nil, nil
	}
	job := s.list[0]
	s.list[0] = nil
	s.list = s.list[1:]
	return job, nil
}

func (s *MemoryStore) Save(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id].Clone(), nil
}

func (s *MemoryStore) Len(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.list)), nil
}

// forget drops a record that a durable store now owns.
func (s *MemoryStore) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}
