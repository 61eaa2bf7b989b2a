// Package store keeps the jobs that mock mode creates and deletes. The proxy
// receives a JobStore instead of mutating a package-level list.
package store

import (
	"context"
	"errors"
	"sync"

	"resilio-dashboard/internal/model"
)

var (
	ErrNotFound  = errors.New("job not found")
	ErrDuplicate = errors.New("job id already exists")
)

type JobStore interface {
	List(ctx context.Context) ([]model.Job, error)
	Get(ctx context.Context, id string) (model.Job, error)
	Add(ctx context.Context, job model.Job) error
	// Delete removes the job and returns it as it was stored.
	Delete(ctx context.Context, id string) (model.Job, error)
}

// MemoryStore is the default in-process JobStore.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs []model.Job
}

func NewMemoryStore(seed []model.Job) *MemoryStore {
	jobs := make([]model.Job, len(seed))
	copy(jobs, seed)
	return &MemoryStore{jobs: jobs}
}

func (s *MemoryStore) List(context.Context) ([]model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Job, len(s.jobs))
	copy(out, s.jobs)
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.jobs[i], nil
	}
	return model.Job{}, ErrNotFound
}

func (s *MemoryStore) Add(_ context.Context, job model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(job.ID) >= 0 {
		return ErrDuplicate
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Job{}, ErrNotFound
	}
	removed := s.jobs[i]
	s.jobs = append(s.jobs[:i:i], s.jobs[i+1:]...)
	return removed, nil
}

func (s *MemoryStore) indexOf(id string) int {
	for i := range s.jobs {
		if s.jobs[i].ID == id {
			return i
		}
	}
	return -1
}
