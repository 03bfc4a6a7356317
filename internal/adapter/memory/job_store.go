// Package memory holds in-process implementations of the domain stores. They
// back single-instance development runs and the orchestration tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e entry[T]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// JobStore keeps job records in a map guarded by a mutex. Expired records are
// dropped lazily on access.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]entry[domain.JobRecord]
	now  func() time.Time
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]entry[domain.JobRecord]), now: time.Now}
}

// WithClock replaces the time source, for expiry tests.
func (s *JobStore) WithClock(now func() time.Time) *JobStore {
	s.now = now
	return s
}

func (s *JobStore) Put(ctx context.Context, rec domain.JobRecord, ttl time.Duration) error {
	if rec.JobID == "" {
		return domain.ErrInvalidPayload
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	rec.RawOutput = append(rec.RawOutput[:0:0], rec.RawOutput...)
	s.jobs[rec.JobID] = entry[domain.JobRecord]{value: rec, expiresAt: expiry(now, ttl)}
	return nil
}

func (s *JobStore) Get(ctx context.Context, jobID string) (*domain.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[jobID]
	if !ok {
		return nil, nil
	}
	if e.expired(s.now()) {
		delete(s.jobs, jobID)
		return nil, nil
	}
	rec := e.value
	return &rec, nil
}

func (s *JobStore) Merge(ctx context.Context, jobID string, patch domain.JobPatch, ttl time.Duration) (domain.JobRecord, error) {
	if jobID == "" {
		return domain.JobRecord{}, domain.ErrInvalidPayload
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var existing *domain.JobRecord
	if e, ok := s.jobs[jobID]; ok && !e.expired(now) {
		rec := e.value
		existing = &rec
	}
	merged := domain.MergeJob(jobID, existing, patch, now)
	s.jobs[jobID] = entry[domain.JobRecord]{value: merged, expiresAt: expiry(now, ttl)}
	return merged, nil
}

// IDs lists the ids of live records.
func (s *JobStore) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	ids := make([]string, 0, len(s.jobs))
	for id, e := range s.jobs {
		if !e.expired(now) {
			ids = append(ids, id)
		}
	}
	return ids
}

var _ domain.JobStore = (*JobStore)(nil)
