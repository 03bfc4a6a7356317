// Package fallback decorates a job store with last-known-value reads so a
// store outage degrades status queries instead of failing them.
package fallback

import (
	"context"
	"sync"
	"time"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
)

const defaultCapacity = 1024

// JobStore remembers the last record it saw for each job. Reads that fail
// are answered from memory; writes always go to the wrapped store and their
// errors are returned as-is.
type JobStore struct {
	next     domain.JobStore
	logger   *infra.Logger
	capacity int

	mu    sync.Mutex
	last  map[string]domain.JobRecord
	order []string
}

// Options configures the decorator.
type Options struct {
	Capacity int
	Logger   *infra.Logger
}

func NewJobStore(next domain.JobStore, opts Options) *JobStore {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &JobStore{
		next:     next,
		logger:   logger,
		capacity: capacity,
		last:     make(map[string]domain.JobRecord, capacity),
	}
}

func (s *JobStore) Put(ctx context.Context, rec domain.JobRecord, ttl time.Duration) error {
	if err := s.next.Put(ctx, rec, ttl); err != nil {
		return err
	}
	s.remember(rec)
	return nil
}

func (s *JobStore) Get(ctx context.Context, jobID string) (*domain.JobRecord, error) {
	rec, err := s.next.Get(ctx, jobID)
	if err == nil {
		if rec != nil {
			s.remember(*rec)
		}
		return rec, nil
	}
	if cached, ok := s.lookup(jobID); ok {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("job store: serving last known record")
		return &cached, nil
	}
	return nil, err
}

func (s *JobStore) Merge(ctx context.Context, jobID string, patch domain.JobPatch, ttl time.Duration) (domain.JobRecord, error) {
	rec, err := s.next.Merge(ctx, jobID, patch, ttl)
	if err != nil {
		return rec, err
	}
	s.remember(rec)
	return rec, nil
}

func (s *JobStore) remember(rec domain.JobRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.last[rec.JobID]; !ok {
		if len(s.order) >= s.capacity {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.last, oldest)
		}
		s.order = append(s.order, rec.JobID)
	}
	s.last[rec.JobID] = rec
}

func (s *JobStore) lookup(jobID string) (domain.JobRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.last[jobID]
	return rec, ok
}

var _ domain.JobStore = (*JobStore)(nil)
