package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

const maxMergeAttempts = 10

// JobStore keeps one JSON document per job under job:{id}. Merges run inside
// WATCH/MULTI so concurrent writers never lose each other's fields.
type JobStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewJobStore(client redis.UniversalClient) *JobStore {
	return &JobStore{client: client, now: time.Now}
}

func (s *JobStore) Put(ctx context.Context, rec domain.JobRecord, ttl time.Duration) error {
	if rec.JobID == "" {
		return domain.ErrInvalidPayload
	}
	now := s.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.client.Set(ctx, jobKey(rec.JobID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, jobID string) (*domain.JobRecord, error) {
	return s.load(ctx, s.client, jobID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *JobStore) load(ctx context.Context, c getter, jobID string) (*domain.JobRecord, error) {
	data, err := c.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: redis get: %v", domain.ErrStoreUnavailable, err)
	}
	var rec domain.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", jobID, err)
	}
	return &rec, nil
}

func (s *JobStore) Merge(ctx context.Context, jobID string, patch domain.JobPatch, ttl time.Duration) (domain.JobRecord, error) {
	if jobID == "" {
		return domain.JobRecord{}, domain.ErrInvalidPayload
	}
	key := jobKey(jobID)
	var merged domain.JobRecord
	txf := func(tx *redis.Tx) error {
		existing, err := s.load(ctx, tx, jobID)
		if err != nil {
			return err
		}
		merged = domain.MergeJob(jobID, existing, patch, s.now().UTC())
		data, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxMergeAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return merged, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return domain.JobRecord{}, err
		}
		return domain.JobRecord{}, fmt.Errorf("%w: merge job %s: %v", domain.ErrStoreUnavailable, jobID, err)
	}
	return domain.JobRecord{}, fmt.Errorf("merge job %s: %w", jobID, domain.ErrConcurrentModification)
}

var _ domain.JobStore = (*JobStore)(nil)
