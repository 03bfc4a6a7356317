package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

// GenerationStore keeps generation records as JSON blobs, indexed by creation
// time in a sorted set. It is used when no Postgres database is configured.
type GenerationStore struct {
	client redis.UniversalClient
}

func NewGenerationStore(client redis.UniversalClient) *GenerationStore {
	return &GenerationStore{client: client}
}

func (s *GenerationStore) Save(ctx context.Context, rec *domain.GenerationRecord) error {
	if rec == nil || rec.ID == "" {
		return domain.ErrInvalidPayload
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal generation: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, generationKey(rec.ID), data, 0)
		pipe.ZAdd(ctx, generationIndexKey, redis.Z{Score: float64(rec.CreatedAt.UnixMilli()), Member: rec.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: save generation: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *GenerationStore) Get(ctx context.Context, id string) (*domain.GenerationRecord, error) {
	data, err := s.client.Get(ctx, generationKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: load generation: %v", domain.ErrStoreUnavailable, err)
	}
	var rec domain.GenerationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal generation %s: %w", id, err)
	}
	rec.Progress.Status = rec.Status
	return &rec, nil
}

func (s *GenerationStore) List(ctx context.Context, filter domain.GenerationFilter) ([]domain.GenerationRecord, int, error) {
	limit, offset := filter.Bounds()
	ids, err := s.client.ZRevRange(ctx, generationIndexKey, 0, -1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list generations: %v", domain.ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return []domain.GenerationRecord{}, 0, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = generationKey(id)
	}
	blobs, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: load generations: %v", domain.ErrStoreUnavailable, err)
	}

	matched := make([]domain.GenerationRecord, 0, len(blobs))
	for _, blob := range blobs {
		raw, ok := blob.(string)
		if !ok {
			continue
		}
		var rec domain.GenerationRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		rec.Progress.Status = rec.Status
		matched = append(matched, rec)
	}
	total := len(matched)
	if offset >= total {
		return []domain.GenerationRecord{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

var _ domain.GenerationRepository = (*GenerationStore)(nil)
