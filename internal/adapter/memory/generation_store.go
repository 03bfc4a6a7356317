package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

// GenerationStore keeps generation records in memory.
type GenerationStore struct {
	mu   sync.RWMutex
	recs map[string]domain.GenerationRecord
}

func NewGenerationStore() *GenerationStore {
	return &GenerationStore{recs: make(map[string]domain.GenerationRecord)}
}

func (s *GenerationStore) Save(ctx context.Context, rec *domain.GenerationRecord) error {
	if rec == nil || rec.ID == "" {
		return domain.ErrInvalidPayload
	}
	cp := *rec
	cp.Clips = append([]domain.ClipSummary(nil), rec.Clips...)
	s.mu.Lock()
	s.recs[rec.ID] = cp
	s.mu.Unlock()
	return nil
}

func (s *GenerationStore) Get(ctx context.Context, id string) (*domain.GenerationRecord, error) {
	s.mu.RLock()
	rec, ok := s.recs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec.Clips = append([]domain.ClipSummary(nil), rec.Clips...)
	return &rec, nil
}

func (s *GenerationStore) List(ctx context.Context, filter domain.GenerationFilter) ([]domain.GenerationRecord, int, error) {
	limit, offset := filter.Bounds()
	s.mu.RLock()
	matched := make([]domain.GenerationRecord, 0, len(s.recs))
	for _, rec := range s.recs {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		matched = append(matched, rec)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
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
