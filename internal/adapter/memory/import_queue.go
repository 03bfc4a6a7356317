package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

// ImportQueue collects import requests in order.
type ImportQueue struct {
	mu       sync.Mutex
	requests []domain.ImportRequest
}

func NewImportQueue() *ImportQueue {
	return &ImportQueue{}
}

func (q *ImportQueue) Enqueue(ctx context.Context, req domain.ImportRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.requests = append(q.requests, req)
	return uuid.NewString(), nil
}

// Requests returns a copy of the enqueued requests.
func (q *ImportQueue) Requests() []domain.ImportRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.ImportRequest(nil), q.requests...)
}

var _ domain.ImportQueue = (*ImportQueue)(nil)
