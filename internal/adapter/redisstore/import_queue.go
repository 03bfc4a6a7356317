package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

// ImportQueue RPUSHes import requests onto a list consumed by the media
// import worker.
type ImportQueue struct {
	client redis.UniversalClient
	key    string
}

func NewImportQueue(client redis.UniversalClient) *ImportQueue {
	return &ImportQueue{client: client, key: ImportQueueKey}
}

type queuedImport struct {
	ImportJobID string `json:"import_job_id"`
	domain.ImportRequest
}

func (q *ImportQueue) Enqueue(ctx context.Context, req domain.ImportRequest) (string, error) {
	id := uuid.NewString()
	data, err := json.Marshal(queuedImport{ImportJobID: id, ImportRequest: req})
	if err != nil {
		return "", fmt.Errorf("marshal import request: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, data).Err(); err != nil {
		return "", fmt.Errorf("redis rpush %s: %w", q.key, err)
	}
	return id, nil
}

var _ domain.ImportQueue = (*ImportQueue)(nil)
