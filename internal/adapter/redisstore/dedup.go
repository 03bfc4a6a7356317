package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

// DedupMarker creates imported:{id} with SET NX so exactly one caller wins.
type DedupMarker struct {
	client redis.UniversalClient
}

func NewDedupMarker(client redis.UniversalClient) *DedupMarker {
	return &DedupMarker{client: client}
}

func (d *DedupMarker) Acquire(ctx context.Context, jobID string, ttl time.Duration) (bool, error) {
	if jobID == "" {
		return false, domain.ErrInvalidPayload
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	// SETNX with a separate EXPIRE is not atomic; SET NX with TTL is.
	status, err := d.client.SetArgs(ctx, importedKey(jobID), "1", redis.SetArgs{Mode: "NX", TTL: ttl}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: redis SET NX: %v", domain.ErrStoreUnavailable, err)
	}
	return status == "OK", nil
}

var _ domain.DedupMarker = (*DedupMarker)(nil)
