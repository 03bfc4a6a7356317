package memory

import (
	"context"
	"sync"
	"time"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

// DedupMarker is an in-process create-if-absent marker set.
type DedupMarker struct {
	mu      sync.Mutex
	markers map[string]entry[struct{}]
	now     func() time.Time
}

func NewDedupMarker() *DedupMarker {
	return &DedupMarker{markers: make(map[string]entry[struct{}]), now: time.Now}
}

func (d *DedupMarker) WithClock(now func() time.Time) *DedupMarker {
	d.now = now
	return d
}

func (d *DedupMarker) Acquire(ctx context.Context, jobID string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if e, ok := d.markers[jobID]; ok && !e.expired(now) {
		return false, nil
	}
	d.markers[jobID] = entry[struct{}]{expiresAt: expiry(now, ttl)}
	return true, nil
}

// Held reports whether a live marker exists for jobID.
func (d *DedupMarker) Held(jobID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.markers[jobID]
	return ok && !e.expired(d.now())
}

var _ domain.DedupMarker = (*DedupMarker)(nil)
