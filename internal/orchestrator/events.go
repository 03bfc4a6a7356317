package orchestrator

import (
	"context"
	"time"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
)

// eventSink publishes job events. Failures are logged and never reach the
// caller.
type eventSink struct {
	publisher domain.EventPublisher
	logger    *infra.Logger
	now       func() time.Time
}

func (s *eventSink) publish(ctx context.Context, rec domain.JobRecord) {
	if s == nil || s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, domain.NewJobEvent(rec, s.now())); err != nil {
		s.logger.Warn().Err(err).Str("job_id", rec.JobID).Str("status", string(rec.Status)).Msg("publish job event failed")
	}
}
