package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
)

const defaultSweepWorkers = 4

// SweepStats summarises one sweep.
type SweepStats struct {
	Scanned  int
	Finished int
	Errors   int
}

// Sweeper refreshes generations whose clips are still running. It covers
// jobs whose webhook never arrives.
type Sweeper struct {
	gens    *GenerationService
	batch   int
	workers int
	logger  *infra.Logger
}

// NewSweeper returns nil when the engine has no generation service.
func (e *Engine) NewSweeper(batch, workers int) *Sweeper {
	if e.Generations == nil {
		return nil
	}
	if batch <= 0 {
		batch = domain.MaxPageSize
	}
	if workers <= 0 {
		workers = defaultSweepWorkers
	}
	return &Sweeper{gens: e.Generations, batch: batch, workers: workers, logger: e.Generations.logger}
}

// Sweep refreshes up to batch unfinished generations.
func (s *Sweeper) Sweep(ctx context.Context) (SweepStats, error) {
	ids, err := s.pending(ctx)
	if err != nil {
		return SweepStats{}, err
	}

	var finished, failed atomic.Int32
	p := pool.New().WithMaxGoroutines(s.workers)
	for _, id := range ids {
		id := id
		p.Go(func() {
			rec, err := s.gens.Get(ctx, id)
			if err != nil {
				failed.Add(1)
				s.logger.Warn().Err(err).Str("generation_id", id).Msg("sweep: refresh failed")
				return
			}
			if rec.Status.IsTerminal() {
				finished.Add(1)
			}
		})
	}
	p.Wait()
	return SweepStats{Scanned: len(ids), Finished: int(finished.Load()), Errors: int(failed.Load())}, nil
}

// pending collects ids first so refreshes do not shift the pages being read.
func (s *Sweeper) pending(ctx context.Context) ([]string, error) {
	var ids []string
	for _, status := range []domain.GenerationStatus{domain.GenerationStatusProcessing, domain.GenerationStatusQueued} {
		for offset := 0; len(ids) < s.batch; {
			limit := min(s.batch-len(ids), domain.MaxPageSize)
			page, total, err := s.gens.List(ctx, domain.GenerationFilter{Limit: limit, Offset: offset, Status: status})
			if err != nil {
				return nil, fmt.Errorf("sweep: list generations: %w", err)
			}
			for _, rec := range page {
				ids = append(ids, rec.ID)
			}
			offset += len(page)
			if len(page) == 0 || offset >= total {
				break
			}
		}
	}
	return ids, nil
}
