package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
	"github.com/GCUGrayArea/delicious-lotus/internal/normalize"
	"github.com/GCUGrayArea/delicious-lotus/internal/providers"
)

// StatusResult is the reconciled view of one job returned to pollers.
type StatusResult struct {
	Status      domain.JobStatus `json:"status"`
	ResultURL   string           `json:"result_url"`
	Output      json.RawMessage  `json:"output"`
	Error       string           `json:"error"`
	AssetID     string           `json:"asset_id,omitempty"`
	ImportJobID string           `json:"import_job_id,omitempty"`

	Record domain.JobRecord `json:"-"`
}

func newStatusResult(rec domain.JobRecord) StatusResult {
	return StatusResult{
		Status:      rec.Status,
		ResultURL:   rec.ResultURL,
		Output:      rec.RawOutput,
		Error:       rec.Error,
		AssetID:     rec.AssetID,
		ImportJobID: rec.ImportJobID,
		Record:      rec,
	}
}

// PollReconciler answers status queries and heals records whose webhook
// never arrived by asking the provider.
type PollReconciler struct {
	jobs     domain.JobStore
	registry *providers.Registry
	importer *Importer
	events   *eventSink
	logger   *infra.Logger
	ttl      time.Duration
	limit    int
	now      func() time.Time
}

// Status returns the current state of jobID. A stored record that is not
// fresh is refreshed from the provider first. When the provider cannot be
// reached the stored record is served; without one the job is not found.
func (p *PollReconciler) Status(ctx context.Context, jobID string, autoImport bool) (StatusResult, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return StatusResult{}, fmt.Errorf("job id is empty: %w", domain.ErrNotFound)
	}
	log := p.logger.With().Str("job_id", jobID).Logger()

	cached, err := p.jobs.Get(ctx, jobID)
	if err != nil {
		log.Warn().Err(err).Msg("load job record failed, asking provider")
		cached = nil
	}

	rec := cached
	if cached == nil || !cached.Fresh() {
		refreshed, err := p.refresh(ctx, jobID, cached)
		switch {
		case err == nil:
			rec = &refreshed
		case cached == nil:
			log.Warn().Err(err).Msg("provider lookup failed")
			return StatusResult{}, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
		default:
			log.Warn().Err(err).Msg("provider lookup failed, serving stored record")
		}
	}

	out := *rec
	if autoImport {
		out, _ = p.importer.Trigger(ctx, out)
	}
	return newStatusResult(out), nil
}

func (p *PollReconciler) refresh(ctx context.Context, jobID string, cached *domain.JobRecord) (domain.JobRecord, error) {
	var name string
	if cached != nil {
		name = cached.Provider
	}
	provider, err := p.registry.Lookup(name)
	if err != nil {
		return domain.JobRecord{}, err
	}
	pred, err := provider.Fetch(ctx, jobID)
	if err != nil {
		return domain.JobRecord{}, err
	}

	url, output := normalize.ExtractResultJSON(pred.Output)
	patch := domain.JobPatch{
		Provider:  provider.Name(),
		Status:    normalize.Status(provider.Name(), pred.Status),
		ResultURL: url,
		RawOutput: output,
		Error:     strings.TrimSpace(pred.Error),
	}
	rec, err := p.jobs.Merge(ctx, jobID, patch, p.ttl)
	if err != nil {
		p.logger.Warn().Err(err).Str("job_id", jobID).Msg("store refreshed job failed")
		rec = domain.MergeJob(jobID, cached, patch, p.now())
	}
	if cached == nil || cached.Status != rec.Status {
		p.events.publish(ctx, rec)
	}
	return rec, nil
}

// RefreshClips reconciles every non-terminal clip and returns the updated
// list. Clips whose job cannot be resolved are returned unchanged.
func (p *PollReconciler) RefreshClips(ctx context.Context, clips []domain.ClipSummary) []domain.ClipSummary {
	out := slices.Clone(clips)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i := range out {
		if out[i].JobID == "" || out[i].Status.IsTerminal() {
			continue
		}
		i := i
		g.Go(func() error {
			res, err := p.Status(gctx, out[i].JobID, true)
			if err != nil {
				p.logger.Debug().Err(err).Str("clip_id", out[i].ClipID).Msg("clip refresh skipped")
				return nil
			}
			out[i].Apply(res.Record)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
