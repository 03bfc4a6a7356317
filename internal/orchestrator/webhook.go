package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
	"github.com/GCUGrayArea/delicious-lotus/internal/normalize"
)

const defaultFailureMessage = "generation failed"

// WebhookPayload is the push callback body sent by the provider.
type WebhookPayload struct {
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Output  json.RawMessage `json:"output"`
	Error   json.RawMessage `json:"error"`
	Logs    string          `json:"logs"`
	Metrics map[string]any  `json:"metrics"`
}

// ClipSyncer is notified after a job that belongs to a generation changed.
type ClipSyncer interface {
	SyncClip(ctx context.Context, rec domain.JobRecord) error
}

// WebhookReconciler applies provider callbacks to the job store.
type WebhookReconciler struct {
	jobs     domain.JobStore
	importer *Importer
	events   *eventSink
	syncer   ClipSyncer
	logger   *infra.Logger
	ttl      time.Duration
}

// Handle merges the callback into the job record, publishes the new state
// and triggers the import when the job finished with a result. Callbacks for
// unknown jobs create the record.
func (w *WebhookReconciler) Handle(ctx context.Context, p WebhookPayload) (domain.JobRecord, error) {
	id := strings.TrimSpace(p.ID)
	token := strings.TrimSpace(p.Status)
	if id == "" || token == "" {
		return domain.JobRecord{}, fmt.Errorf("webhook: id and status are required: %w", domain.ErrInvalidPayload)
	}

	status := normalize.Status(normalize.ProviderReplicate, token)
	url, output := normalize.ExtractResultJSON(p.Output)
	patch := domain.JobPatch{
		Provider:  normalize.ProviderReplicate,
		Status:    status,
		ResultURL: url,
		RawOutput: output,
		Error:     normalize.ErrorText(p.Error),
	}
	if status == domain.JobStatusFailed && patch.Error == "" {
		patch.Error = defaultFailureMessage
	}

	log := w.logger.With().Str("job_id", id).Str("status", string(status)).Logger()
	log.Info().Bool("has_result", url != "").Msg("provider webhook received")

	rec, err := w.jobs.Merge(ctx, id, patch, w.ttl)
	if err != nil {
		return domain.JobRecord{}, fmt.Errorf("webhook: merge job %s: %w", id, err)
	}
	w.events.publish(ctx, rec)

	rec, _ = w.importer.Trigger(ctx, rec)

	if rec.GenerationID != "" && w.syncer != nil {
		if err := w.syncer.SyncClip(ctx, rec); err != nil {
			log.Warn().Err(err).Str("generation_id", rec.GenerationID).Msg("sync generation clip failed")
		}
	}
	return rec, nil
}
