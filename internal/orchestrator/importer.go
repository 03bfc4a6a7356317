package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
)

// Importer enqueues the one-shot media import of a finished job. The dedup
// marker is the only gate: whichever path creates it first enqueues.
type Importer struct {
	jobs        domain.JobStore
	marker      domain.DedupMarker
	queue       domain.ImportQueue
	logger      *infra.Logger
	ttl         time.Duration
	defaultUser string
	now         func() time.Time
}

// Trigger enqueues the import for rec when it is importable and no other
// caller has done so. It returns the record carrying the import ids and
// whether this call enqueued.
//
// A failed enqueue keeps the marker, so the import is not retried.
func (i *Importer) Trigger(ctx context.Context, rec domain.JobRecord) (domain.JobRecord, bool) {
	if !rec.Importable() {
		return rec, false
	}
	log := i.logger.With().Str("job_id", rec.JobID).Logger()

	acquired, err := i.marker.Acquire(ctx, rec.JobID, i.ttl)
	if err != nil {
		log.Error().Err(err).Msg("import marker unavailable, skipping import")
		return rec, false
	}
	if !acquired {
		log.Debug().Msg("import already triggered")
		return rec, false
	}

	req := i.request(rec)
	importID, err := i.queue.Enqueue(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("result_url", rec.ResultURL).Msg("enqueue media import failed")
		return rec, false
	}
	log.Info().
		Str("import_job_id", importID).
		Str("asset_id", req.DestinationAssetID).
		Msg("media import enqueued")

	merged, err := i.jobs.Merge(ctx, rec.JobID, domain.JobPatch{
		AssetID:     req.DestinationAssetID,
		ImportJobID: importID,
	}, i.ttl)
	if err != nil {
		log.Warn().Err(err).Msg("record import ids failed")
		if rec.AssetID == "" {
			rec.AssetID = req.DestinationAssetID
		}
		if rec.ImportJobID == "" {
			rec.ImportJobID = importID
		}
		return rec, true
	}
	return merged, true
}

func (i *Importer) request(rec domain.JobRecord) domain.ImportRequest {
	genType := rec.GenerationType
	if genType == "" {
		genType = domain.GenerationTypeVideo
	}
	user := rec.UserID
	if user == "" {
		user = i.defaultUser
	}
	model := rec.Model
	if model == "" {
		model = "unknown"
	}
	return domain.ImportRequest{
		SourceURL:          rec.ResultURL,
		GenerationType:     genType,
		DestinationUser:    user,
		DestinationAssetID: uuid.NewString(),
		DestinationName:    destinationName(rec.JobID, genType),
		Metadata: domain.ImportMetadata{
			AIGenerated: true,
			Prompt:      rec.Prompt,
			Model:       model,
			SourceJobID: rec.JobID,
		},
		EnqueuedAt: i.now().UTC(),
	}
}

func destinationName(jobID string, genType domain.GenerationType) string {
	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	switch genType {
	case domain.GenerationTypeImage:
		return fmt.Sprintf("AI_Image_%s.png", short)
	case domain.GenerationTypeAudio:
		return fmt.Sprintf("AI_Audio_%s.mp3", short)
	default:
		return fmt.Sprintf("AI_Video_%s.mp4", short)
	}
}
