package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
	"github.com/GCUGrayArea/delicious-lotus/internal/providers"
)

const (
	webhookPath       = "/v1/webhooks/replicate"
	defaultClipSecs   = 5
	defaultAspect     = "16:9"
	landscapeClipSize = "1280*720"
	portraitClipSize  = "720*1280"
)

// DispatchRequest describes the clips of one generation.
type DispatchRequest struct {
	GenerationID string
	UserID       string
	Prompts      []string
	Scenes       []domain.Scene
	AspectRatio  string
	Model        string
	Provider     string
	Parallelize  bool
}

// modelDefaulter is implemented by providers whose model names differ from
// the configured default video model.
type modelDefaulter interface {
	DefaultModel() string
}

// Dispatcher submits one provider job per clip prompt.
type Dispatcher struct {
	jobs       domain.JobStore
	registry   *providers.Registry
	events     *eventSink
	logger     *infra.Logger
	ttl        time.Duration
	model      string
	webhookURL string
	now        func() time.Time
}

// Dispatch submits every prompt and returns the clip summaries in prompt
// order. A failed submission becomes a failed clip; its siblings still run.
func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) []domain.ClipSummary {
	clips := make([]domain.ClipSummary, len(req.Prompts))
	if !req.Parallelize || len(req.Prompts) < 2 {
		for i, prompt := range req.Prompts {
			clips[i] = d.submitClip(ctx, req, i, prompt)
		}
		return clips
	}

	var g errgroup.Group
	g.SetLimit(len(req.Prompts))
	for i, prompt := range req.Prompts {
		i, prompt := i, prompt
		g.Go(func() error {
			clips[i] = d.submitClip(ctx, req, i, prompt)
			return nil
		})
	}
	_ = g.Wait()
	return clips
}

func (d *Dispatcher) submitClip(ctx context.Context, req DispatchRequest, i int, prompt string) domain.ClipSummary {
	clip := domain.ClipSummary{
		ClipID: newClipID(i + 1),
		Prompt: prompt,
		Status: domain.JobStatusQueued,
	}
	if i < len(req.Scenes) {
		clip.SceneID = req.Scenes[i].ID
	}
	log := d.logger.With().
		Str("generation_id", req.GenerationID).
		Str("clip_id", clip.ClipID).
		Logger()

	provider, model, err := d.resolve(req.Provider, req.Model)
	if err != nil {
		return failClip(clip, err, log)
	}
	pred, err := provider.Submit(ctx, d.submitRequest(model, clipInput(prompt, req.AspectRatio)))
	if err != nil {
		return failClip(clip, err, log)
	}
	clip.JobID = pred.ID

	now := d.now()
	rec := domain.JobRecord{
		JobID:          pred.ID,
		GenerationID:   req.GenerationID,
		ClipID:         clip.ClipID,
		SceneID:        clip.SceneID,
		GenerationType: domain.GenerationTypeVideo,
		Prompt:         prompt,
		Model:          model,
		Provider:       provider.Name(),
		UserID:         req.UserID,
		Status:         domain.JobStatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	// Merge rather than Put: a webhook may already have reported this job.
	if _, err := d.jobs.Merge(ctx, pred.ID, domain.PatchFromRecord(rec), d.ttl); err != nil {
		log.Error().Err(err).Str("job_id", pred.ID).Msg("store clip job failed")
	}
	log.Info().Str("job_id", pred.ID).Str("model", model).Msg("clip submitted")
	return clip
}

// Validate rejects a clip request that cannot produce any job.
func (d *Dispatcher) Validate(req DispatchRequest) error {
	if strings.TrimSpace(req.GenerationID) == "" {
		return fmt.Errorf("generation_id is required: %w", domain.ErrInvalidPayload)
	}
	if len(req.Prompts) == 0 {
		return fmt.Errorf("at least one prompt is required: %w", domain.ErrInvalidPrompt)
	}
	for i, p := range req.Prompts {
		if err := validPrompt(p); err != nil {
			return fmt.Errorf("prompt %d: %w", i+1, err)
		}
	}
	if _, err := d.registry.Lookup(req.Provider); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return nil
}

func (d *Dispatcher) resolve(providerName, model string) (domain.Provider, string, error) {
	provider, err := d.registry.Lookup(providerName)
	if err != nil {
		return nil, "", err
	}
	model = strings.TrimSpace(model)
	if model != "" {
		return provider, model, nil
	}
	if md, ok := provider.(modelDefaulter); ok && md.DefaultModel() != "" {
		return provider, md.DefaultModel(), nil
	}
	return provider, d.model, nil
}

func (d *Dispatcher) submitRequest(model string, input map[string]any) domain.SubmitRequest {
	req := domain.SubmitRequest{Model: model, Input: input}
	if d.webhookURL != "" {
		req.WebhookURL = d.webhookURL
		req.WebhookEvents = []string{"completed"}
	}
	return req
}

func failClip(clip domain.ClipSummary, err error, log infra.Logger) domain.ClipSummary {
	log.Error().Err(err).Msg("clip submission failed")
	clip.Status = domain.JobStatusFailed
	clip.Error = err.Error()
	return clip
}

func clipInput(prompt, aspect string) map[string]any {
	if aspect == "" {
		aspect = defaultAspect
	}
	size := portraitClipSize
	if aspect == "16:9" {
		size = landscapeClipSize
	}
	return map[string]any{
		"prompt":                  prompt,
		"aspect_ratio":            aspect,
		"size":                    size,
		"duration":                defaultClipSecs,
		"negative_prompt":         "",
		"enable_prompt_expansion": true,
	}
}

func newClipID(n int) string {
	return fmt.Sprintf("clip_%d_%s", n, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func webhookURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return ""
	}
	return base + webhookPath
}
