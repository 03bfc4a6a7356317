package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
)

const maxPromptRunes = 2000

// CreateGenerationRequest is the user request behind a generation.
type CreateGenerationRequest struct {
	Prompt     string                      `json:"prompt"`
	UserID     string                      `json:"user_id,omitempty"`
	Parameters domain.GenerationParameters `json:"parameters"`
}

// GenerationService creates generations and keeps their aggregate in step
// with the clip jobs.
type GenerationService struct {
	repo         domain.GenerationRepository
	planner      domain.Planner
	dispatcher   *Dispatcher
	poller       *PollReconciler
	logger       *infra.Logger
	webhookLocal bool
	now          func() time.Time
}

// Create plans the prompt into clips, dispatches them and stores the
// generation.
func (s *GenerationService) Create(ctx context.Context, req CreateGenerationRequest) (*domain.GenerationRecord, error) {
	if err := validPrompt(req.Prompt); err != nil {
		return nil, err
	}
	prompt := strings.TrimSpace(req.Prompt)
	params := req.Parameters
	if params.AspectRatio == "" {
		params.AspectRatio = defaultAspect
	}
	params.Provider = strings.ToLower(strings.TrimSpace(params.Provider))
	if _, err := s.dispatcher.registry.Lookup(params.Provider); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	id := uuid.NewString()
	log := s.logger.With().Str("generation_id", id).Logger()
	if s.webhookLocal {
		log.Warn().Msg("webhook base url is local, provider callbacks will not arrive; relying on polling")
	}

	plan, err := s.planner.Plan(ctx, domain.PlanRequest{
		Prompt:          prompt,
		DurationSeconds: params.DurationSeconds,
		AspectRatio:     params.AspectRatio,
		Brand:           params.Brand,
	})
	if err != nil {
		return nil, fmt.Errorf("plan generation: %w", err)
	}
	if plan.FallbackReason != "" {
		log.Warn().Str("reason", plan.FallbackReason).Msg("scene planner fell back")
	}
	if len(plan.Prompts) == 0 {
		return nil, fmt.Errorf("plan generation: no clip prompts: %w", domain.ErrInvalidPrompt)
	}

	clips := s.dispatcher.Dispatch(ctx, DispatchRequest{
		GenerationID: id,
		UserID:       req.UserID,
		Prompts:      plan.Prompts,
		Scenes:       plan.Scenes,
		AspectRatio:  params.AspectRatio,
		Model:        params.Model,
		Provider:     params.Provider,
		Parallelize:  params.Parallelize,
	})

	now := s.now().UTC()
	rec := &domain.GenerationRecord{
		ID:         id,
		UserID:     req.UserID,
		Prompt:     prompt,
		Parameters: params,
		Clips:      clips,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	rec.Recompute()
	if err := s.repo.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("save generation %s: %w", id, err)
	}
	log.Info().
		Int("clips", rec.Progress.Total).
		Int("failed", rec.Progress.Failed).
		Str("status", string(rec.Status)).
		Msg("generation created")
	return rec, nil
}

func validPrompt(prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("prompt is empty: %w", domain.ErrInvalidPrompt)
	}
	if utf8.RuneCountInString(prompt) > maxPromptRunes {
		return fmt.Errorf("prompt exceeds %d characters: %w", maxPromptRunes, domain.ErrInvalidPrompt)
	}
	return nil
}

// Get loads a generation and refreshes its clips while it is still running.
func (s *GenerationService) Get(ctx context.Context, id string) (*domain.GenerationRecord, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status.IsTerminal() {
		return rec, nil
	}

	clips := s.poller.RefreshClips(ctx, rec.Clips)
	clipsChanged := !slices.Equal(clips, rec.Clips)
	rec.Clips = clips
	if rec.Recompute() || clipsChanged {
		rec.UpdatedAt = s.now().UTC()
		if err := s.repo.Save(ctx, rec); err != nil {
			s.logger.Warn().Err(err).Str("generation_id", id).Msg("save refreshed generation failed")
		}
	}
	return rec, nil
}

// List pages through generations, newest first.
func (s *GenerationService) List(ctx context.Context, filter domain.GenerationFilter) ([]domain.GenerationRecord, int, error) {
	return s.repo.List(ctx, filter)
}

// SyncClip applies a reconciled job to the generation tracking it. Unknown
// generations are ignored.
func (s *GenerationService) SyncClip(ctx context.Context, job domain.JobRecord) error {
	if job.GenerationID == "" {
		return nil
	}
	rec, err := s.repo.Get(ctx, job.GenerationID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !rec.ApplyJob(job) {
		return nil
	}
	rec.Recompute()
	rec.UpdatedAt = s.now().UTC()
	return s.repo.Save(ctx, rec)
}
