package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

// SubmitJobRequest starts one standalone provider job, outside any
// generation. Input is passed to the model unchanged.
type SubmitJobRequest struct {
	Model          string                `json:"model"`
	Provider       string                `json:"provider,omitempty"`
	GenerationType domain.GenerationType `json:"generation_type,omitempty"`
	Input          map[string]any        `json:"input"`
	UserID         string                `json:"user_id,omitempty"`
}

// SubmitJob submits req and stores a QUEUED record for the returned job id.
// The generation type comes from the request, or from the model catalogue
// when the request leaves it empty.
func (d *Dispatcher) SubmitJob(ctx context.Context, req SubmitJobRequest) (domain.JobRecord, error) {
	if len(req.Input) == 0 {
		return domain.JobRecord{}, fmt.Errorf("input is required: %w", domain.ErrInvalidPayload)
	}
	prompt, _ := req.Input["prompt"].(string)
	prompt = strings.TrimSpace(prompt)
	if prompt != "" {
		if err := validPrompt(prompt); err != nil {
			return domain.JobRecord{}, err
		}
	}

	provider, model, err := d.resolve(req.Provider, req.Model)
	if err != nil {
		return domain.JobRecord{}, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	genType := req.GenerationType
	if genType == "" {
		known, ok := ModelType(model)
		if !ok {
			return domain.JobRecord{}, fmt.Errorf("generation_type is required for model %q: %w", model, domain.ErrInvalidPayload)
		}
		genType = known
	}
	if !genType.IsValid() {
		return domain.JobRecord{}, fmt.Errorf("generation_type %q: %w", genType, domain.ErrInvalidPayload)
	}

	pred, err := provider.Submit(ctx, d.submitRequest(model, req.Input))
	if err != nil {
		return domain.JobRecord{}, fmt.Errorf("submit %s job: %w", model, err)
	}

	now := d.now()
	rec, err := d.jobs.Merge(ctx, pred.ID, domain.PatchFromRecord(domain.JobRecord{
		JobID:          pred.ID,
		GenerationType: genType,
		Prompt:         prompt,
		Model:          model,
		Provider:       provider.Name(),
		UserID:         req.UserID,
		Status:         domain.JobStatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}), d.ttl)
	if err != nil {
		return domain.JobRecord{}, fmt.Errorf("store job %s: %w", pred.ID, err)
	}
	d.events.publish(ctx, rec)
	d.logger.Info().
		Str("job_id", pred.ID).
		Str("model", model).
		Str("generation_type", string(genType)).
		Msg("job submitted")
	return rec, nil
}
