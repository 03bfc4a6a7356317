package domain

import (
	"context"
	"encoding/json"
	"time"
)

// JobStore persists one JobRecord per provider job. Implementations must run
// MergeJob atomically with respect to other writers of the same key.
type JobStore interface {
	Put(ctx context.Context, rec JobRecord, ttl time.Duration) error
	// Get returns (nil, nil) when the record does not exist or has expired.
	Get(ctx context.Context, jobID string) (*JobRecord, error)
	Merge(ctx context.Context, jobID string, patch JobPatch, ttl time.Duration) (JobRecord, error)
}

// DedupMarker guards a one-shot side effect per job.
type DedupMarker interface {
	// Acquire creates the marker if absent in a single atomic step and reports
	// whether this caller created it.
	Acquire(ctx context.Context, jobID string, ttl time.Duration) (bool, error)
}

// EventPublisher broadcasts job events. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev JobEvent) error
}

// ImportQueue hands finished results to the downstream media importer.
type ImportQueue interface {
	Enqueue(ctx context.Context, req ImportRequest) (string, error)
}

// GenerationFilter narrows a generation listing.
type GenerationFilter struct {
	Limit  int
	Offset int
	Status GenerationStatus
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Bounds returns the effective limit and offset of the filter.
func (f GenerationFilter) Bounds() (limit, offset int) {
	limit, offset = f.Limit, f.Offset
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GenerationRepository stores aggregate generation records.
type GenerationRepository interface {
	Save(ctx context.Context, rec *GenerationRecord) error
	// Get returns ErrNotFound when the generation is unknown.
	Get(ctx context.Context, id string) (*GenerationRecord, error)
	List(ctx context.Context, filter GenerationFilter) ([]GenerationRecord, int, error)
}

// SubmitRequest is a provider-agnostic job submission.
type SubmitRequest struct {
	Model         string
	Input         map[string]any
	WebhookURL    string
	WebhookEvents []string
}

// Prediction is the provider-native view of a job, before normalisation.
type Prediction struct {
	ID     string
	Status string
	Output json.RawMessage
	Error  string
}

// Provider submits jobs to and queries jobs from one external service.
type Provider interface {
	Name() string
	Submit(ctx context.Context, req SubmitRequest) (*Prediction, error)
	Fetch(ctx context.Context, jobID string) (*Prediction, error)
}

// Scene is one planned segment of a generation.
type Scene struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
}

// PlanRequest is the input of the content analysis step.
type PlanRequest struct {
	Prompt          string
	DurationSeconds float64
	AspectRatio     string
	Brand           string
}

// ScenePlan is the analysis output: scenes and one provider prompt per scene.
type ScenePlan struct {
	Scenes   []Scene
	Prompts  []string
	Provider string
	// FallbackReason is set when the planner degraded to its fallback.
	FallbackReason string
}

// Planner turns a user prompt into per-clip prompts.
type Planner interface {
	Plan(ctx context.Context, req PlanRequest) (*ScenePlan, error)
}
