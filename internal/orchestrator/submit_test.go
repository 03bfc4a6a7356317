package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

func TestSubmitJobInfersTypeFromModel(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	rec, err := h.engine.Dispatcher.SubmitJob(ctx, SubmitJobRequest{
		Model:  "minimax/music-01",
		Input:  map[string]any{"prompt": " lo-fi beat ", "duration": 30},
		UserID: "user-3",
	})
	require.NoError(t, err)
	require.Equal(t, "pred-1", rec.JobID)
	require.Equal(t, domain.JobStatusQueued, rec.Status)
	require.Equal(t, domain.GenerationTypeAudio, rec.GenerationType)
	require.Equal(t, "lo-fi beat", rec.Prompt)
	require.Equal(t, "replicate", rec.Provider)

	submits := h.provider.Submitted()
	require.Len(t, submits, 1)
	require.Equal(t, "minimax/music-01", submits[0].Model)
	require.Equal(t, 30, submits[0].Input["duration"])
	require.Equal(t, "https://api.example.com/v1/webhooks/replicate", submits[0].WebhookURL)

	events := h.events.Events()
	require.Len(t, events, 1)
	require.Equal(t, "job.queued", events[0].Event)

	// A completed audio job imports as an mp3.
	_, err = h.engine.Webhooks.Handle(ctx, WebhookPayload{ID: rec.JobID, Status: "succeeded", Output: json.RawMessage(`"https://cdn.example.com/beat.mp3"`)})
	require.NoError(t, err)
	reqs := h.imports.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, "AI_Audio_pred-1.mp3", reqs[0].DestinationName)
	require.Equal(t, "user-3", reqs[0].DestinationUser)
	require.Equal(t, "minimax/music-01", reqs[0].Metadata.Model)
}

func TestSubmitJobExplicitTypeForUnknownModel(t *testing.T) {
	h := newHarness(t, nil)
	rec, err := h.engine.Dispatcher.SubmitJob(context.Background(), SubmitJobRequest{
		Model:          "acme/sketch-xl",
		GenerationType: domain.GenerationTypeImage,
		Input:          map[string]any{"prompt": "pencil fox"},
	})
	require.NoError(t, err)
	require.Equal(t, domain.GenerationTypeImage, rec.GenerationType)
}

func TestSubmitJobValidation(t *testing.T) {
	h := newHarness(t, nil)
	tests := []struct {
		name string
		req  SubmitJobRequest
		want error
	}{
		{name: "no_input", req: SubmitJobRequest{Model: "google/nano-banana"}, want: domain.ErrInvalidPayload},
		{name: "unknown_model_without_type", req: SubmitJobRequest{Model: "acme/x", Input: map[string]any{"prompt": "p"}}, want: domain.ErrInvalidPayload},
		{name: "bad_type", req: SubmitJobRequest{Model: "acme/x", GenerationType: "hologram", Input: map[string]any{"prompt": "p"}}, want: domain.ErrInvalidPayload},
		{name: "unknown_provider", req: SubmitJobRequest{Model: "google/nano-banana", Provider: "nope", Input: map[string]any{"prompt": "p"}}, want: domain.ErrInvalidPayload},
		{name: "long_prompt", req: SubmitJobRequest{Model: "google/nano-banana", Input: map[string]any{"prompt": strings.Repeat("x", maxPromptRunes+1)}}, want: domain.ErrInvalidPrompt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.engine.Dispatcher.SubmitJob(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}
	require.Empty(t, h.provider.Submitted())
	require.Empty(t, h.jobs.IDs())
}

func TestSubmitJobProviderFailureStoresNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.provider.submitFn = func(n int, req domain.SubmitRequest) (*domain.Prediction, error) {
		return nil, errors.New("quota exceeded")
	}
	_, err := h.engine.Dispatcher.SubmitJob(context.Background(), SubmitJobRequest{
		Model: "google/nano-banana",
		Input: map[string]any{"prompt": "p"},
	})
	require.ErrorContains(t, err, "quota exceeded")
	require.Empty(t, h.jobs.IDs())
	require.Empty(t, h.events.Events())
}

func TestValidateDispatchRequest(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.engine.Dispatcher.Validate(DispatchRequest{GenerationID: "g", Prompts: []string{"a"}}))
	require.ErrorIs(t, h.engine.Dispatcher.Validate(DispatchRequest{Prompts: []string{"a"}}), domain.ErrInvalidPayload)
	require.ErrorIs(t, h.engine.Dispatcher.Validate(DispatchRequest{GenerationID: "g"}), domain.ErrInvalidPrompt)
	require.ErrorIs(t, h.engine.Dispatcher.Validate(DispatchRequest{GenerationID: "g", Prompts: []string{"a", " "}}), domain.ErrInvalidPrompt)
	require.ErrorIs(t, h.engine.Dispatcher.Validate(DispatchRequest{GenerationID: "g", Prompts: []string{"a"}, Provider: "nope"}), domain.ErrInvalidPayload)
}
