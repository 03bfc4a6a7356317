package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

var clipIDPattern = regexp.MustCompile(`^clip_\d+_[0-9a-f]{8}$`)

func TestDispatchSequentialIsolatesFailures(t *testing.T) {
	h := newHarness(t, nil)
	h.provider.submitFn = func(n int, req domain.SubmitRequest) (*domain.Prediction, error) {
		if n == 2 {
			return nil, errors.New("rate limited")
		}
		return &domain.Prediction{ID: fmt.Sprintf("pred-%d", n), Status: "starting"}, nil
	}

	clips := h.engine.Dispatcher.Dispatch(context.Background(), DispatchRequest{
		GenerationID: "gen-1",
		UserID:       "user-1",
		Prompts:      []string{"one", "two", "three"},
		Scenes:       []domain.Scene{{ID: "scene_1"}, {ID: "scene_2"}},
		AspectRatio:  "16:9",
	})

	want := []domain.ClipSummary{
		{JobID: "pred-1", SceneID: "scene_1", Prompt: "one", Status: domain.JobStatusQueued},
		{SceneID: "scene_2", Prompt: "two", Status: domain.JobStatusFailed, Error: "rate limited"},
		{JobID: "pred-3", Prompt: "three", Status: domain.JobStatusQueued},
	}
	if diff := cmp.Diff(want, clips, cmpopts.IgnoreFields(domain.ClipSummary{}, "ClipID")); diff != "" {
		t.Fatalf("clips mismatch (-want +got):\n%s", diff)
	}
	for i, c := range clips {
		require.Regexp(t, clipIDPattern, c.ClipID)
		require.Contains(t, c.ClipID, fmt.Sprintf("clip_%d_", i+1))
	}

	rec, err := h.jobs.Get(context.Background(), "pred-3")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, domain.JobStatusQueued, rec.Status)
	require.Equal(t, "gen-1", rec.GenerationID)
	require.Equal(t, clips[2].ClipID, rec.ClipID)
	require.Equal(t, "user-1", rec.UserID)
	require.Equal(t, "replicate", rec.Provider)
	require.Equal(t, DefaultVideoModel, rec.Model)
	require.Equal(t, domain.GenerationTypeVideo, rec.GenerationType)
	require.Len(t, h.jobs.IDs(), 2)
}

func TestDispatchBuildsProviderRequest(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.Dispatcher.Dispatch(context.Background(), DispatchRequest{
		Prompts:     []string{"vertical"},
		AspectRatio: "9:16",
		Model:       "kwaivgi/kling-v2.5-turbo-pro",
	})

	submits := h.provider.Submitted()
	require.Len(t, submits, 1)
	want := domain.SubmitRequest{
		Model: "kwaivgi/kling-v2.5-turbo-pro",
		Input: map[string]any{
			"prompt":                  "vertical",
			"aspect_ratio":            "9:16",
			"size":                    "720*1280",
			"duration":                5,
			"negative_prompt":         "",
			"enable_prompt_expansion": true,
		},
		WebhookURL:    "https://api.example.com/v1/webhooks/replicate",
		WebhookEvents: []string{"completed"},
	}
	if diff := cmp.Diff(want, submits[0]); diff != "" {
		t.Fatalf("submit request mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatchWithoutWebhookBase(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.WebhookBaseURL = "" })
	h.engine.Dispatcher.Dispatch(context.Background(), DispatchRequest{Prompts: []string{"p"}})

	submits := h.provider.Submitted()
	require.Len(t, submits, 1)
	require.Empty(t, submits[0].WebhookURL)
	require.Nil(t, submits[0].WebhookEvents)
	require.Equal(t, "1280*720", submits[0].Input["size"])
}

func TestDispatchConcurrentKeepsPromptOrder(t *testing.T) {
	h := newHarness(t, nil)
	prompts := []string{"a", "b", "c", "d", "e"}
	clips := h.engine.Dispatcher.Dispatch(context.Background(), DispatchRequest{
		Prompts:     prompts,
		Parallelize: true,
	})

	require.Len(t, clips, len(prompts))
	seen := map[string]bool{}
	for i, c := range clips {
		require.Equal(t, prompts[i], c.Prompt)
		require.Equal(t, domain.JobStatusQueued, c.Status)
		require.NotEmpty(t, c.JobID)
		require.False(t, seen[c.ClipID], "duplicate clip id %s", c.ClipID)
		seen[c.ClipID] = true
	}
	require.Len(t, h.jobs.IDs(), len(prompts))
}

func TestDispatchDoesNotOverwriteEarlyWebhook(t *testing.T) {
	h := newHarness(t, nil)
	h.provider.submitFn = func(n int, req domain.SubmitRequest) (*domain.Prediction, error) {
		// The callback lands before Submit returns.
		_, err := h.jobs.Merge(context.Background(), "pred-fast", domain.JobPatch{
			Status:    domain.JobStatusSucceeded,
			ResultURL: "https://cdn.example.com/fast.mp4",
		}, DefaultJobTTL)
		require.NoError(t, err)
		return &domain.Prediction{ID: "pred-fast", Status: "starting"}, nil
	}

	h.engine.Dispatcher.Dispatch(context.Background(), DispatchRequest{GenerationID: "gen-x", Prompts: []string{"fast"}})

	rec, err := h.jobs.Get(context.Background(), "pred-fast")
	require.NoError(t, err)
	require.Equal(t, domain.JobStatusSucceeded, rec.Status)
	require.Equal(t, "https://cdn.example.com/fast.mp4", rec.ResultURL)
	require.Equal(t, "gen-x", rec.GenerationID)
}

func TestDispatchUnknownProviderFailsClips(t *testing.T) {
	h := newHarness(t, nil)
	clips := h.engine.Dispatcher.Dispatch(context.Background(), DispatchRequest{
		Prompts:  []string{"x", "y"},
		Provider: "missing",
	})
	for _, c := range clips {
		require.Equal(t, domain.JobStatusFailed, c.Status)
		require.Contains(t, c.Error, "provider not configured")
	}
	require.Empty(t, h.provider.Submitted())
}
