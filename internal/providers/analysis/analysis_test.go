package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func chatResponse(t *testing.T, content string) *http.Response {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(body))}
}

func TestStaticPlannerSceneCount(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		duration float64
		scenes   int
	}{
		{name: "default", duration: 0, scenes: 3},
		{name: "short", duration: 4, scenes: 1},
		{name: "thirty", duration: 30, scenes: 6},
		{name: "capped", duration: 120, scenes: maxScenes},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			plan, err := NewStaticPlanner().Plan(context.Background(), domain.PlanRequest{Prompt: "a fox in the snow", DurationSeconds: tc.duration, Brand: "Acme"})
			if err != nil {
				t.Fatalf("plan: %v", err)
			}
			if len(plan.Scenes) != tc.scenes || len(plan.Prompts) != tc.scenes {
				t.Fatalf("scenes=%d prompts=%d, want %d", len(plan.Scenes), len(plan.Prompts), tc.scenes)
			}
			if plan.Scenes[0].ID != "scene_1" {
				t.Fatalf("scene id = %q", plan.Scenes[0].ID)
			}
			if !strings.Contains(plan.Prompts[0], "a fox in the snow") || !strings.Contains(plan.Prompts[0], "Acme") {
				t.Fatalf("prompt = %q", plan.Prompts[0])
			}
			if tc.scenes > 1 && plan.Scenes[tc.scenes-1].Title != "Closing" {
				t.Fatalf("last scene title = %q", plan.Scenes[tc.scenes-1].Title)
			}
		})
	}
}

func TestStaticPlannerRejectsEmptyPrompt(t *testing.T) {
	_, err := NewStaticPlanner().Plan(context.Background(), domain.PlanRequest{Prompt: "   "})
	if !errors.Is(err, domain.ErrInvalidPrompt) {
		t.Fatalf("expected invalid prompt, got %v", err)
	}
}

func TestOpenAIPlannerParsesFencedJSON(t *testing.T) {
	content := "```json\n{\"scenes\":[{\"title\":\"Dawn\",\"description\":\"sunrise\",\"prompt\":\"a fox at dawn\"},{\"title\":\"Hunt\",\"prompt\":\"a fox pouncing\"}]}\n```"
	planner, err := NewOpenAIPlanner(OpenAIOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/v1/chat/completions" {
				t.Fatalf("path = %q", r.URL.Path)
			}
			return chatResponse(t, content), nil
		})},
	})
	if err != nil {
		t.Fatalf("new planner: %v", err)
	}
	plan, err := planner.Plan(context.Background(), domain.PlanRequest{Prompt: "a fox", DurationSeconds: 10})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Provider != openAIProviderName || plan.FallbackReason != "" {
		t.Fatalf("provider = %q reason = %q", plan.Provider, plan.FallbackReason)
	}
	if len(plan.Prompts) != 2 || plan.Prompts[1] != "a fox pouncing" {
		t.Fatalf("prompts = %v", plan.Prompts)
	}
	if plan.Scenes[1].Description != "a fox pouncing" || plan.Scenes[1].Duration != 5 {
		t.Fatalf("scene = %+v", plan.Scenes[1])
	}
}

func TestOpenAIPlannerFallback(t *testing.T) {
	var capturedReason string
	planner, err := NewOpenAIPlanner(OpenAIOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("boom")
		})},
		OnFallback: func(reason string, err error) {
			capturedReason = reason
		},
	})
	if err != nil {
		t.Fatalf("new planner: %v", err)
	}
	plan, err := planner.Plan(context.Background(), domain.PlanRequest{Prompt: "a fox"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Provider != staticProviderName {
		t.Fatalf("Provider = %q, want %q", plan.Provider, staticProviderName)
	}
	if plan.FallbackReason != "http_request" || capturedReason != "http_request" {
		t.Fatalf("fallback reason = %q / %q", plan.FallbackReason, capturedReason)
	}
}

func TestOpenAIPlannerFallsBackOnEmptyPlan(t *testing.T) {
	planner, _ := NewOpenAIPlanner(OpenAIOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return chatResponse(t, `{"scenes":[]}`), nil
		})},
	})
	plan, err := planner.Plan(context.Background(), domain.PlanRequest{Prompt: "a fox"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.FallbackReason != "invalid_plan" {
		t.Fatalf("reason = %q", plan.FallbackReason)
	}
}

func TestNormalizeOpenAIModel(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		input  string
		model  string
		reason string
	}{
		{name: "exact_default", input: "gpt-4o-mini", model: "gpt-4o-mini", reason: ""},
		{name: "alias", input: "GPT4o Mini", model: "gpt-4o-mini", reason: "alias"},
		{name: "unsupported", input: "davinci", model: "gpt-4o-mini", reason: "defaulted"},
		{name: "empty", input: "", model: "gpt-4o-mini", reason: ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gotModel, gotReason := normalizeOpenAIModel(tc.input)
			if gotModel != tc.model {
				t.Fatalf("model = %q, want %q", gotModel, tc.model)
			}
			if gotReason != tc.reason {
				t.Fatalf("reason = %q, want %q", gotReason, tc.reason)
			}
		})
	}
}

func TestExtractJSONFragment(t *testing.T) {
	got := extractJSONFragment("Here you go:\n{\"scenes\":[]}\nThanks")
	if got != `{"scenes":[]}` {
		t.Fatalf("fragment = %q", got)
	}
}
