package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

type modelPlanPayload struct {
	Scenes []modelScenePayload `json:"scenes"`
}

type modelScenePayload struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	Prompt      string  `json:"prompt"`
}

func buildPlanPromptPayload(req domain.PlanRequest) string {
	count := sceneCount(req.DurationSeconds)
	sb := &strings.Builder{}
	sb.WriteString("You are a video director planning short generated clips. Respond strictly with JSON matching this schema: ")
	sb.WriteString(`{"scenes":[{"title":string,"description":string,"duration":number,"prompt":string}]}`)
	fmt.Fprintf(sb, ". Plan exactly %d scenes of about %.0f seconds each for a %s video. ", count, clipSeconds, coalesce(req.AspectRatio, defaultAspect))
	fmt.Fprintf(sb, "Each prompt must be a self-contained text-to-video prompt under 120 words. Input: prompt=%q, brand=%q, total_duration=%.0f.", req.Prompt, req.Brand, req.DurationSeconds)
	return sb.String()
}

func toScenePlan(parsed modelPlanPayload, req domain.PlanRequest) (*domain.ScenePlan, error) {
	if len(parsed.Scenes) == 0 {
		return nil, errors.New("no scenes")
	}
	scenes := parsed.Scenes
	if len(scenes) > maxScenes {
		scenes = scenes[:maxScenes]
	}
	per := sceneDuration(req.DurationSeconds, len(scenes))
	plan := &domain.ScenePlan{Provider: openAIProviderName}
	for i, s := range scenes {
		prompt := coalesce(s.Prompt, s.Description)
		if prompt == "" {
			return nil, fmt.Errorf("scene %d has no prompt", i+1)
		}
		duration := s.Duration
		if duration <= 0 {
			duration = per
		}
		plan.Scenes = append(plan.Scenes, domain.Scene{
			ID:          fmt.Sprintf("scene_%d", i+1),
			Title:       coalesce(s.Title, fmt.Sprintf("Scene %d", i+1)),
			Description: coalesce(s.Description, prompt),
			Duration:    duration,
		})
		plan.Prompts = append(plan.Prompts, truncateRunes(prompt, maxPromptRunes))
	}
	return plan, nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
