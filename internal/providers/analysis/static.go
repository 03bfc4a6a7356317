// Package analysis turns a user prompt into planned scenes and one provider
// prompt per scene.
package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

const (
	staticProviderName = "static"
	openAIProviderName = "openai"

	clipSeconds     = 5.0
	defaultDuration = 15.0
	maxScenes       = 8
	defaultAspect   = "16:9"
	maxPromptRunes  = 900
)

var sceneBeats = []struct {
	title string
	cue   string
}{
	{"opening", "establishing shot that introduces the subject"},
	{"detail", "close-up that shows texture and detail"},
	{"motion", "dynamic camera move following the action"},
	{"context", "wide shot placing the subject in its setting"},
	{"highlight", "hero shot with dramatic lighting"},
	{"people", "people interacting naturally with the subject"},
	{"mood", "atmospheric shot that sets the emotional tone"},
	{"closing", "calm closing shot that lingers on the subject"},
}

// StaticPlanner splits a prompt into fixed-length scenes without calling a
// model. It is the fallback when no analysis provider is configured.
type StaticPlanner struct{}

func NewStaticPlanner() *StaticPlanner {
	return &StaticPlanner{}
}

func (s *StaticPlanner) Plan(ctx context.Context, req domain.PlanRequest) (*domain.ScenePlan, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, domain.ErrInvalidPrompt
	}
	count := sceneCount(req.DurationSeconds)
	per := sceneDuration(req.DurationSeconds, count)
	titleCase := cases.Title(language.English)

	plan := &domain.ScenePlan{Provider: staticProviderName}
	for i := 0; i < count; i++ {
		beat := sceneBeats[beatIndex(i, count)]
		scene := domain.Scene{
			ID:          fmt.Sprintf("scene_%d", i+1),
			Title:       titleCase.String(beat.title),
			Description: fmt.Sprintf("%s: %s", beat.cue, prompt),
			Duration:    per,
		}
		plan.Scenes = append(plan.Scenes, scene)
		plan.Prompts = append(plan.Prompts, buildClipPrompt(prompt, scene, req))
	}
	return plan, nil
}

func sceneCount(duration float64) int {
	if duration <= 0 {
		duration = defaultDuration
	}
	n := int(math.Ceil(duration / clipSeconds))
	if n < 1 {
		n = 1
	}
	if n > maxScenes {
		n = maxScenes
	}
	return n
}

func sceneDuration(duration float64, count int) float64 {
	if duration <= 0 {
		duration = defaultDuration
	}
	return math.Round(duration/float64(count)*10) / 10
}

// beatIndex keeps the last scene on the closing beat.
func beatIndex(i, count int) int {
	if count > 1 && i == count-1 {
		return len(sceneBeats) - 1
	}
	return i % (len(sceneBeats) - 1)
}

func buildClipPrompt(prompt string, scene domain.Scene, req domain.PlanRequest) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "%s. %s.", prompt, scene.Description)
	if brand := strings.TrimSpace(req.Brand); brand != "" {
		fmt.Fprintf(sb, " Visual identity of %s.", brand)
	}
	fmt.Fprintf(sb, " Cinematic, %s framing, smooth motion.", coalesce(req.AspectRatio, defaultAspect))
	return truncateRunes(sb.String(), maxPromptRunes)
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

var _ domain.Planner = (*StaticPlanner)(nil)
