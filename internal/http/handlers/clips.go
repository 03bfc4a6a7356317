package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
	"github.com/GCUGrayArea/delicious-lotus/internal/middleware"
	"github.com/GCUGrayArea/delicious-lotus/internal/orchestrator"
)

type dispatchClipsRequest struct {
	GenerationID string            `json:"generation_id"`
	Scenes       []domain.Scene    `json:"scenes"`
	MicroPrompts []json.RawMessage `json:"micro_prompts"`
	AspectRatio  string            `json:"aspect_ratio"`
	Parallelize  bool              `json:"parallelize"`
	Model        string            `json:"model"`
	Provider     string            `json:"provider"`
}

type dispatchClipsResponse struct {
	VideoResults []domain.ClipSummary `json:"video_results"`
}

// microPrompt accepts either a bare string or an object carrying
// prompt_text or prompt.
func microPrompt(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		PromptText string `json:"prompt_text"`
		Prompt     string `json:"prompt"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if strings.TrimSpace(obj.PromptText) != "" {
			return obj.PromptText
		}
		return obj.Prompt
	}
	return ""
}

// DispatchClips submits already planned clip prompts, skipping the
// analysis step.
func (a *App) DispatchClips(w http.ResponseWriter, r *http.Request) {
	var body dispatchClipsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJobBody)).Decode(&body); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	prompts := make([]string, len(body.MicroPrompts))
	for i, raw := range body.MicroPrompts {
		prompts[i] = strings.TrimSpace(microPrompt(raw))
	}
	aspect := body.AspectRatio
	if aspect == "" {
		aspect = "16:9"
	}
	req := orchestrator.DispatchRequest{
		GenerationID: body.GenerationID,
		UserID:       middleware.UserIDFromContext(r.Context()),
		Prompts:      prompts,
		Scenes:       body.Scenes,
		AspectRatio:  aspect,
		Model:        body.Model,
		Provider:     body.Provider,
		Parallelize:  body.Parallelize,
	}
	if err := a.Dispatcher.Validate(req); err != nil {
		a.fail(w, r, err)
		return
	}
	clips := a.Dispatcher.Dispatch(r.Context(), req)
	a.json(w, http.StatusOK, dispatchClipsResponse{VideoResults: clips})
}
