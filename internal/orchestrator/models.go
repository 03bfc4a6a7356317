package orchestrator

import (
	"strings"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

// modelTypes maps the provider models the service submits to directly onto
// the kind of media they produce.
var modelTypes = map[string]domain.GenerationType{
	"google/nano-banana":             domain.GenerationTypeImage,
	"black-forest-labs/flux-schnell": domain.GenerationTypeImage,
	"wan-video/wan-2.5-i2v":          domain.GenerationTypeVideo,
	"wan-video/wan-2.5-t2v":          domain.GenerationTypeVideo,
	"bytedance/seedance-1-pro-fast":  domain.GenerationTypeVideo,
	"google/veo-3.1-fast":            domain.GenerationTypeVideo,
	"minimax/hailuo-2.3-fast":        domain.GenerationTypeVideo,
	"kwaivgi/kling-v2.5-turbo-pro":   domain.GenerationTypeVideo,
	"google/lyria-2":                 domain.GenerationTypeAudio,
	"minimax/music-01":               domain.GenerationTypeAudio,
	"stability-ai/stable-audio-2.5":  domain.GenerationTypeAudio,
	"wan2.5-t2v-preview":             domain.GenerationTypeVideo,
	"wan2.5-i2v-preview":             domain.GenerationTypeVideo,
}

// ModelType returns the media type a known model produces.
func ModelType(model string) (domain.GenerationType, bool) {
	t, ok := modelTypes[strings.ToLower(strings.TrimSpace(model))]
	return t, ok
}
