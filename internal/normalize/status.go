package normalize

import (
	"strings"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
)

const (
	ProviderReplicate = "replicate"
	ProviderDashScope = "dashscope"
)

var replicateStatuses = map[string]domain.JobStatus{
	"starting":   domain.JobStatusQueued,
	"processing": domain.JobStatusRunning,
	"succeeded":  domain.JobStatusSucceeded,
	"failed":     domain.JobStatusFailed,
	"canceled":   domain.JobStatusCanceled,
}

// DashScope reports UNKNOWN for expired or foreign task ids; it is left as-is
// so the record is never treated as terminal.
var dashScopeStatuses = map[string]domain.JobStatus{
	"pending":   domain.JobStatusQueued,
	"running":   domain.JobStatusRunning,
	"succeeded": domain.JobStatusSucceeded,
	"failed":    domain.JobStatusFailed,
	"canceled":  domain.JobStatusCanceled,
}

var genericStatuses = map[string]domain.JobStatus{
	"queued":      domain.JobStatusQueued,
	"pending":     domain.JobStatusQueued,
	"in_queue":    domain.JobStatusQueued,
	"starting":    domain.JobStatusQueued,
	"running":     domain.JobStatusRunning,
	"processing":  domain.JobStatusRunning,
	"in_progress": domain.JobStatusRunning,
	"succeeded":   domain.JobStatusSucceeded,
	"success":     domain.JobStatusSucceeded,
	"completed":   domain.JobStatusSucceeded,
	"failed":      domain.JobStatusFailed,
	"error":       domain.JobStatusFailed,
	"timed_out":   domain.JobStatusFailed,
	"canceled":    domain.JobStatusCanceled,
	"cancelled":   domain.JobStatusCanceled,
}

// Status maps a provider status token onto the canonical enum. Tokens no
// vocabulary knows are returned unchanged.
func Status(provider, token string) domain.JobStatus {
	key := strings.ToLower(strings.TrimSpace(token))
	if key == "" {
		return ""
	}
	var vocab map[string]domain.JobStatus
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderReplicate:
		vocab = replicateStatuses
	case ProviderDashScope:
		vocab = dashScopeStatuses
	}
	if s, ok := vocab[key]; ok {
		return s
	}
	if s, ok := genericStatuses[key]; ok {
		return s
	}
	return domain.JobStatus(strings.TrimSpace(token))
}
