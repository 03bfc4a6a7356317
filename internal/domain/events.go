package domain

import (
	"encoding/json"
	"time"
)

// Channel names for job status events.
const (
	GlobalUpdatesChannel = "updates"
	jobChannelPrefix     = "progress:"
)

// JobChannel returns the per-job event channel.
func JobChannel(jobID string) string {
	return jobChannelPrefix + jobID
}

// EventResult carries the output of a finished job.
type EventResult struct {
	URL    string          `json:"url,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
}

// JobEvent is the canonical status transition published to subscribers.
type JobEvent struct {
	Event     string       `json:"event"`
	JobID     string       `json:"job_id"`
	Status    JobStatus    `json:"status"`
	Progress  *int         `json:"progress"`
	Result    *EventResult `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewJobEvent builds the event for the current state of rec.
func NewJobEvent(rec JobRecord, at time.Time) JobEvent {
	ev := JobEvent{
		Event:     "job." + string(rec.Status),
		JobID:     rec.JobID,
		Status:    rec.Status,
		Error:     rec.Error,
		Timestamp: at.UTC(),
	}
	if rec.Status == JobStatusSucceeded {
		full := 100
		ev.Progress = &full
	}
	if rec.ResultURL != "" || len(rec.RawOutput) > 0 {
		ev.Result = &EventResult{URL: rec.ResultURL, Output: rec.RawOutput}
	}
	return ev
}

// ImportMetadata travels with an import request for provenance.
type ImportMetadata struct {
	AIGenerated bool   `json:"ai_generated"`
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	SourceJobID string `json:"source_job_id"`
}

// ImportRequest asks the downstream media worker to copy a finished result
// into permanent storage.
type ImportRequest struct {
	SourceURL          string         `json:"source_url"`
	GenerationType     GenerationType `json:"generation_type"`
	DestinationUser    string         `json:"destination_user"`
	DestinationAssetID string         `json:"destination_asset_id"`
	DestinationName    string         `json:"destination_name"`
	Metadata           ImportMetadata `json:"metadata"`
	EnqueuedAt         time.Time      `json:"enqueued_at"`
}
