package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// GenerationType enumerates the media categories a provider job can produce.
type GenerationType string

const (
	GenerationTypeImage GenerationType = "image"
	GenerationTypeVideo GenerationType = "video"
	GenerationTypeAudio GenerationType = "audio"
)

func (t GenerationType) IsValid() bool {
	switch t {
	case GenerationTypeImage, GenerationTypeVideo, GenerationTypeAudio:
		return true
	default:
		return false
	}
}

// JobStatus is the canonical job lifecycle state. Provider vocabularies are
// mapped onto it by the normalize package; unmapped tokens are carried as-is.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// IsKnown reports whether s is one of the canonical states.
func (s JobStatus) IsKnown() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s is absorbing. Unknown tokens are never terminal.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

func (s JobStatus) rank() int {
	switch s {
	case JobStatusQueued:
		return 1
	case JobStatusRunning:
		return 2
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return 3
	default:
		return 0
	}
}

// JobRecord is the stored view of one provider submission. JobID is the only
// identity; everything else is mutable metadata.
type JobRecord struct {
	JobID          string          `json:"job_id"`
	GenerationID   string          `json:"generation_id,omitempty"`
	ClipID         string          `json:"clip_id,omitempty"`
	SceneID        string          `json:"scene_id,omitempty"`
	GenerationType GenerationType  `json:"generation_type,omitempty"`
	Prompt         string          `json:"prompt,omitempty"`
	Model          string          `json:"model,omitempty"`
	Provider       string          `json:"provider,omitempty"`
	UserID         string          `json:"user_id,omitempty"`
	Status         JobStatus       `json:"status"`
	KnownStatus    JobStatus       `json:"known_status,omitempty"`
	ResultURL      string          `json:"result_url,omitempty"`
	RawOutput      json.RawMessage `json:"output,omitempty"`
	Error          string          `json:"error,omitempty"`
	AssetID        string          `json:"asset_id,omitempty"`
	ImportJobID    string          `json:"import_job_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Fresh reports whether the record can be served without asking the provider:
// terminal, and carrying a result URL when it succeeded.
func (r JobRecord) Fresh() bool {
	if !r.Status.IsTerminal() {
		return false
	}
	if r.Status == JobStatusSucceeded && r.ResultURL == "" {
		return false
	}
	return true
}

// Importable reports whether the record qualifies for the one-shot import.
func (r JobRecord) Importable() bool {
	return r.Status == JobStatusSucceeded && r.ResultURL != ""
}

// JobPatch is a partial update. Empty fields leave the stored value alone.
type JobPatch struct {
	GenerationID   string
	ClipID         string
	SceneID        string
	GenerationType GenerationType
	Prompt         string
	Model          string
	Provider       string
	UserID         string

	Status    JobStatus
	ResultURL string
	RawOutput json.RawMessage
	Error     string

	AssetID     string
	ImportJobID string

	// Refresh lets creation-time metadata in the patch overwrite stored values.
	Refresh bool
}

// PatchFromRecord converts a full record into a patch, used when a record is
// written for the first time through Merge.
func PatchFromRecord(r JobRecord) JobPatch {
	return JobPatch{
		GenerationID:   r.GenerationID,
		ClipID:         r.ClipID,
		SceneID:        r.SceneID,
		GenerationType: r.GenerationType,
		Prompt:         r.Prompt,
		Model:          r.Model,
		Provider:       r.Provider,
		UserID:         r.UserID,
		Status:         r.Status,
		ResultURL:      r.ResultURL,
		RawOutput:      r.RawOutput,
		Error:          r.Error,
		AssetID:        r.AssetID,
		ImportJobID:    r.ImportJobID,
	}
}

// MergeJob applies patch onto existing and returns the merged record. It never
// mutates existing. A nil existing record starts a new one for jobID.
//
// Terminal statuses are absorbing and known statuses never move backwards.
// Once terminal, result URL, error and raw output are only back-filled.
func MergeJob(jobID string, existing *JobRecord, patch JobPatch, now time.Time) JobRecord {
	var out JobRecord
	if existing != nil {
		out = *existing
	} else {
		out = JobRecord{JobID: jobID, Status: JobStatusQueued, CreatedAt: now}
	}
	out.JobID = jobID
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}

	wasTerminal := existing != nil && existing.Status.IsTerminal()

	mergeMeta(&out.GenerationID, patch.GenerationID, patch.Refresh)
	mergeMeta(&out.ClipID, patch.ClipID, patch.Refresh)
	mergeMeta(&out.SceneID, patch.SceneID, patch.Refresh)
	mergeMeta(&out.Prompt, patch.Prompt, patch.Refresh)
	mergeMeta(&out.Model, patch.Model, patch.Refresh)
	mergeMeta(&out.Provider, patch.Provider, patch.Refresh)
	mergeMeta(&out.UserID, patch.UserID, patch.Refresh)
	if patch.GenerationType != "" && (out.GenerationType == "" || patch.Refresh) {
		out.GenerationType = patch.GenerationType
	}

	if patch.Status != "" && !wasTerminal {
		advanceStatus(&out, patch.Status)
	}

	if wasTerminal {
		backfill(&out.ResultURL, patch.ResultURL)
		backfill(&out.Error, patch.Error)
		if len(out.RawOutput) == 0 && len(patch.RawOutput) > 0 {
			out.RawOutput = cloneRaw(patch.RawOutput)
		}
	} else {
		if strings.TrimSpace(patch.ResultURL) != "" {
			out.ResultURL = patch.ResultURL
		}
		if strings.TrimSpace(patch.Error) != "" {
			out.Error = patch.Error
		}
		if len(patch.RawOutput) > 0 {
			out.RawOutput = cloneRaw(patch.RawOutput)
		}
	}

	backfill(&out.AssetID, patch.AssetID)
	backfill(&out.ImportJobID, patch.ImportJobID)

	out.UpdatedAt = now
	return out
}

// advanceStatus applies next unless it would move the record behind the
// furthest known status it has reached. Unknown tokens are stored as-is and
// KnownStatus remembers the stage underneath them.
func advanceStatus(rec *JobRecord, next JobStatus) {
	if rec.Status.IsTerminal() {
		return
	}
	floor := rec.Status
	if !floor.IsKnown() {
		floor = rec.KnownStatus
	}
	if !next.IsKnown() {
		rec.Status = next
		if floor.IsKnown() {
			rec.KnownStatus = floor
		}
		return
	}
	if next.rank() < floor.rank() {
		rec.Status = floor
		return
	}
	rec.Status = next
	rec.KnownStatus = next
}

func mergeMeta(dst *string, value string, refresh bool) {
	if value == "" {
		return
	}
	if *dst == "" || refresh {
		*dst = value
	}
}

func backfill(dst *string, value string) {
	if *dst == "" && strings.TrimSpace(value) != "" {
		*dst = value
	}
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	return append(json.RawMessage(nil), raw...)
}
