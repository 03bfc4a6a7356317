package domain

import "time"

// GenerationStatus is the aggregate status of a multi-clip generation.
type GenerationStatus string

const (
	GenerationStatusQueued     GenerationStatus = "queued"
	GenerationStatusProcessing GenerationStatus = "processing"
	GenerationStatusComposing  GenerationStatus = "composing"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
)

// IsTerminal reports whether no further clip reconciliation can change s.
func (s GenerationStatus) IsTerminal() bool {
	return s == GenerationStatusCompleted || s == GenerationStatusFailed
}

// ParseGenerationStatus validates a status filter value.
func ParseGenerationStatus(v string) (GenerationStatus, bool) {
	s := GenerationStatus(v)
	switch s {
	case GenerationStatusQueued, GenerationStatusProcessing, GenerationStatusComposing,
		GenerationStatusCompleted, GenerationStatusFailed:
		return s, true
	default:
		return "", false
	}
}

// ClipSummary tracks one provider job inside a generation.
type ClipSummary struct {
	ClipID    string    `json:"clip_id"`
	JobID     string    `json:"job_id,omitempty"`
	SceneID   string    `json:"scene_id,omitempty"`
	Prompt    string    `json:"prompt,omitempty"`
	Status    JobStatus `json:"status"`
	ResultURL string    `json:"result_url,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// GenerationParameters are the user-facing knobs of a generation request.
type GenerationParameters struct {
	AspectRatio     string  `json:"aspect_ratio"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Brand           string  `json:"brand,omitempty"`
	Parallelize     bool    `json:"parallelize"`
	Model           string  `json:"model,omitempty"`
	Provider        string  `json:"provider,omitempty"`
}

// Progress is the derived roll-up of a clip list.
type Progress struct {
	Total      int              `json:"total_clips"`
	Completed  int              `json:"completed_clips"`
	Failed     int              `json:"failed_clips"`
	Percentage float64          `json:"percentage"`
	Status     GenerationStatus `json:"-"`
}

// GenerationRecord groups the clips produced for one user request.
type GenerationRecord struct {
	ID         string               `json:"generation_id"`
	UserID     string               `json:"user_id,omitempty"`
	Prompt     string               `json:"prompt"`
	Parameters GenerationParameters `json:"parameters"`
	Clips      []ClipSummary        `json:"clips"`
	Status     GenerationStatus     `json:"status"`
	Progress   Progress             `json:"progress"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// Recompute derives Status and Progress from Clips. It is the only place the
// aggregate is written, and it always starts from scratch.
func (g *GenerationRecord) Recompute() bool {
	p := Aggregate(g.Clips)
	changed := g.Status != p.Status || g.Progress != p
	g.Progress = p
	g.Status = p.Status
	return changed
}

// Aggregate rolls clip statuses up into a generation status. It is pure and
// idempotent.
func Aggregate(clips []ClipSummary) Progress {
	p := Progress{Total: len(clips)}
	leftQueue := false
	for _, c := range clips {
		switch c.Status {
		case JobStatusSucceeded:
			p.Completed++
		case JobStatusFailed, JobStatusCanceled:
			p.Failed++
		}
		if c.Status != JobStatusQueued {
			leftQueue = true
		}
	}
	if p.Total > 0 {
		p.Percentage = float64(p.Completed) / float64(p.Total) * 100
	}
	switch {
	case p.Total > 0 && p.Failed == p.Total:
		p.Status = GenerationStatusFailed
	case p.Total > 0 && p.Completed == p.Total:
		p.Status = GenerationStatusCompleted
	case p.Total == 0 || !leftQueue:
		p.Status = GenerationStatusQueued
	default:
		p.Status = GenerationStatusProcessing
	}
	return p
}

// ApplyJob copies the reconciled job state onto the matching clip. It returns
// false when no clip tracks rec.JobID or nothing changed.
func (g *GenerationRecord) ApplyJob(rec JobRecord) bool {
	for i := range g.Clips {
		if g.Clips[i].JobID != "" && g.Clips[i].JobID == rec.JobID {
			return g.Clips[i].Apply(rec)
		}
	}
	return false
}

// Apply copies status, result and error from rec. A terminal clip keeps its
// status.
func (c *ClipSummary) Apply(rec JobRecord) bool {
	before := *c
	if rec.Status.IsKnown() && !c.Status.IsTerminal() {
		c.Status = rec.Status
	}
	if rec.ResultURL != "" {
		c.ResultURL = rec.ResultURL
	}
	if rec.Error != "" && c.Error == "" {
		c.Error = rec.Error
	}
	return *c != before
}
