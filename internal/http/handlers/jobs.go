package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
	"github.com/GCUGrayArea/delicious-lotus/internal/middleware"
	"github.com/GCUGrayArea/delicious-lotus/internal/orchestrator"
)

const maxJobBody = 256 << 10

type submittedJob struct {
	JobID          string                `json:"job_id"`
	Status         domain.JobStatus      `json:"status"`
	Model          string                `json:"model"`
	GenerationType domain.GenerationType `json:"generation_type"`
}

func (a *App) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.SubmitJobRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJobBody)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.UserID == "" {
		req.UserID = middleware.UserIDFromContext(r.Context())
	}
	rec, err := a.Dispatcher.SubmitJob(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, submittedJob{
		JobID:          rec.JobID,
		Status:         rec.Status,
		Model:          rec.Model,
		GenerationType: rec.GenerationType,
	})
}

func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	autoImport := true
	if v := r.URL.Query().Get("auto_import"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "auto_import must be a boolean")
			return
		}
		autoImport = parsed
	}
	res, err := a.Poller.Status(r.Context(), jobID, autoImport)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, res)
}
