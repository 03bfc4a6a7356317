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

const maxGenerationBody = 64 << 10

type generationList struct {
	Items  []domain.GenerationRecord `json:"items"`
	Total  int                       `json:"total"`
	Limit  int                       `json:"limit"`
	Offset int                       `json:"offset"`
}

func (a *App) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	if a.Generations == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "generation service not configured")
		return
	}
	var req orchestrator.CreateGenerationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGenerationBody)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.UserID == "" {
		req.UserID = middleware.UserIDFromContext(r.Context())
	}
	rec, err := a.Generations.Create(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, rec)
}

func (a *App) GetGeneration(w http.ResponseWriter, r *http.Request) {
	if a.Generations == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "generation service not configured")
		return
	}
	rec, err := a.Generations.Get(r.Context(), chi.URLParam(r, "generation_id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, rec)
}

func (a *App) ListGenerations(w http.ResponseWriter, r *http.Request) {
	if a.Generations == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "generation service not configured")
		return
	}
	q := r.URL.Query()
	var filter domain.GenerationFilter
	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil || filter.Limit < 1 {
			a.error(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil || filter.Offset < 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "offset must be a non-negative integer")
			return
		}
	}
	if v := q.Get("status"); v != "" {
		status, ok := domain.ParseGenerationStatus(v)
		if !ok {
			a.error(w, http.StatusBadRequest, "bad_request", "unknown status")
			return
		}
		filter.Status = status
	}

	items, total, err := a.Generations.List(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	limit, offset := filter.Bounds()
	if items == nil {
		items = []domain.GenerationRecord{}
	}
	a.json(w, http.StatusOK, generationList{Items: items, Total: total, Limit: limit, Offset: offset})
}
