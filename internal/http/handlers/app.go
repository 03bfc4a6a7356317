package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
	"github.com/GCUGrayArea/delicious-lotus/internal/orchestrator"
)

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type App struct {
	Webhooks    *orchestrator.WebhookReconciler
	Poller      *orchestrator.PollReconciler
	Dispatcher  *orchestrator.Dispatcher
	Generations *orchestrator.GenerationService
	Checks      map[string]HealthCheck
	Logger      *infra.Logger
}

func NewApp(engine *orchestrator.Engine, logger *infra.Logger) *App {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &App{
		Webhooks:    engine.Webhooks,
		Poller:      engine.Poller,
		Dispatcher:  engine.Dispatcher,
		Generations: engine.Generations,
		Checks:      map[string]HealthCheck{},
		Logger:      logger,
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, msg string) {
	a.json(w, code, errorBody{Error: kind, Message: msg})
}

// fail maps domain errors onto HTTP responses.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPayload), errors.Is(err, domain.ErrInvalidPrompt):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrProviderNotConfigured):
		a.error(w, http.StatusServiceUnavailable, "provider_not_configured", err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, domain.ErrConcurrentModification):
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("store unavailable")
		a.error(w, http.StatusServiceUnavailable, "unavailable", "storage temporarily unavailable")
	case errors.Is(err, domain.ErrProviderFailure):
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("provider failure")
		a.error(w, http.StatusBadGateway, "provider_failure", "generation provider failed")
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
