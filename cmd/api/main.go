package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"

	"github.com/GCUGrayArea/delicious-lotus/internal/bootstrap"
	"github.com/GCUGrayArea/delicious-lotus/internal/http/handlers"
	httpapi "github.com/GCUGrayArea/delicious-lotus/internal/http/httpapi"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
)

func main() {
	// Konfigurasi & logger
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogOptions())

	ctx := context.Background()
	rt, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise runtime")
	}

	app := handlers.NewApp(rt.Engine, &logger)
	for name, check := range rt.Checks {
		app.Checks[name] = check
	}
	if rt.Engine.Generations == nil {
		logger.Warn().Msg("generation service disabled")
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		RateLimitPerMin: cfg.RateLimitPerMin,
		WebhookSecret:   cfg.ReplicateWebhookSecret,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
	})
	if cfg.ReplicateWebhookSecret == "" {
		logger.Warn().Msg("REPLICATE_WEBHOOK_SECRET not set, webhook signatures are not verified")
	}
	if cfg.WebhookIsLocal() {
		logger.Warn().Str("webhook_base_url", cfg.WebhookBaseURL).Msg("webhook base url is local, relying on polling")
	}

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	err = multierr.Append(server.Shutdown(shutdownCtx), rt.Close())
	for _, e := range multierr.Errors(err) {
		logger.Error().Err(e).Msg("shutdown error")
	}
	logger.Info().Msg("server stopped")
}
