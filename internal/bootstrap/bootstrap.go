// Package bootstrap wires configuration into the stores, providers and
// reconcilers shared by the api and worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/GCUGrayArea/delicious-lotus/internal/adapter/fallback"
	"github.com/GCUGrayArea/delicious-lotus/internal/adapter/redisstore"
	"github.com/GCUGrayArea/delicious-lotus/internal/adapter/repo"
	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra/credentials"
	"github.com/GCUGrayArea/delicious-lotus/internal/normalize"
	"github.com/GCUGrayArea/delicious-lotus/internal/orchestrator"
	"github.com/GCUGrayArea/delicious-lotus/internal/providers"
	"github.com/GCUGrayArea/delicious-lotus/internal/providers/analysis"
	"github.com/GCUGrayArea/delicious-lotus/internal/providers/dashscope"
	"github.com/GCUGrayArea/delicious-lotus/internal/providers/replicate"
)

// Runtime holds the live connections and the reconcilers built on them.
type Runtime struct {
	Engine      *orchestrator.Engine
	Generations domain.GenerationRepository
	Redis       *redis.Client
	DB          *pgxpool.Pool
	Checks      map[string]func(ctx context.Context) error
}

// Build connects Redis, and Postgres when DATABASE_URL is set, then wires
// the orchestrator. Without Postgres, generations are kept in Redis.
func Build(ctx context.Context, cfg *infra.Config, logger infra.Logger) (rt *Runtime, err error) {
	rt = &Runtime{Checks: map[string]func(ctx context.Context) error{}}
	defer func() {
		if err != nil {
			err = multierr.Append(err, rt.Close())
			rt = nil
		}
	}()

	rt.Redis, err = infra.NewRedisClient(ctx, cfg)
	if err != nil {
		return rt, err
	}
	rt.Checks["redis"] = func(ctx context.Context) error { return rt.Redis.Ping(ctx).Err() }
	rt.Generations = redisstore.NewGenerationStore(rt.Redis)

	var creds *credentials.Store
	if cfg.DatabaseURL != "" {
		rt.DB, err = infra.NewDBPool(ctx, cfg)
		if err != nil {
			return rt, err
		}
		rt.Checks["postgres"] = rt.DB.Ping
		runner := infra.NewSQLRunner(rt.DB, logger)
		pg := repo.NewGenerationRepository(runner)
		if err = pg.EnsureSchema(ctx); err != nil {
			return rt, fmt.Errorf("ensure schema: %w", err)
		}
		rt.Generations = pg
		creds = credentials.NewStore(runner)
		if err = creds.EnsureSchema(ctx); err != nil {
			return rt, err
		}
	} else {
		logger.Warn().Msg("DATABASE_URL not set, generations are stored in redis")
	}

	registry, err := buildProviders(ctx, cfg, logger, creds)
	if err != nil {
		return rt, err
	}

	jobs := fallback.NewJobStore(redisstore.NewJobStore(rt.Redis), fallback.Options{Logger: &logger})
	rt.Engine, err = orchestrator.New(orchestrator.Options{
		Jobs:              jobs,
		Marker:            redisstore.NewDedupMarker(rt.Redis),
		Events:            redisstore.NewPublisher(rt.Redis),
		Imports:           redisstore.NewImportQueue(rt.Redis),
		Providers:         registry,
		Generations:       rt.Generations,
		Planner:           buildPlanner(ctx, cfg, logger, creds),
		Logger:            &logger,
		JobTTL:            cfg.JobTTL,
		DefaultImportUser: cfg.DefaultImportUserID,
		DefaultModel:      cfg.DefaultVideoModel,
		WebhookBaseURL:    cfg.WebhookBaseURL,
		WebhookLocal:      cfg.WebhookIsLocal(),
	})
	if err != nil {
		return rt, err
	}
	return rt, nil
}

func buildProviders(ctx context.Context, cfg *infra.Config, logger infra.Logger, creds *credentials.Store) (*providers.Registry, error) {
	httpClient := &http.Client{Timeout: cfg.ProviderTimeout}

	replicateToken, err := creds.Resolve(ctx, normalize.ProviderReplicate, cfg.ReplicateAPIToken)
	if err != nil {
		logger.Warn().Err(err).Msg("load replicate token from store failed")
	}
	rep, err := replicate.NewClient(replicate.Options{
		APIToken:   replicateToken,
		BaseURL:    cfg.ReplicateBaseURL,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		return nil, err
	}
	if !rep.HasCredentials() {
		logger.Warn().Msg("replicate api token missing, submissions will fail")
	}
	registry := providers.NewRegistry(rep)

	dashKey, err := creds.Resolve(ctx, normalize.ProviderDashScope, cfg.DashScopeAPIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("load dashscope key from store failed")
	}
	if dashKey != "" {
		ds, err := dashscope.NewClient(dashscope.Options{
			APIKey:     dashKey,
			BaseURL:    cfg.DashScopeBaseURL,
			Model:      cfg.DashScopeModel,
			HTTPClient: httpClient,
			Logger:     &logger,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(ds)
	}
	logger.Info().Strs("providers", registry.Names()).Msg("providers registered")
	return registry, nil
}

func buildPlanner(ctx context.Context, cfg *infra.Config, logger infra.Logger, creds *credentials.Store) domain.Planner {
	static := analysis.NewStaticPlanner()
	apiKey, err := creds.Resolve(ctx, credentials.ProviderOpenAI, cfg.OpenAIAPIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("load openai key from store failed")
	}
	if apiKey == "" {
		return static
	}
	planner, err := analysis.NewOpenAIPlanner(analysis.OpenAIOptions{
		APIKey:   apiKey,
		Model:    cfg.OpenAIModel,
		BaseURL:  cfg.OpenAIBaseURL,
		Fallback: static,
		OnFallback: func(reason string, err error) {
			logger.Warn().Err(err).Str("reason", reason).Msg("scene planner fallback")
		},
		OnWarning: func(reason, detail string) {
			logger.Warn().Str("reason", reason).Str("detail", detail).Msg("scene planner warning")
		},
	})
	if err != nil {
		logger.Warn().Err(err).Msg("openai planner unavailable, using static planner")
		return static
	}
	return planner
}

// Close releases every connection held by the runtime.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var err error
	if r.Redis != nil {
		err = multierr.Append(err, r.Redis.Close())
	}
	if r.DB != nil {
		r.DB.Close()
	}
	return err
}
