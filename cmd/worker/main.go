package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/GCUGrayArea/delicious-lotus/internal/bootstrap"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
	"github.com/GCUGrayArea/delicious-lotus/internal/orchestrator"
)

const sweepWorkers = 8

type pollWorker struct {
	ctx      context.Context
	sweeper  *orchestrator.Sweeper
	logger   infra.Logger
	interval time.Duration
}

var errNoGenerations = errors.New("generation service not configured")

type buildFunc func(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*bootstrap.Runtime, error)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogOptions())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, logger, bootstrap.Build)
	stop()
	if err != nil {
		for _, e := range multierr.Errors(err) {
			logger.Error().Err(e).Msg("worker: stopped with error")
		}
		os.Exit(1)
	}
	logger.Info().Msg("worker: stopped")
}

// run sweeps until ctx is cancelled. The runtime is closed on every path
// once it has been built.
func run(ctx context.Context, cfg *infra.Config, logger infra.Logger, build buildFunc) (err error) {
	rt, err := build(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialise runtime: %w", err)
	}
	defer func() {
		err = multierr.Append(err, rt.Close())
	}()

	sweeper := rt.Engine.NewSweeper(cfg.PollBatch, sweepWorkers)
	if sweeper == nil {
		return errNoGenerations
	}
	worker := &pollWorker{
		ctx:      ctx,
		sweeper:  sweeper,
		logger:   logger,
		interval: cfg.PollInterval,
	}
	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (w *pollWorker) Run() error {
	w.logger.Info().Dur("interval", w.interval).Msg("worker: started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.sweep()
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *pollWorker) sweep() {
	start := time.Now()
	stats, err := w.sweeper.Sweep(w.ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("worker: sweep failed")
		return
	}
	if stats.Scanned == 0 {
		return
	}
	w.logger.Info().
		Int("scanned", stats.Scanned).
		Int("finished", stats.Finished).
		Int("errors", stats.Errors).
		Dur("took", time.Since(start)).
		Msg("worker: sweep done")
}
