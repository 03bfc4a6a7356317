// Package orchestrator reconciles provider jobs reported through webhooks and
// polling, dispatches generation clips and rolls clip state up into
// generations.
package orchestrator

import (
	"errors"
	"time"

	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
	"github.com/GCUGrayArea/delicious-lotus/internal/providers"
)

const (
	DefaultJobTTL       = 24 * time.Hour
	DefaultVideoModel   = "wan-video/wan-2.5-t2v"
	defaultRefreshLimit = 4
)

// Options wires the collaborators shared by every reconciler.
type Options struct {
	Jobs        domain.JobStore
	Marker      domain.DedupMarker
	Events      domain.EventPublisher
	Imports     domain.ImportQueue
	Providers   *providers.Registry
	Generations domain.GenerationRepository
	Planner     domain.Planner
	Logger      *infra.Logger

	JobTTL            time.Duration
	DefaultImportUser string
	DefaultModel      string
	WebhookBaseURL    string
	// WebhookLocal marks a base URL providers cannot reach.
	WebhookLocal bool
	RefreshLimit int
	Clock        func() time.Time
}

func (o *Options) withDefaults() error {
	if o.Jobs == nil {
		return errors.New("orchestrator: job store is required")
	}
	if o.Marker == nil {
		return errors.New("orchestrator: dedup marker is required")
	}
	if o.Imports == nil {
		return errors.New("orchestrator: import queue is required")
	}
	if o.Providers == nil {
		return errors.New("orchestrator: provider registry is required")
	}
	if o.Logger == nil {
		o.Logger = infra.DiscardLogger()
	}
	if o.JobTTL <= 0 {
		o.JobTTL = DefaultJobTTL
	}
	if o.DefaultModel == "" {
		o.DefaultModel = DefaultVideoModel
	}
	if o.RefreshLimit <= 0 {
		o.RefreshLimit = defaultRefreshLimit
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return nil
}

// Engine bundles the reconcilers built from one set of Options.
type Engine struct {
	Importer    *Importer
	Webhooks    *WebhookReconciler
	Poller      *PollReconciler
	Dispatcher  *Dispatcher
	Generations *GenerationService
}

// New builds the reconcilers. The generation service is only built when
// Options carries a generation repository and a planner.
func New(opts Options) (*Engine, error) {
	if err := opts.withDefaults(); err != nil {
		return nil, err
	}
	ev := &eventSink{publisher: opts.Events, logger: opts.Logger, now: opts.Clock}
	imp := &Importer{
		jobs:        opts.Jobs,
		marker:      opts.Marker,
		queue:       opts.Imports,
		logger:      opts.Logger,
		ttl:         opts.JobTTL,
		defaultUser: opts.DefaultImportUser,
		now:         opts.Clock,
	}
	poll := &PollReconciler{
		jobs:     opts.Jobs,
		registry: opts.Providers,
		importer: imp,
		events:   ev,
		logger:   opts.Logger,
		ttl:      opts.JobTTL,
		limit:    opts.RefreshLimit,
		now:      opts.Clock,
	}
	disp := &Dispatcher{
		jobs:       opts.Jobs,
		registry:   opts.Providers,
		events:     ev,
		logger:     opts.Logger,
		ttl:        opts.JobTTL,
		model:      opts.DefaultModel,
		webhookURL: webhookURL(opts.WebhookBaseURL),
		now:        opts.Clock,
	}
	e := &Engine{Importer: imp, Poller: poll, Dispatcher: disp}

	var syncer ClipSyncer
	if opts.Generations != nil && opts.Planner != nil {
		e.Generations = &GenerationService{
			repo:         opts.Generations,
			planner:      opts.Planner,
			dispatcher:   disp,
			poller:       poll,
			logger:       opts.Logger,
			webhookLocal: opts.WebhookLocal,
			now:          opts.Clock,
		}
		syncer = e.Generations
	}
	e.Webhooks = &WebhookReconciler{
		jobs:     opts.Jobs,
		importer: imp,
		events:   ev,
		syncer:   syncer,
		logger:   opts.Logger,
		ttl:      opts.JobTTL,
	}
	return e, nil
}
