// Package app wires configuration to use cases and owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"SEOPilot/internal/api"
	"SEOPilot/internal/config"
	"SEOPilot/internal/domain"
	"SEOPilot/internal/infrastructure/fetch"
	"SEOPilot/internal/infrastructure/images"
	"SEOPilot/internal/infrastructure/llm"
	"SEOPilot/internal/infrastructure/scheduler"
	"SEOPilot/internal/infrastructure/search"
	"SEOPilot/internal/infrastructure/storage"
	"SEOPilot/internal/infrastructure/telegram"
	"SEOPilot/internal/logging"
	"SEOPilot/internal/metrics"
	"SEOPilot/internal/ports"
	"SEOPilot/internal/prompt"
	"SEOPilot/internal/runner"
	"SEOPilot/internal/scoring"
	"SEOPilot/internal/selection"
	"SEOPilot/internal/synthesis"
	"SEOPilot/internal/usecase"
)

const defaultShutdownTimeout = 30 * time.Second

// Application holds the wired services of one process.
type Application struct {
	cfg         config.Config
	logger      *slog.Logger
	store       *storage.Store
	metrics     *metrics.Recorder
	pipeline    *usecase.Pipeline
	topics      *usecase.Topics
	regenerator *usecase.Regenerator
	review      *usecase.Review
	pool        *runner.Pool
}

// New opens storage and builds every component from cfg.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prompts, err := prompt.Load(prompt.Overrides{
		Scoring:      cfg.Prompts.Scoring,
		Synthesis:    cfg.Prompts.Synthesis,
		Modification: cfg.Prompts.Modification,
		Suggestions:  cfg.Prompts.Suggestions,
	})
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	completer, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, err
	}

	searchProvider, err := search.FromConfig(cfg.Search, nil)
	if err != nil {
		return nil, err
	}

	resolver, err := fetch.NewResolver(cfg.Fetcher, baseLogger.With("component", "resolver"))
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	rec := metrics.New()

	steps := &selection.Steps{
		Resolver:        resolver,
		Fetcher:         fetch.NewFetcher(cfg.Fetcher, nil),
		Scorer:          scoring.New(metrics.InstrumentCompleter(completer, "scoring", rec), prompts, baseLogger.With("component", "scorer")),
		Store:           store,
		Metrics:         rec,
		Logger:          baseLogger.With("component", "gatherer"),
		MinContentRunes: cfg.Fetcher.MinContentChars,
	}
	var gatherer selection.EvidenceGatherer = selection.SequentialGatherer{Steps: steps}
	if cfg.Fetcher.Concurrency > 1 {
		gatherer = selection.ConcurrentGatherer{Steps: steps, Limit: cfg.Fetcher.Concurrency}
	}
	selector := selection.NewSelector(searchProvider, gatherer, rec, baseLogger.With("component", "selector"))

	synthesizer := synthesis.New(metrics.InstrumentCompleter(completer, "synthesis", rec), prompts, baseLogger.With("component", "synthesizer"))

	deps := usecase.PipelineDeps{
		Selector:    selector,
		Synthesizer: synthesizer,
		Store:       store,
		Metrics:     rec,
		Logger:      baseLogger.With("component", "pipeline"),
	}
	if cfg.Images.AccessKey != "" {
		deps.Images = images.NewUnsplash(cfg.Images)
	} else {
		baseLogger.Info("image search disabled, no access key configured")
	}
	if cfg.Notifications.Telegram.Enabled() {
		deps.Notifier = telegram.NewNotifier(cfg.Notifications.Telegram)
	}

	topics := usecase.NewTopics(store, cfg.Defaults)

	return &Application{
		cfg:         cfg,
		logger:      baseLogger,
		store:       store,
		metrics:     rec,
		pipeline:    usecase.NewPipeline(deps),
		topics:      topics,
		regenerator: usecase.NewRegenerator(store, topics, synthesizer, prompts, baseLogger.With("component", "regenerator")),
		review: usecase.NewReview(usecase.ReviewDeps{
			Store:     store,
			Catalog:   store,
			Topics:    topics,
			Completer: metrics.InstrumentCompleter(completer, "suggestions", rec),
			Prompts:   prompts,
			Logger:    baseLogger.With("component", "review"),
		}),
		pool: runner.NewPool(cfg.Workers.MaxConcurrentRuns, baseLogger.With("component", "runner")),
	}, nil
}

// Serve runs the HTTP API and the optional scheduler until ctx is canceled.
func (a *Application) Serve(ctx context.Context) error {
	server := api.NewServer(api.Deps{
		Generator: a.pipeline,
		Rewriter:  a.regenerator,
		Review:    a.review,
		Topics:    a.topics,
		Pool:      a.pool,
		Metrics:   a.metrics,
		Logger:    a.logger.With("component", "api"),
	})

	sched, err := a.scheduler()
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(a.cfg.Server.Addr)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		if errors.Is(serveErr, http.ErrServerClosed) {
			serveErr = nil
		}
	}

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}
	if err := server.Stop(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	return serveErr
}

func (a *Application) scheduler() (*usecase.Scheduler, error) {
	var driver ports.Scheduler
	if a.cfg.Scheduler.Enabled {
		cron, err := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location(), a.logger.With("component", "cron"))
		if err != nil {
			return nil, err
		}
		driver = cron
	}
	return usecase.NewScheduler(driver, a.pipeline, a.topics, a.cfg.Scheduler.Topics, a.logger.With("component", "scheduler")), nil
}

// Generate runs one generation for overrides merged over the topic configuration.
// A nil imageCount keeps the configured image count.
func (a *Application) Generate(ctx context.Context, overrides domain.GenerationParams, imageCount *int) (int64, error) {
	base, err := a.topics.Get(ctx, overrides.Topic)
	if err != nil {
		return 0, err
	}
	params := overrides.WithDefaults(base)
	params.ImageCount = base.ImageCount
	if imageCount != nil {
		params.ImageCount = *imageCount
	}
	return a.pipeline.RunGeneration(ctx, params)
}

// Regenerate rewrites an article body from its recorded sources.
func (a *Application) Regenerate(ctx context.Context, id int64, editedBody, instruction string) (string, error) {
	return a.regenerator.Regenerate(ctx, id, editedBody, instruction)
}

// Sections lists the topics with stored configuration.
func (a *Application) Sections(ctx context.Context) ([]string, error) {
	return a.topics.List(ctx)
}

// Close waits for in-flight jobs and releases storage.
func (a *Application) Close() error {
	a.pool.Wait()
	return a.store.Close()
}
