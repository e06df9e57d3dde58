package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsCurator/internal/collector"
	"NewsCurator/internal/config"
	"NewsCurator/internal/fetch"
	"NewsCurator/internal/infrastructure/llm"
	"NewsCurator/internal/infrastructure/scheduler"
	"NewsCurator/internal/infrastructure/search"
	"NewsCurator/internal/infrastructure/storage"
	"NewsCurator/internal/logging"
	"NewsCurator/internal/ports"
	"NewsCurator/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.Store
	pipeline *usecase.Pipeline
	learner  *usecase.AffinityLearner
}

// New validates the configuration, opens the store and builds the pipeline.
// Configuration problems are reported before anything is written.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	// search.endpoint only applies to the selected provider.
	endpointFor := func(provider string) string {
		if cfg.Search.Provider == provider {
			return cfg.Search.Endpoint
		}
		return ""
	}

	registry := collector.NewRegistry()
	registry.Register(search.NewRSSProvider(endpointFor("rss"), cfg.Search.Locale, cfg.Search.GetTimeout()))
	if cfg.Search.APIKey != "" {
		brave, err := search.NewBraveProvider(endpointFor("brave"), cfg.Search.APIKey, cfg.Search.GetTimeout())
		if err != nil {
			return nil, fmt.Errorf("brave provider: %w", err)
		}
		registry.Register(brave)
	}
	searchCollector, err := search.NewStrategyCollector(registry, cfg.Search.Provider, baseLogger.With("component", "search"))
	if err != nil {
		return nil, fmt.Errorf("search collector: %w", err)
	}

	deps := usecase.PipelineDeps{
		Collector: searchCollector,
		Fetcher:   fetch.NewPrioritizer(nil, fetchOptions(cfg.Fetch), baseLogger.With("component", "fetch")),
		Search: usecase.SearchSettings{
			Freshness: cfg.Search.GetFreshness(),
			Limit:     cfg.Search.Limit,
		},
		Retention: cfg.Retention.Window(),
		Logger:    baseLogger.With("component", "pipeline"),
	}

	if cfg.LLM.Enabled() {
		client, err := llm.NewClient(llm.Config{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
			Timeout: cfg.LLM.GetTimeout(),
		}, baseLogger.With("component", "llm"))
		if err != nil {
			return nil, fmt.Errorf("llm client: %w", err)
		}
		deps.Clusterer = llm.NewClusterer(client)
		deps.TopicExtractor = llm.NewTopicExtractor(client)
		deps.Summarizer = llm.NewSummarizer(client)
	} else {
		baseLogger.Info("language model disabled, clustering and summaries use fallbacks")
	}

	store, err := storage.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	deps.Store = store

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		pipeline: usecase.NewPipeline(deps),
		learner:  usecase.NewAffinityLearner(store, baseLogger.With("component", "affinity")),
	}, nil
}

// Close releases the store.
func (a *Application) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// Store exposes the Discovery Store for management commands.
func (a *Application) Store() ports.Store {
	return a.store
}

// Learner returns the affinity learner that records user feedback.
func (a *Application) Learner() *usecase.AffinityLearner {
	return a.learner
}

// RunOnce performs a single pipeline execution.
func (a *Application) RunOnce(ctx context.Context) usecase.RunResult {
	return a.pipeline.Run(ctx)
}

// Watch runs the pipeline every scheduler interval until ctx is cancelled.
func (a *Application) Watch(ctx context.Context, onResult func(usecase.RunResult)) error {
	runner := usecase.NewPeriodicRunner(
		scheduler.NewTickerScheduler(a.cfg.Scheduler.GetInterval()),
		a.pipeline,
		a.logger.With("component", "scheduler"),
	)
	runner.OnResult = onResult

	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("watching", "interval", a.cfg.Scheduler.GetInterval())
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := runner.Stop(stopCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	return nil
}

func fetchOptions(cfg config.FetchConfig) fetch.Options {
	gap, request, article, ceiling, robots := cfg.Durations()
	return fetch.Options{
		UserAgent:      cfg.UserAgent,
		MaxPerCluster:  cfg.MaxPerCluster,
		MaxConcurrent:  cfg.MaxConcurrent,
		MaxFailures:    cfg.MaxFailures,
		DefaultGap:     gap,
		RequestTimeout: request,
		ArticleTimeout: article,
		BatchCeiling:   ceiling,
		RobotsTimeout:  robots,
	}
}
