package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ArticleEnricher/internal/config"
	"ArticleEnricher/internal/infrastructure/audiofs"
	"ArticleEnricher/internal/infrastructure/httpapi"
	"ArticleEnricher/internal/infrastructure/llm"
	"ArticleEnricher/internal/infrastructure/scheduler"
	"ArticleEnricher/internal/infrastructure/source"
	"ArticleEnricher/internal/infrastructure/speech"
	"ArticleEnricher/internal/infrastructure/storage"
	"ArticleEnricher/internal/infrastructure/telegram"
	"ArticleEnricher/internal/logging"
	"ArticleEnricher/internal/ports"
	"ArticleEnricher/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.Store
	pipeline *usecase.Pipeline
	audio    *usecase.AudioFallback
}

// New opens the database and builds every adapter and use case.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		baseLogger.Warn("LLM_API_KEY is empty; language model calls will fail")
	}
	model := llm.NewClient(cfg.LLM, nil)

	var synth ports.SpeechSynthesizer
	if cfg.Speech.APIKey != "" {
		synth = speech.NewClient(cfg.Speech, nil)
	} else {
		baseLogger.Warn("SPEECH_API_KEY is empty; audio synthesis disabled")
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	audio := audiofs.New(cfg.Storage.AudioDir)
	enrichment := cfg.Enrichment

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:   source.NewClient(cfg.Source, nil),
		Store:    store,
		Model:    model,
		Speech:   synth,
		Audio:    audio,
		Notifier: notifier,
		Retry: usecase.RetryPolicy{
			Attempts:     enrichment.RetryAttempts,
			InitialDelay: enrichment.InitialDelay.Std(),
			Multiplier:   enrichment.BackoffFactor,
			Pacing:       enrichment.CallPacing.Std(),
		},
		Discovery: usecase.DiscoveryConfig{
			MaxPages:   cfg.Source.MaxPages,
			PagePacing: cfg.Source.PagePacing.Std(),
			ItemPacing: cfg.Source.ItemPacing.Std(),
			Location:   cfg.Source.Location(),
		},
		Enrichment: usecase.EnrichmentConfig{
			VocabularyBatchSize: enrichment.VocabularyBatchSize,
			BatchPacing:         enrichment.BatchPacing.Std(),
			SkipClassification:  enrichment.SkipClassification,
		},
		RetentionDays: cfg.Source.RetentionDays,
		Logger:        baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		pipeline: pipeline,
		audio:    usecase.NewAudioFallback(store, audio, synth, baseLogger.With("component", "audio")),
	}, nil
}

// Close releases the database.
func (a *Application) Close() error {
	return a.store.Close()
}

// Run performs a single full pipeline execution.
func (a *Application) Run(ctx context.Context) (usecase.RunReport, error) {
	return a.pipeline.RunFullPipeline(ctx)
}

// Enrich fills the missing fields of one article.
func (a *Application) Enrich(ctx context.Context, articleID int64) (usecase.EnrichReport, error) {
	return a.pipeline.RunEnrichmentForArticle(ctx, articleID)
}

// Cleanup applies retention only.
func (a *Application) Cleanup(ctx context.Context) (usecase.RetentionReport, error) {
	return a.pipeline.RunRetention(ctx)
}

// Serve runs the cron scheduler and the audio HTTP adapter until ctx ends.
func (a *Application) Serve(ctx context.Context) error {
	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location())
	jobs := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := jobs.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	if next, err := driver.Next(time.Now()); err == nil {
		a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression, "next_run", next.Format(time.RFC3339))
	}

	router := httpapi.NewRouter(a.audio, a.logger.With("component", "http"))
	server := httpapi.NewServer(a.cfg.HTTP.Addr, router)
	a.logger.Info("http server listening", "addr", a.cfg.HTTP.Addr)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.Run(gctx)
	})
	group.Go(func() error {
		<-gctx.Done()
		return jobs.Stop(context.Background())
	})
	return group.Wait()
}
