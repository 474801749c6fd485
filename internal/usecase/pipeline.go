package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ArticleEnricher/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source   ports.ArticleSource
	Store    ports.ArticleStore
	Model    ports.LanguageModel
	Speech   ports.SpeechSynthesizer
	Audio    ports.AudioStore
	Notifier ports.Notifier

	Retry         RetryPolicy
	Discovery     DiscoveryConfig
	Enrichment    EnrichmentConfig
	RetentionDays int
	Logger        *slog.Logger
}

// Pipeline runs retention, discovery and enrichment as one job.
type Pipeline struct {
	store         ports.ArticleStore
	notifier      ports.Notifier
	retention     *Retention
	discovery     *Discovery
	enricher      *Enricher
	location      *time.Location
	retentionDays int
	logger        *slog.Logger
	now           func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = loggerFrom(context.Background(), nil)
	}
	loc := deps.Discovery.Location
	if loc == nil {
		loc = time.UTC
	}
	days := deps.RetentionDays
	if days <= 0 {
		days = 2
	}

	return &Pipeline{
		store:         deps.Store,
		notifier:      deps.Notifier,
		retention:     NewRetention(deps.Store, deps.Audio, logger.With("component", "retention")),
		discovery:     NewDiscovery(deps.Source, deps.Store, deps.Retry, deps.Discovery, logger.With("component", "discovery")),
		enricher:      NewEnricher(deps.Store, deps.Model, deps.Speech, deps.Audio, deps.Retry, deps.Enrichment, logger.With("component", "enrichment")),
		location:      loc,
		retentionDays: days,
		logger:        logger,
		now:           time.Now,
	}
}

// RunReport summarises one full pipeline run.
type RunReport struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    time.Time
	Cutoff        time.Time
	Retention     RetentionReport
	Discovery     DiscoveryReport
	Enriched      int
	ArticleErrors int
	StageFailures int
}

// Summary renders the report as a short operator message.
func (r RunReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ArticleEnricher run %s\n", r.RunID)
	fmt.Fprintf(&b, "cutoff: %s\n", r.Cutoff.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "retention: %d deleted, %d failed\n", r.Retention.Deleted, r.Retention.Failed)
	fmt.Fprintf(&b, "discovery: %d new, %d existing, %d skipped over %d pages (%s)\n",
		len(r.Discovery.Created), r.Discovery.Existing, r.Discovery.Skipped, r.Discovery.Pages, r.Discovery.StopReason)
	fmt.Fprintf(&b, "enrichment: %d articles, %d stage failures, %d article errors\n",
		r.Enriched, r.StageFailures, r.ArticleErrors)
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "took: %s", r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	}
	return b.String()
}

// RunFullPipeline applies retention, discovers new articles and enriches every
// article in the window that still has unset fields. Each run gets a run id
// that is attached to all of its log lines.
func (p *Pipeline) RunFullPipeline(ctx context.Context) (RunReport, error) {
	report := RunReport{RunID: uuid.NewString(), StartedAt: p.now()}
	logger := p.logger.With("run_id", report.RunID)
	ctx = withLogger(ctx, logger)

	report.Cutoff = RetentionCutoff(report.StartedAt, p.location, p.retentionDays)
	logger.Info("pipeline run started", "cutoff", report.Cutoff.Format(time.RFC3339))

	retention, err := p.retention.Run(ctx, report.Cutoff)
	report.Retention = retention
	if err != nil {
		if ctx.Err() != nil {
			return report, err
		}
		logger.Error("retention failed", "error", err)
	}

	discovery, err := p.discovery.Run(ctx, report.Cutoff)
	report.Discovery = discovery
	if err != nil {
		report.FinishedAt = p.now()
		logger.Error("discovery failed", "error", err)
		p.notify(ctx, logger, report)
		return report, fmt.Errorf("discovery: %w", err)
	}

	ids, err := p.store.PendingArticleIDs(ctx, report.Cutoff)
	if err != nil {
		report.FinishedAt = p.now()
		return report, fmt.Errorf("list pending articles: %w", err)
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := p.enricher.EnrichArticle(ctx, id)
		report.StageFailures += res.Failures()
		if err != nil {
			if ctx.Err() != nil {
				return report, err
			}
			report.ArticleErrors++
			logger.Error("article enrichment failed", "article_id", id, "error", err)
			continue
		}
		report.Enriched++
	}

	report.FinishedAt = p.now()
	logger.Info("pipeline run finished",
		"created", len(report.Discovery.Created),
		"enriched", report.Enriched,
		"stage_failures", report.StageFailures,
		"article_errors", report.ArticleErrors,
		"elapsed", report.FinishedAt.Sub(report.StartedAt),
	)
	p.notify(ctx, logger, report)
	return report, nil
}

// RunEnrichmentForArticle enriches one article regardless of its age.
func (p *Pipeline) RunEnrichmentForArticle(ctx context.Context, articleID int64) (EnrichReport, error) {
	logger := p.logger.With("run_id", uuid.NewString())
	return p.enricher.EnrichArticle(withLogger(ctx, logger), articleID)
}

// RunRetention applies the retention window on its own.
func (p *Pipeline) RunRetention(ctx context.Context) (RetentionReport, error) {
	logger := p.logger.With("run_id", uuid.NewString())
	cutoff := RetentionCutoff(p.now(), p.location, p.retentionDays)
	return p.retention.Run(withLogger(ctx, logger), cutoff)
}

func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, report RunReport) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.PublishSummary(ctx, report.Summary()); err != nil {
		logger.Warn("publish run summary failed", "error", err)
	}
}
