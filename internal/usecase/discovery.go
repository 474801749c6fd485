package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ArticleEnricher/internal/content"
	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/ports"
)

const detailTimeLayout = "2006-01-02 15:04:05"

// DiscoveryConfig bounds a discovery pass.
type DiscoveryConfig struct {
	MaxPages   int
	PagePacing time.Duration
	ItemPacing time.Duration
	Location   *time.Location
}

// Stop reasons recorded in DiscoveryReport.
const (
	StopEmptyPage    = "empty_page"
	StopCutoffPage   = "cutoff_page"
	StopStaleDetail  = "stale_detail"
	StopPageCap      = "page_cap"
	StopListingError = "listing_error"
)

// DiscoveryReport summarises one discovery pass.
type DiscoveryReport struct {
	Pages      int
	Listed     int
	Created    []int64
	Existing   int
	Skipped    int
	StopReason string
}

// Discovery walks the listing newest first and ingests unseen items. It only
// performs cheap writes; enrichment happens later.
type Discovery struct {
	source ports.ArticleSource
	store  ports.ArticleStore
	retry  RetryPolicy
	cfg    DiscoveryConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewDiscovery wires the source lister and detail fetcher.
func NewDiscovery(source ports.ArticleSource, store ports.ArticleStore, retry RetryPolicy, cfg DiscoveryConfig, logger *slog.Logger) *Discovery {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Discovery{
		source: source,
		store:  store,
		retry:  retry,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Run lists pages from 1 until a page is empty, a page reaches past cutoff,
// an ingested item is older than cutoff, or the page cap is hit. A page that
// reaches past cutoff ends discovery before any of its items is ingested. Only
// a failure of the first page is returned as an error.
func (d *Discovery) Run(ctx context.Context, cutoff time.Time) (DiscoveryReport, error) {
	var report DiscoveryReport
	logger := loggerFrom(ctx, d.logger)
	pages := newPacer(d.cfg.PagePacing)
	details := newPacer(d.cfg.ItemPacing)

	for page := 1; page <= d.cfg.MaxPages; page++ {
		if err := pages.wait(ctx); err != nil {
			return report, err
		}
		items, err := withRetry(ctx, d.retry, logger, "list_page", func(ctx context.Context) ([]ports.ListingItem, error) {
			return d.source.ListPage(ctx, page)
		})
		pages.mark()
		if err != nil {
			if page == 1 {
				report.StopReason = StopListingError
				return report, fmt.Errorf("list page 1: %w", err)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			logger.Error("listing page failed, ending discovery", "page", page, "error", err)
			report.StopReason = StopListingError
			return report, nil
		}

		report.Pages++
		report.Listed += len(items)
		if len(items) == 0 {
			report.StopReason = StopEmptyPage
			break
		}

		if reachesCutoff(items, cutoff) {
			logger.Info("listing page reaches past cutoff, ending discovery", "page", page)
			report.StopReason = StopCutoffPage
			break
		}
		for _, item := range items {
			stop, err := d.ingest(ctx, item, cutoff, details, &report)
			if err != nil {
				return report, err
			}
			if stop {
				report.StopReason = StopStaleDetail
				return report, nil
			}
		}

		if page == d.cfg.MaxPages {
			report.StopReason = StopPageCap
		}
	}

	logger.Info("discovery finished",
		"pages", report.Pages,
		"listed", report.Listed,
		"created", len(report.Created),
		"existing", report.Existing,
		"skipped", report.Skipped,
		"stop_reason", report.StopReason,
	)
	return report, nil
}

// reachesCutoff reports whether any dated item of a page is older than cutoff.
func reachesCutoff(items []ports.ListingItem, cutoff time.Time) bool {
	for _, item := range items {
		if !item.Date.IsZero() && item.Date.Before(cutoff) {
			return true
		}
	}
	return false
}

// ingest fetches and stores one item. It reports stop when the item's own
// publish date is older than cutoff. Only context errors are returned.
func (d *Discovery) ingest(ctx context.Context, item ports.ListingItem, cutoff time.Time, details *pacer, report *DiscoveryReport) (bool, error) {
	logger := loggerFrom(ctx, d.logger).With("item_id", item.ID)
	ref := d.source.SourceRef(item.ID)

	exists, err := d.store.ArticleExists(ctx, ref)
	if err != nil {
		report.Skipped++
		logger.Error("dedup check failed", "error", err)
		return false, nil
	}
	if exists {
		report.Existing++
		return false, nil
	}

	if err := details.wait(ctx); err != nil {
		return false, err
	}
	detail, err := withRetry(ctx, d.retry, logger, "fetch_detail", func(ctx context.Context) (ports.ItemDetail, error) {
		return d.source.FetchDetail(ctx, item.ID)
	})
	details.mark()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		report.Skipped++
		logger.Warn("detail fetch failed, skipping item", "error", err)
		return false, nil
	}

	publishedAt, err := time.ParseInLocation(detailTimeLayout, detail.PublishedAt, d.cfg.Location)
	if err != nil {
		publishedAt = d.now().In(d.cfg.Location)
	}
	if publishedAt.Before(cutoff) {
		logger.Info("item older than cutoff, ending discovery", "published_at", publishedAt.Format(time.RFC3339))
		return true, nil
	}

	if strings.TrimSpace(detail.Content) == "" {
		report.Skipped++
		logger.Warn("detail has no content, skipping item")
		return false, nil
	}
	groups, err := content.Parse(detail.Content)
	if err != nil {
		report.Skipped++
		logger.Warn("content markup unusable, skipping item", "error", err)
		return false, nil
	}

	items := content.Flatten(groups)
	article := domain.Article{
		Title:       detail.Title,
		SourceRef:   ref,
		Difficulty:  domain.ClassifyDifficulty(detail.GradeHints...),
		WordCount:   content.WordCount(items),
		PublishedAt: &publishedAt,
		CreatedAt:   d.now(),
	}
	if len(detail.ThumbnailURLs) > 0 {
		article.CoverImage = detail.ThumbnailURLs[0]
	}

	paragraphs := make([]domain.Paragraph, 0, len(items))
	for i, it := range items {
		p := domain.Paragraph{OrderIndex: i + 1}
		if it.Kind == domain.ContentImage {
			p.ImageURL = it.Value
		} else {
			p.Content = it.Value
		}
		paragraphs = append(paragraphs, p)
	}

	id, err := d.store.CreateArticle(ctx, article, paragraphs)
	if errors.Is(err, domain.ErrDuplicate) {
		report.Existing++
		return false, nil
	}
	if err != nil {
		report.Skipped++
		logger.Error("store article failed", "error", err)
		return false, nil
	}

	report.Created = append(report.Created, id)
	logger.Info("article discovered",
		"article_id", id,
		"paragraphs", len(paragraphs),
		"difficulty", string(article.Difficulty),
		"word_count", article.WordCount,
	)
	return false, nil
}
