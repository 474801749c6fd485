package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ArticleEnricher/internal/ports"
)

// RetentionCutoff is local midnight, in loc, of the day days before now.
func RetentionCutoff(now time.Time, loc *time.Location, days int) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()-days, 0, 0, 0, 0, loc)
}

// RetentionReport counts what a retention pass removed.
type RetentionReport struct {
	Deleted     int
	Failed      int
	AudioErrors int
}

// Retention deletes articles outside the trailing window together with their
// audio subtree.
type Retention struct {
	store  ports.ArticleStore
	audio  ports.AudioStore
	logger *slog.Logger
}

// NewRetention wires the retention manager.
func NewRetention(store ports.ArticleStore, audio ports.AudioStore, logger *slog.Logger) *Retention {
	return &Retention{store: store, audio: audio, logger: logger}
}

// Run deletes every article published before cutoff or never dated. A failed
// article delete is logged and left for the next run; audio removal is best
// effort and never undoes the database delete.
func (r *Retention) Run(ctx context.Context, cutoff time.Time) (RetentionReport, error) {
	var report RetentionReport
	logger := loggerFrom(ctx, r.logger)

	ids, err := r.store.StaleArticleIDs(ctx, cutoff)
	if err != nil {
		return report, fmt.Errorf("list stale articles: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := r.store.DeleteArticle(ctx, id); err != nil {
			report.Failed++
			logger.Error("delete stale article failed", "article_id", id, "error", err)
			continue
		}
		report.Deleted++

		if r.audio == nil {
			continue
		}
		if err := r.audio.RemoveArticle(id); err != nil {
			report.AudioErrors++
			logger.Warn("remove audio directory failed", "article_id", id, "error", err)
		}
	}

	logger.Info("retention finished",
		"cutoff", cutoff.Format(time.RFC3339),
		"deleted", report.Deleted,
		"failed", report.Failed,
	)
	return report, nil
}
