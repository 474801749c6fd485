package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/ports"
)

// stageDifficulty is the article-level stage; it is only counted in reports.
const stageDifficulty domain.Stage = "difficulty"

// EnrichmentConfig tunes the enrichment orchestrator.
type EnrichmentConfig struct {
	VocabularyBatchSize int
	BatchPacing         time.Duration
	SkipClassification  bool
}

// EnrichReport counts stage outcomes for one article.
type EnrichReport struct {
	ArticleID  int64
	Difficulty domain.Difficulty
	Completed  map[domain.Stage]int
	Failed     map[domain.Stage]int
	// SkippedBatches counts vocabulary batches whose members were all done.
	SkippedBatches int
}

func newEnrichReport(id int64) EnrichReport {
	return EnrichReport{
		ArticleID: id,
		Completed: map[domain.Stage]int{},
		Failed:    map[domain.Stage]int{},
	}
}

// Failures sums failed stage units.
func (r EnrichReport) Failures() int {
	total := 0
	for _, n := range r.Failed {
		total += n
	}
	return total
}

// Enricher fills the missing enrichment fields of an article's paragraphs.
// Every stage is skipped when its field is already Done, so re-running on a
// fully enriched article makes no external calls.
type Enricher struct {
	store  ports.ArticleStore
	model  ports.LanguageModel
	speech ports.SpeechSynthesizer
	audio  ports.AudioStore
	retry  RetryPolicy
	cfg    EnrichmentConfig
	logger *slog.Logger
}

// NewEnricher wires the orchestrator.
func NewEnricher(store ports.ArticleStore, model ports.LanguageModel, speech ports.SpeechSynthesizer, audio ports.AudioStore, retry RetryPolicy, cfg EnrichmentConfig, logger *slog.Logger) *Enricher {
	if cfg.VocabularyBatchSize <= 0 {
		cfg.VocabularyBatchSize = 20
	}
	return &Enricher{
		store:  store,
		model:  model,
		speech: speech,
		audio:  audio,
		retry:  retry,
		cfg:    cfg,
		logger: logger,
	}
}

// EnrichArticle runs the difficulty stage, then translation, syntax and audio
// per text paragraph in order, then vocabulary batches. A failed stage is
// logged and counted; it never stops its siblings. Only lookup failures and
// cancellation are returned.
func (e *Enricher) EnrichArticle(ctx context.Context, articleID int64) (EnrichReport, error) {
	report := newEnrichReport(articleID)
	logger := loggerFrom(ctx, e.logger).With("article_id", articleID)
	ctx = withLogger(ctx, logger)

	article, err := e.store.GetArticle(ctx, articleID)
	if err != nil {
		return report, fmt.Errorf("load article %d: %w", articleID, err)
	}
	paragraphs, err := e.store.ListParagraphs(ctx, articleID)
	if err != nil {
		return report, fmt.Errorf("load paragraphs of article %d: %w", articleID, err)
	}

	calls := newPacer(e.retry.Pacing)

	if err := e.classify(ctx, calls, &article, paragraphs, &report); err != nil {
		return report, err
	}
	report.Difficulty = article.Difficulty

	for _, p := range paragraphs {
		if !p.HasText() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := e.enrichParagraph(ctx, calls, p, &report); err != nil {
			return report, err
		}
	}

	if err := e.enrichVocabulary(ctx, calls, article.Difficulty, paragraphs, &report); err != nil {
		return report, err
	}

	logger.Info("article enrichment finished",
		"difficulty", string(report.Difficulty),
		"translated", report.Completed[domain.StageTranslation],
		"analyzed", report.Completed[domain.StageSyntax],
		"voiced", report.Completed[domain.StageAudio],
		"vocabulary", report.Completed[domain.StageVocabulary],
		"failures", report.Failures(),
	)
	return report, nil
}

func (e *Enricher) classify(ctx context.Context, calls *pacer, article *domain.Article, paragraphs []domain.Paragraph, report *EnrichReport) error {
	if article.Difficulty != domain.DifficultyUnknown || e.cfg.SkipClassification {
		return nil
	}
	text := articleText(paragraphs)
	if text == "" {
		return nil
	}

	logger := loggerFrom(ctx, e.logger)
	tier, err := pacedCall(ctx, e.retry, calls, logger, "classify_difficulty", func(ctx context.Context) (domain.Difficulty, error) {
		return e.model.ClassifyDifficulty(ctx, text)
	})
	if err != nil {
		if aborted(ctx, err) {
			return err
		}
		report.Failed[stageDifficulty]++
		logger.Warn("difficulty classification failed", "error", err)
		return nil
	}
	if tier == domain.DifficultyUnknown {
		return nil
	}
	if err := e.store.SetDifficulty(ctx, article.ID, tier); err != nil {
		report.Failed[stageDifficulty]++
		logger.Error("store difficulty failed", "error", err)
		return nil
	}
	article.Difficulty = tier
	return nil
}

func (e *Enricher) enrichParagraph(ctx context.Context, calls *pacer, p domain.Paragraph, report *EnrichReport) error {
	logger := loggerFrom(ctx, e.logger).With("paragraph_id", p.ID, "order_index", p.OrderIndex)

	stages := []struct {
		stage domain.Stage
		need  bool
		run   func(context.Context, *slog.Logger) error
	}{
		{domain.StageTranslation, p.Translation == nil, func(ctx context.Context, logger *slog.Logger) error {
			tr, err := pacedCall(ctx, e.retry, calls, logger, "translate", func(ctx context.Context) (domain.Translation, error) {
				return e.model.Translate(ctx, p.Content)
			})
			if err != nil {
				return err
			}
			return e.store.SetTranslation(ctx, p.ID, tr)
		}},
		{domain.StageSyntax, p.Syntax == nil, func(ctx context.Context, logger *slog.Logger) error {
			syn, err := pacedCall(ctx, e.retry, calls, logger, "analyze_syntax", func(ctx context.Context) (domain.Syntax, error) {
				return e.model.AnalyzeSyntax(ctx, p.Content)
			})
			if err != nil {
				return err
			}
			return e.store.SetSyntax(ctx, p.ID, syn)
		}},
		{domain.StageAudio, e.needsAudio(p), func(ctx context.Context, logger *slog.Logger) error {
			return e.voice(ctx, calls, logger, p)
		}},
	}

	for _, st := range stages {
		if !st.need {
			continue
		}
		err := st.run(ctx, logger)
		if err == nil {
			report.Completed[st.stage]++
			continue
		}
		if aborted(ctx, err) {
			return err
		}
		report.Failed[st.stage]++
		logger.Error("enrichment stage failed", "stage", string(st.stage), "error", err)
	}
	return nil
}

// needsAudio is true when no reference is stored or the referenced file is gone.
func (e *Enricher) needsAudio(p domain.Paragraph) bool {
	if e.speech == nil || e.audio == nil {
		return false
	}
	if p.AudioRef == nil || *p.AudioRef == "" {
		return true
	}
	return !e.audio.Exists(*p.AudioRef)
}

func (e *Enricher) voice(ctx context.Context, calls *pacer, logger *slog.Logger, p domain.Paragraph) error {
	audio, err := pacedCall(ctx, e.retry, calls, logger, "synthesize", func(ctx context.Context) ([]byte, error) {
		return e.speech.Synthesize(ctx, p.Content)
	})
	if err != nil {
		return err
	}
	ref := e.audio.Ref(p.ArticleID, p.OrderIndex)
	if err := e.audio.Write(ref, audio); err != nil {
		return fmt.Errorf("write audio %s: %w", ref, err)
	}
	return e.store.SetAudioRef(ctx, p.ID, ref)
}

// pacedCall spaces calls sharing one pacer and retries fn per policy.
func pacedCall[T any](ctx context.Context, policy RetryPolicy, calls *pacer, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	if err := calls.wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	defer calls.mark()
	return withRetry(ctx, policy, logger, op, fn)
}

func aborted(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

func articleText(paragraphs []domain.Paragraph) string {
	parts := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if p.HasText() {
			parts = append(parts, strings.TrimSpace(p.Content))
		}
	}
	return strings.Join(parts, "\n\n")
}
