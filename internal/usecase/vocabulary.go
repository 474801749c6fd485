package usecase

import (
	"context"
	"fmt"
	"strings"

	"ArticleEnricher/internal/domain"
)

// paragraphMarker separates paragraphs of one vocabulary request. The model is
// told to echo it as a standalone token.
const paragraphMarker = "¶"

// enrichVocabulary walks paragraphs in batches of the configured size. A batch
// whose members are all done is skipped without a call; otherwise its pending
// text members go out in one request and the whole batch is committed at once.
func (e *Enricher) enrichVocabulary(ctx context.Context, calls *pacer, tier domain.Difficulty, paragraphs []domain.Paragraph, report *EnrichReport) error {
	logger := loggerFrom(ctx, e.logger)
	batches := newPacer(e.cfg.BatchPacing)
	size := e.cfg.VocabularyBatchSize

	for start := 0; start < len(paragraphs); start += size {
		end := min(start+size, len(paragraphs))
		batch := paragraphs[start:end]

		pending := pendingVocabulary(batch)
		if len(pending) == 0 {
			report.SkippedBatches++
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := e.analyzeBatch(ctx, calls, batches, tier, pending)
		if err != nil {
			if aborted(ctx, err) {
				return err
			}
			report.Failed[domain.StageVocabulary] += len(pending)
			logger.Error("vocabulary batch failed",
				"first_order_index", batch[0].OrderIndex,
				"pending", len(pending),
				"error", err,
			)
			continue
		}
		if err := e.store.SetVocabulary(ctx, result); err != nil {
			report.Failed[domain.StageVocabulary] += len(pending)
			logger.Error("store vocabulary batch failed", "first_order_index", batch[0].OrderIndex, "error", err)
			continue
		}
		report.Completed[domain.StageVocabulary] += len(result)
	}
	return nil
}

func pendingVocabulary(batch []domain.Paragraph) []domain.Paragraph {
	var pending []domain.Paragraph
	for _, p := range batch {
		if p.Vocabulary == nil {
			pending = append(pending, p)
		}
	}
	return pending
}

// analyzeBatch produces token sequences for every pending member. Image-only
// members get an empty sequence.
func (e *Enricher) analyzeBatch(ctx context.Context, calls, batches *pacer, tier domain.Difficulty, pending []domain.Paragraph) (map[int64]domain.TokenSequence, error) {
	result := make(map[int64]domain.TokenSequence, len(pending))
	var texts []string
	var ids []int64
	for _, p := range pending {
		if !p.HasText() {
			result[p.ID] = domain.TokenSequence{}
			continue
		}
		texts = append(texts, strings.TrimSpace(p.Content))
		ids = append(ids, p.ID)
	}
	if len(texts) == 0 {
		return result, nil
	}

	if err := batches.wait(ctx); err != nil {
		return nil, err
	}
	defer batches.mark()

	joined := strings.Join(texts, "\n"+paragraphMarker+"\n")
	logger := loggerFrom(ctx, e.logger)
	segments, err := pacedCall(ctx, e.retry, calls, logger, "analyze_vocabulary", func(ctx context.Context) ([]domain.TokenSequence, error) {
		tokens, err := e.model.AnalyzeVocabulary(ctx, joined, tier)
		if err != nil {
			return nil, err
		}
		return splitSegments(tokens, texts)
	})
	if err != nil {
		return nil, err
	}

	for i, id := range ids {
		result[id] = segments[i]
	}
	return result, nil
}

// splitSegments cuts a batch token stream at standalone marker tokens. Each
// segment must reproduce its paragraph text and no group may span segments.
func splitSegments(tokens []domain.Token, texts []string) ([]domain.TokenSequence, error) {
	raw := [][]domain.Token{{}}
	for _, tok := range tokens {
		if strings.TrimSpace(tok.Text) == paragraphMarker {
			raw = append(raw, []domain.Token{})
			continue
		}
		raw[len(raw)-1] = append(raw[len(raw)-1], tok)
	}
	if len(raw) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vocabulary segments for %d paragraphs", domain.ErrSchema, len(raw), len(texts))
	}

	owner := map[int]int{}
	out := make([]domain.TokenSequence, len(raw))
	for i, seg := range raw {
		if !domain.SameTextModuloWhitespace(seg, texts[i]) {
			return nil, fmt.Errorf("%w: vocabulary segment %d does not reproduce its paragraph", domain.ErrSchema, i)
		}
		for _, tok := range seg {
			if tok.GroupID == nil {
				continue
			}
			if prev, seen := owner[*tok.GroupID]; seen && prev != i {
				return nil, fmt.Errorf("%w: group %d spans paragraphs %d and %d", domain.ErrSchema, *tok.GroupID, prev, i)
			}
			owner[*tok.GroupID] = i
		}
		seq, err := domain.ValidateTokens(seg)
		if err != nil {
			return nil, err
		}
		out[i] = seq
	}
	return out, nil
}
