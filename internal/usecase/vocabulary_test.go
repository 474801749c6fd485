package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/testsupport"
)

func intPtr(v int) *int { return &v }

func TestSplitSegments(t *testing.T) {
	t.Parallel()

	texts := []string{"Look it up.", "Fine."}
	tokens := []domain.Token{
		{Text: "Look", Type: domain.TokenAttention, Definition: "v. 查", GroupID: intPtr(1)},
		{Text: "it", Type: domain.TokenNormal},
		{Text: "up", Type: domain.TokenAttention, Definition: "ignored", GroupID: intPtr(1)},
		{Text: ".", Type: domain.TokenPunctuation},
		{Text: "¶", Type: domain.TokenPunctuation},
		{Text: "Fine", Type: domain.TokenNormal},
		{Text: ".", Type: domain.TokenPunctuation},
	}

	segments, err := splitSegments(tokens, texts)
	if err != nil {
		t.Fatalf("splitSegments: %v", err)
	}
	if len(segments) != 2 || len(segments[0]) != 4 || len(segments[1]) != 2 {
		t.Fatalf("unexpected segments %+v", segments)
	}
	if segments[0][2].Definition != "" {
		t.Fatal("only the first group member keeps its definition")
	}

	cases := []struct {
		name   string
		tokens []domain.Token
	}{
		{"missing marker", []domain.Token{
			{Text: "Look it up.", Type: domain.TokenNormal},
			{Text: "Fine.", Type: domain.TokenNormal},
		}},
		{"altered text", []domain.Token{
			{Text: "Look it over.", Type: domain.TokenNormal},
			{Text: "¶", Type: domain.TokenPunctuation},
			{Text: "Fine.", Type: domain.TokenNormal},
		}},
		{"group spans paragraphs", []domain.Token{
			{Text: "Look it up.", Type: domain.TokenAttention, GroupID: intPtr(7)},
			{Text: "¶", Type: domain.TokenPunctuation},
			{Text: "Fine.", Type: domain.TokenAttention, GroupID: intPtr(7)},
		}},
		{"extra segment", []domain.Token{
			{Text: "Look it up.", Type: domain.TokenNormal},
			{Text: "¶", Type: domain.TokenPunctuation},
			{Text: "Fine.", Type: domain.TokenNormal},
			{Text: "¶", Type: domain.TokenPunctuation},
		}},
	}
	for _, tc := range cases {
		if _, err := splitSegments(tc.tokens, texts); !errors.Is(err, domain.ErrSchema) {
			t.Fatalf("%s: expected schema error, got %v", tc.name, err)
		}
	}
}

func TestVocabularySkipsCompletedBatches(t *testing.T) {
	t.Parallel()

	f := newEnrichFixture(t, EnrichmentConfig{VocabularyBatchSize: 2})
	ctx := context.Background()
	id, seeded := testsupport.SeedArticle(t, f.store, "ref-1", []string{"One.", "Two.", "Three."})

	done := map[int64]domain.TokenSequence{
		seeded[0].ID: {{Text: "One.", Type: domain.TokenNormal}},
		seeded[1].ID: {{Text: "Two.", Type: domain.TokenNormal}},
	}
	if err := f.store.SetVocabulary(ctx, done); err != nil {
		t.Fatalf("SetVocabulary: %v", err)
	}

	report, err := f.enricher.EnrichArticle(ctx, id)
	if err != nil {
		t.Fatalf("EnrichArticle: %v", err)
	}
	if report.SkippedBatches != 1 || report.Completed[domain.StageVocabulary] != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if f.model.vocabularyCalls.Load() != 1 || f.model.vocabInputs[0] != "Three." {
		t.Fatalf("only the pending batch should be sent, got %q", f.model.vocabInputs)
	}
}

func TestVocabularyMismatchLeavesBatchUnset(t *testing.T) {
	t.Parallel()

	f := newEnrichFixture(t, EnrichmentConfig{})
	f.model.vocabulary = func(text string) ([]domain.Token, error) {
		// Drops the paragraph markers.
		return whitespaceTokens(strings.ReplaceAll(text, "¶", "")), nil
	}
	id, _ := testsupport.SeedArticle(t, f.store, "ref-1", []string{"One.", "img:https://img.example.org/a.jpg", "Two."})

	report, err := f.enricher.EnrichArticle(context.Background(), id)
	if err != nil {
		t.Fatalf("EnrichArticle: %v", err)
	}
	if report.Failed[domain.StageVocabulary] != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
	if got := f.model.vocabularyCalls.Load(); got != 3 {
		t.Fatalf("a schema mismatch should be retried, calls %d", got)
	}
	for _, p := range f.paragraphs(t, id) {
		if p.Vocabulary != nil {
			t.Fatalf("paragraph %d vocabulary must stay unset", p.OrderIndex)
		}
		if p.HasText() && p.Translation == nil {
			t.Fatal("other stages must not be affected")
		}
	}
}

func TestVocabularyImageOnlyBatchMakesNoCall(t *testing.T) {
	t.Parallel()

	f := newEnrichFixture(t, EnrichmentConfig{VocabularyBatchSize: 1})
	id, _ := testsupport.SeedArticle(t, f.store, "ref-1", []string{"img:https://img.example.org/a.jpg", "Words."})

	report, err := f.enricher.EnrichArticle(context.Background(), id)
	if err != nil {
		t.Fatalf("EnrichArticle: %v", err)
	}
	if report.Completed[domain.StageVocabulary] != 2 || f.model.vocabularyCalls.Load() != 1 {
		t.Fatalf("report %+v, vocabulary calls %d", report, f.model.vocabularyCalls.Load())
	}
	paragraphs := f.paragraphs(t, id)
	if paragraphs[0].State(domain.StageVocabulary) != domain.Done || len(paragraphs[0].Vocabulary) != 0 {
		t.Fatalf("image paragraph vocabulary = %#v", paragraphs[0].Vocabulary)
	}
}
