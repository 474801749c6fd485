package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/logging"
	"ArticleEnricher/internal/testsupport"
)

func newTestDiscovery(t *testing.T, source *fakeSource, now time.Time) (*Discovery, time.Time) {
	t.Helper()

	store := testsupport.MustOpenStore(t)
	d := NewDiscovery(source, store, instantRetry, DiscoveryConfig{MaxPages: 5, Location: sourceLoc}, logging.Discard())
	d.now = func() time.Time { return now }
	return d, RetentionCutoff(now, sourceLoc, 2)
}

func TestDiscoveryStopsAtPageReachingCutoff(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, sourceLoc)
	source := newFakeSource()
	source.add(1, "a", now.Add(-time.Hour), paraMarkup("Alpha one.", "img:https://img.example.org/x.jpg", "Alpha two."))
	source.add(1, "b", now.Add(-2*time.Hour), paraMarkup("Bravo."))
	source.add(2, "c", now.Add(-24*time.Hour), paraMarkup("Charlie."))
	source.add(2, "d", now.Add(-72*time.Hour), paraMarkup("Delta."))
	source.add(3, "e", now.Add(-96*time.Hour), paraMarkup("Echo."))

	d, cutoff := newTestDiscovery(t, source, now)
	report, err := d.Run(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Created) != 2 {
		t.Fatalf("expected 2 new articles, got %+v", report)
	}
	if report.StopReason != StopCutoffPage {
		t.Fatalf("stop reason = %q", report.StopReason)
	}
	if len(source.listCalls) != 2 {
		t.Fatalf("page 3 must not be fetched, list calls %v", source.listCalls)
	}
	for _, id := range source.detailCalls {
		if id == "c" || id == "d" || id == "e" {
			t.Fatalf("item %s of a page reaching past cutoff was fetched", id)
		}
	}

	store := d.store
	article, err := store.GetArticle(context.Background(), report.Created[0])
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if article.Title != "Title a" || article.Difficulty != domain.DifficultyIntermediate {
		t.Fatalf("unexpected article %+v", article)
	}
	if article.CoverImage != "https://img.example.org/a.jpg" || article.WordCount != 4 {
		t.Fatalf("unexpected cover/word count %+v", article)
	}
	if article.SourceRef != source.SourceRef("a") {
		t.Fatalf("source ref = %s", article.SourceRef)
	}

	paragraphs, err := store.ListParagraphs(context.Background(), article.ID)
	if err != nil {
		t.Fatalf("ListParagraphs: %v", err)
	}
	if len(paragraphs) != 3 {
		t.Fatalf("expected 3 paragraphs, got %+v", paragraphs)
	}
	if paragraphs[0].OrderIndex != 1 || paragraphs[0].Content != "Alpha one." {
		t.Fatalf("paragraph 1 = %+v", paragraphs[0])
	}
	if paragraphs[1].ImageURL != "https://img.example.org/x.jpg" || paragraphs[1].HasText() {
		t.Fatalf("paragraph 2 = %+v", paragraphs[1])
	}
	for _, p := range paragraphs {
		for _, stage := range domain.Stages {
			if p.State(stage) != domain.NotStarted {
				t.Fatalf("new paragraph %d has %s done", p.OrderIndex, stage)
			}
		}
	}
}

func TestDiscoveryStaleDetailWinsOverMissingContent(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, sourceLoc)
	source := newFakeSource()
	source.add(1, "a", now.Add(-time.Hour), "")
	source.add(1, "b", now.Add(-2*time.Hour), paraMarkup("Bravo."))
	stale := source.details["a"]
	stale.PublishedAt = now.Add(-96 * time.Hour).Format(detailTimeLayout)
	source.details["a"] = stale

	d, cutoff := newTestDiscovery(t, source, now)
	report, err := d.Run(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.StopReason != StopStaleDetail || report.Skipped != 0 || len(report.Created) != 0 {
		t.Fatalf("a stale detail without content must end discovery, got %+v", report)
	}
	for _, id := range source.detailCalls {
		if id == "b" {
			t.Fatal("items after a stale detail must not be fetched")
		}
	}
}

func TestDiscoveryIsIdempotent(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, sourceLoc)
	source := newFakeSource()
	source.add(1, "a", now.Add(-time.Hour), paraMarkup("Alpha."))
	source.add(1, "b", now.Add(-2*time.Hour), paraMarkup("Bravo."))

	d, cutoff := newTestDiscovery(t, source, now)
	first, err := d.Run(context.Background(), cutoff)
	if err != nil || len(first.Created) != 2 {
		t.Fatalf("first run = %+v, %v", first, err)
	}
	fetched := len(source.detailCalls)

	second, err := d.Run(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(second.Created) != 0 || second.Existing != 2 {
		t.Fatalf("second run must only see existing items, got %+v", second)
	}
	if len(source.detailCalls) != fetched {
		t.Fatalf("existing items must not be fetched again, calls %v", source.detailCalls)
	}
	if second.StopReason != StopEmptyPage {
		t.Fatalf("stop reason = %q", second.StopReason)
	}
}

func TestDiscoveryStopsOnStaleDetail(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, sourceLoc)
	source := newFakeSource()
	source.add(1, "a", now.Add(-time.Hour), paraMarkup("Alpha."))
	source.add(1, "b", now.Add(-2*time.Hour), paraMarkup("Bravo."))
	source.add(1, "c", now.Add(-3*time.Hour), paraMarkup("Charlie."))
	// The listing claims b is fresh but its detail says otherwise.
	stale := source.details["b"]
	stale.PublishedAt = now.Add(-96 * time.Hour).Format(detailTimeLayout)
	source.details["b"] = stale

	d, cutoff := newTestDiscovery(t, source, now)
	report, err := d.Run(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Created) != 1 || report.StopReason != StopStaleDetail {
		t.Fatalf("unexpected report %+v", report)
	}
	if exists, _ := d.store.ArticleExists(context.Background(), source.SourceRef("c")); exists {
		t.Fatal("items after a stale detail must not be ingested")
	}
}

func TestDiscoverySkipsUnusableItems(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, sourceLoc)
	source := newFakeSource()
	source.add(1, "empty", now.Add(-time.Hour), "")
	source.add(1, "blank", now.Add(-time.Hour), "<article><para></para></article>")
	source.add(1, "good", now.Add(-time.Hour), paraMarkup("Good."))
	source.pages[1] = append(source.pages[1], source.pages[1][0])
	source.pages[1][3].ID = "missing"

	d, cutoff := newTestDiscovery(t, source, now)
	report, err := d.Run(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Created) != 1 || report.Skipped != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
	for _, id := range []string{"empty", "blank", "missing"} {
		if exists, _ := d.store.ArticleExists(context.Background(), source.SourceRef(id)); exists {
			t.Fatalf("unusable item %s must leave no row", id)
		}
	}
}

func TestDiscoveryUnparsablePublishTimeFallsBackToNow(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, sourceLoc)
	source := newFakeSource()
	source.add(1, "a", now, paraMarkup("Alpha."))
	detail := source.details["a"]
	detail.PublishedAt = "yesterday-ish"
	source.details["a"] = detail

	d, cutoff := newTestDiscovery(t, source, now)
	report, err := d.Run(context.Background(), cutoff)
	if err != nil || len(report.Created) != 1 {
		t.Fatalf("Run = %+v, %v", report, err)
	}
	article, err := d.store.GetArticle(context.Background(), report.Created[0])
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if article.PublishedAt == nil || !article.PublishedAt.Equal(now) {
		t.Fatalf("published_at = %v, want %v", article.PublishedAt, now)
	}
}

func TestDiscoveryListingFailures(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, sourceLoc)

	t.Run("first page is fatal", func(t *testing.T) {
		t.Parallel()
		source := newFakeSource()
		source.listErr[1] = domain.ErrNetwork

		d, cutoff := newTestDiscovery(t, source, now)
		_, err := d.Run(context.Background(), cutoff)
		if !errors.Is(err, domain.ErrNetwork) {
			t.Fatalf("expected network error, got %v", err)
		}
		if len(source.listCalls) != 3 {
			t.Fatalf("page 1 should be retried, calls %v", source.listCalls)
		}
	})

	t.Run("later page ends discovery", func(t *testing.T) {
		t.Parallel()
		source := newFakeSource()
		source.add(1, "a", now.Add(-time.Hour), paraMarkup("Alpha."))
		source.listErr[2] = domain.ErrNetwork

		d, cutoff := newTestDiscovery(t, source, now)
		report, err := d.Run(context.Background(), cutoff)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(report.Created) != 1 || report.StopReason != StopListingError {
			t.Fatalf("unexpected report %+v", report)
		}
	})
}

func TestDiscoveryHonoursPageCap(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, sourceLoc)
	source := newFakeSource()
	for page := 1; page <= 3; page++ {
		source.add(page, string(rune('a'+page)), now.Add(-time.Duration(page)*time.Minute), paraMarkup("Text."))
	}

	store := testsupport.MustOpenStore(t)
	d := NewDiscovery(source, store, instantRetry, DiscoveryConfig{MaxPages: 2, Location: sourceLoc}, logging.Discard())
	d.now = func() time.Time { return now }

	report, err := d.Run(context.Background(), RetentionCutoff(now, sourceLoc, 2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Pages != 2 || report.StopReason != StopPageCap || len(report.Created) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
}
