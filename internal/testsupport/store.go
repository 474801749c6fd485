package testsupport

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ArticleEnricher/internal/config"
	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/infrastructure/storage"
)

// MustOpenStore opens a SQLite store in a temp directory and registers cleanup.
func MustOpenStore(t testing.TB) *storage.Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "articles.db")
	store, err := storage.Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// ArticleOption customizes a seeded article.
type ArticleOption func(*domain.Article)

// PublishedAt sets the publish timestamp; nil leaves it unset.
func PublishedAt(ts *time.Time) ArticleOption {
	return func(a *domain.Article) {
		a.PublishedAt = ts
	}
}

// WithDifficulty sets the article tier.
func WithDifficulty(tier domain.Difficulty) ArticleOption {
	return func(a *domain.Article) {
		a.Difficulty = tier
	}
}

// SeedArticle inserts an article whose paragraphs are built from contents.
// A content prefixed with "img:" becomes an image-only paragraph.
func SeedArticle(t testing.TB, store *storage.Store, ref string, contents []string, opts ...ArticleOption) (int64, []domain.Paragraph) {
	t.Helper()

	now := time.Now().UTC()
	article := domain.Article{
		Title:       "Seeded " + ref,
		SourceRef:   ref,
		Difficulty:  domain.DifficultyIntermediate,
		PublishedAt: &now,
		CreatedAt:   now,
	}
	for _, opt := range opts {
		opt(&article)
	}

	paragraphs := make([]domain.Paragraph, 0, len(contents))
	for i, c := range contents {
		p := domain.Paragraph{OrderIndex: i + 1}
		if len(c) > 4 && c[:4] == "img:" {
			p.ImageURL = c[4:]
		} else {
			p.Content = c
		}
		paragraphs = append(paragraphs, p)
	}

	ctx := context.Background()
	id, err := store.CreateArticle(ctx, article, paragraphs)
	if err != nil {
		t.Fatalf("store.CreateArticle: %v", err)
	}
	stored, err := store.ListParagraphs(ctx, id)
	if err != nil {
		t.Fatalf("store.ListParagraphs: %v", err)
	}
	return id, stored
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}
