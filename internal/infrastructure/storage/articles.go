package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"ArticleEnricher/internal/domain"
)

var articleColumns = []string{
	"id", "title", "source_ref", "cover_image", "difficulty",
	"word_count", "published_at", "created_at", "full_audio",
}

// ArticleExists reports whether an article with the canonical reference is stored.
func (s *Store) ArticleExists(ctx context.Context, sourceRef string) (bool, error) {
	query, args, err := s.sb.Select("COUNT(1)").From("articles").Where(sq.Eq{"source_ref": sourceRef}).ToSql()
	if err != nil {
		return false, persistenceErr("build exists query", err)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, persistenceErr("article exists", err)
	}
	return count > 0, nil
}

// CreateArticle inserts the article and its paragraphs in one transaction and
// returns the new article id. A reference that already exists yields
// domain.ErrDuplicate.
func (s *Store) CreateArticle(ctx context.Context, article domain.Article, paragraphs []domain.Paragraph) (int64, error) {
	createdAt := article.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var publishedAt any
	if article.PublishedAt != nil {
		publishedAt = dbTime(*article.PublishedAt)
	}
	difficulty := article.Difficulty
	if difficulty == "" {
		difficulty = domain.DifficultyUnknown
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, persistenceErr("begin create tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := s.sb.Insert("articles").
		Columns("title", "source_ref", "cover_image", "difficulty", "word_count", "published_at", "created_at", "full_audio").
		Values(article.Title, article.SourceRef, article.CoverImage, string(difficulty), article.WordCount, publishedAt, dbTime(createdAt), article.FullAudio).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, persistenceErr("build article insert", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", domain.ErrDuplicate, article.SourceRef)
		}
		return 0, persistenceErr("insert article", err)
	}

	if len(paragraphs) > 0 {
		insert := s.sb.Insert("paragraphs").Columns("article_id", "order_index", "content", "image_url")
		for _, p := range paragraphs {
			insert = insert.Values(id, p.OrderIndex, p.Content, p.ImageURL)
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return 0, persistenceErr("build paragraph insert", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, persistenceErr("insert paragraphs", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, persistenceErr("commit create", err)
	}
	return id, nil
}

// GetArticle loads one article.
func (s *Store) GetArticle(ctx context.Context, id int64) (domain.Article, error) {
	query, args, err := s.sb.Select(articleColumns...).From("articles").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.Article{}, persistenceErr("build article query", err)
	}

	var (
		article     domain.Article
		difficulty  string
		publishedAt sql.NullTime
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&article.ID, &article.Title, &article.SourceRef, &article.CoverImage, &difficulty,
		&article.WordCount, &publishedAt, &article.CreatedAt, &article.FullAudio,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, fmt.Errorf("%w: article %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Article{}, persistenceErr("get article", err)
	}

	article.Difficulty = domain.ParseDifficulty(difficulty)
	if publishedAt.Valid {
		t := publishedAt.Time.UTC()
		article.PublishedAt = &t
	}
	article.CreatedAt = article.CreatedAt.UTC()
	return article, nil
}

// StaleArticleIDs lists articles published before cutoff or never dated.
func (s *Store) StaleArticleIDs(ctx context.Context, cutoff time.Time) ([]int64, error) {
	return s.queryIDs(ctx, "stale articles", s.sb.Select("id").From("articles").
		Where(sq.Or{sq.Lt{"published_at": dbTime(cutoff)}, sq.Eq{"published_at": nil}}).
		OrderBy("id"))
}

// PendingArticleIDs lists articles published at or after since that still
// have a paragraph with an unset enrichment field, in discovery order.
func (s *Store) PendingArticleIDs(ctx context.Context, since time.Time) ([]int64, error) {
	pending := sq.Or{
		sq.Eq{"p.vocabulary": nil},
		sq.And{
			sq.NotEq{"p.content": ""},
			sq.Or{sq.Eq{"p.translation": nil}, sq.Eq{"p.syntax": nil}, sq.Eq{"p.audio_ref": nil}},
		},
	}
	return s.queryIDs(ctx, "pending articles", s.sb.Select("DISTINCT a.id").
		From("articles a").
		Join("paragraphs p ON p.article_id = a.id").
		Where(sq.GtOrEq{"a.published_at": dbTime(since)}).
		Where(pending).
		OrderBy("a.id"))
}

// DeleteArticle removes the paragraphs and then the article in one transaction.
func (s *Store) DeleteArticle(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistenceErr("begin delete tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, del := range []sq.DeleteBuilder{
		s.sb.Delete("paragraphs").Where(sq.Eq{"article_id": id}),
		s.sb.Delete("articles").Where(sq.Eq{"id": id}),
	} {
		query, args, err := del.ToSql()
		if err != nil {
			return persistenceErr("build delete", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return persistenceErr("delete article", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return persistenceErr("commit delete", err)
	}
	return nil
}

// SetDifficulty overwrites the article tier.
func (s *Store) SetDifficulty(ctx context.Context, articleID int64, tier domain.Difficulty) error {
	query, args, err := s.sb.Update("articles").Set("difficulty", string(tier)).Where(sq.Eq{"id": articleID}).ToSql()
	if err != nil {
		return persistenceErr("build difficulty update", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return persistenceErr("set difficulty", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: article %d", domain.ErrNotFound, articleID)
	}
	return nil
}

func (s *Store) queryIDs(ctx context.Context, op string, builder sq.SelectBuilder) ([]int64, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, persistenceErr("build "+op, err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistenceErr(op, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, persistenceErr("scan "+op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr(op, err)
	}
	return ids, nil
}
