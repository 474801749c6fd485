package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"ArticleEnricher/internal/domain"
)

var paragraphColumns = []string{
	"id", "article_id", "order_index", "content", "image_url",
	"translation", "syntax", "audio_ref", "vocabulary",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParagraph(row rowScanner) (domain.Paragraph, error) {
	var p domain.Paragraph
	var translation, syntax, audio, vocabCol sql.NullString
	if err := row.Scan(&p.ID, &p.ArticleID, &p.OrderIndex, &p.Content, &p.ImageURL, &translation, &syntax, &audio, &vocabCol); err != nil {
		return domain.Paragraph{}, err
	}

	var err error
	if p.Translation, err = decodeTranslation(translation); err != nil {
		return domain.Paragraph{}, err
	}
	if p.Syntax, err = decodeSyntax(syntax); err != nil {
		return domain.Paragraph{}, err
	}
	if p.Vocabulary, err = decodeVocabulary(vocabCol); err != nil {
		return domain.Paragraph{}, err
	}
	if audio.Valid {
		ref := audio.String
		p.AudioRef = &ref
	}
	return p, nil
}

// ListParagraphs returns the paragraphs of an article by ascending order index.
func (s *Store) ListParagraphs(ctx context.Context, articleID int64) ([]domain.Paragraph, error) {
	query, args, err := s.sb.Select(paragraphColumns...).From("paragraphs").
		Where(sq.Eq{"article_id": articleID}).
		OrderBy("order_index").
		ToSql()
	if err != nil {
		return nil, persistenceErr("build paragraph query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistenceErr("list paragraphs", err)
	}
	defer rows.Close()

	var paragraphs []domain.Paragraph
	for rows.Next() {
		p, err := scanParagraph(rows)
		if err != nil {
			return nil, persistenceErr("scan paragraph", err)
		}
		paragraphs = append(paragraphs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("list paragraphs", err)
	}
	return paragraphs, nil
}

// GetParagraph loads one paragraph.
func (s *Store) GetParagraph(ctx context.Context, id int64) (domain.Paragraph, error) {
	query, args, err := s.sb.Select(paragraphColumns...).From("paragraphs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.Paragraph{}, persistenceErr("build paragraph query", err)
	}

	p, err := scanParagraph(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Paragraph{}, fmt.Errorf("%w: paragraph %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Paragraph{}, persistenceErr("get paragraph", err)
	}
	return p, nil
}

// SetTranslation stores the translation unless one is already present.
func (s *Store) SetTranslation(ctx context.Context, paragraphID int64, tr domain.Translation) error {
	payload, err := encodeJSON(tr)
	if err != nil {
		return err
	}
	return s.setOnce(ctx, s.db, paragraphID, "translation", payload)
}

// SetSyntax stores the syntax breakdown unless one is already present.
func (s *Store) SetSyntax(ctx context.Context, paragraphID int64, syn domain.Syntax) error {
	payload, err := encodeJSON(syn)
	if err != nil {
		return err
	}
	return s.setOnce(ctx, s.db, paragraphID, "syntax", payload)
}

// SetAudioRef points the paragraph at its audio artifact. Unlike the other
// fields it may be overwritten, since a missing file is regenerated.
func (s *Store) SetAudioRef(ctx context.Context, paragraphID int64, ref string) error {
	query, args, err := s.sb.Update("paragraphs").Set("audio_ref", ref).Where(sq.Eq{"id": paragraphID}).ToSql()
	if err != nil {
		return persistenceErr("build audio update", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return persistenceErr("set audio ref", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: paragraph %d", domain.ErrNotFound, paragraphID)
	}
	return nil
}

// SetVocabulary stores one batch of token sequences in a single transaction.
// Paragraphs that already carry an analysis are left untouched.
func (s *Store) SetVocabulary(ctx context.Context, batch map[int64]domain.TokenSequence) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistenceErr("begin vocabulary tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for id, seq := range batch {
		if seq == nil {
			seq = domain.TokenSequence{}
		}
		payload, err := encodeJSON(seq)
		if err != nil {
			return err
		}
		if err := s.setOnce(ctx, tx, id, "vocabulary", payload); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return persistenceErr("commit vocabulary", err)
	}
	return nil
}

type execQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// setOnce writes column only while it is NULL. Zero affected rows is fine
// when the paragraph exists and was already enriched.
func (s *Store) setOnce(ctx context.Context, db execQueryer, paragraphID int64, column, payload string) error {
	query, args, err := s.sb.Update("paragraphs").
		Set(column, payload).
		Where(sq.Eq{"id": paragraphID}).
		Where(sq.Eq{column: nil}).
		ToSql()
	if err != nil {
		return persistenceErr("build "+column+" update", err)
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return persistenceErr("set "+column, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	check, args, err := s.sb.Select("COUNT(1)").From("paragraphs").Where(sq.Eq{"id": paragraphID}).ToSql()
	if err != nil {
		return persistenceErr("build paragraph check", err)
	}
	var count int
	if err := db.QueryRowContext(ctx, check, args...).Scan(&count); err != nil {
		return persistenceErr("check paragraph", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: paragraph %d", domain.ErrNotFound, paragraphID)
	}
	return nil
}
