package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"ArticleEnricher/internal/domain"
)

func encodeJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: encode payload: %v", domain.ErrPersistence, err)
	}
	return string(raw), nil
}

func decodeTranslation(col sql.NullString) (*domain.Translation, error) {
	if !col.Valid {
		return nil, nil
	}
	var tr domain.Translation
	if err := json.Unmarshal([]byte(col.String), &tr); err != nil {
		return nil, fmt.Errorf("%w: decode translation: %v", domain.ErrPersistence, err)
	}
	return &tr, nil
}

func decodeSyntax(col sql.NullString) (*domain.Syntax, error) {
	if !col.Valid {
		return nil, nil
	}
	var syn domain.Syntax
	if err := json.Unmarshal([]byte(col.String), &syn); err != nil {
		return nil, fmt.Errorf("%w: decode syntax: %v", domain.ErrPersistence, err)
	}
	return &syn, nil
}

// decodeVocabulary keeps the nil versus empty distinction: NULL is not
// started, "[]" is a finished analysis with no tokens.
func decodeVocabulary(col sql.NullString) (domain.TokenSequence, error) {
	if !col.Valid {
		return nil, nil
	}
	seq := domain.TokenSequence{}
	if err := json.Unmarshal([]byte(col.String), &seq); err != nil {
		return nil, fmt.Errorf("%w: decode vocabulary: %v", domain.ErrPersistence, err)
	}
	if seq == nil {
		seq = domain.TokenSequence{}
	}
	return seq, nil
}
