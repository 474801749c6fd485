package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/ports"
)

var _ ports.LanguageModel = (*Client)(nil)

// ClassifyDifficulty asks the model for a reading tier. A label outside the
// known tiers is a schema error.
func (c *Client) ClassifyDifficulty(ctx context.Context, text string) (domain.Difficulty, error) {
	content, err := c.CompleteJSON(ctx, difficultySystemPrompt, fmt.Sprintf(difficultyUserPrompt, text))
	if err != nil {
		return domain.DifficultyUnknown, err
	}
	var payload struct {
		Difficulty *string `json:"difficulty"`
	}
	if err := DecodeJSON(content, &payload); err != nil {
		return domain.DifficultyUnknown, fmt.Errorf("%w: classify difficulty: %v", domain.ErrSchema, err)
	}
	if payload.Difficulty == nil {
		return domain.DifficultyUnknown, fmt.Errorf("%w: classify difficulty: missing difficulty", domain.ErrSchema)
	}
	tier := domain.ParseDifficulty(*payload.Difficulty)
	if tier == domain.DifficultyUnknown {
		return tier, fmt.Errorf("%w: classify difficulty: unknown tier %q", domain.ErrSchema, *payload.Difficulty)
	}
	return tier, nil
}

// AnalyzeVocabulary tokenizes text and annotates every token. The result is
// validated against the token invariants before it is returned.
func (c *Client) AnalyzeVocabulary(ctx context.Context, text string, tier domain.Difficulty) ([]domain.Token, error) {
	content, err := c.CompleteJSON(ctx, vocabularySystemPrompt, vocabularyPrompt(text, tier))
	if err != nil {
		return nil, err
	}

	tokens, err := decodeTokens(content)
	if err != nil {
		return nil, fmt.Errorf("%w: analyze vocabulary: %v", domain.ErrSchema, err)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: analyze vocabulary: no tokens", domain.ErrSchema)
	}
	seq, err := domain.ValidateTokens(tokens)
	if err != nil {
		return nil, fmt.Errorf("analyze vocabulary: %w", err)
	}
	return seq, nil
}

// decodeTokens accepts either {"tokens": [...]} or a bare array.
func decodeTokens(content string) ([]domain.Token, error) {
	var wrapped struct {
		Tokens *[]domain.Token `json:"tokens"`
	}
	wrapErr := DecodeJSON(content, &wrapped)
	if wrapErr == nil && wrapped.Tokens != nil {
		return *wrapped.Tokens, nil
	}

	var bare []domain.Token
	if err := DecodeJSON(content, &bare); err != nil {
		if wrapErr != nil {
			return nil, wrapErr
		}
		return nil, err
	}
	return bare, nil
}

// Translate returns a Chinese translation with style notes and key phrases.
func (c *Client) Translate(ctx context.Context, text string) (domain.Translation, error) {
	content, err := c.CompleteJSON(ctx, translationSystemPrompt, fmt.Sprintf(translationUserPrompt, text))
	if err != nil {
		return domain.Translation{}, err
	}

	var payload struct {
		Translation *string            `json:"translation"`
		Style       string             `json:"style"`
		KeyPhrases  []domain.KeyPhrase `json:"key_phrases"`
	}
	if err := DecodeJSON(content, &payload); err != nil {
		return domain.Translation{}, fmt.Errorf("%w: translate: %v", domain.ErrSchema, err)
	}
	if payload.Translation == nil || strings.TrimSpace(*payload.Translation) == "" {
		return domain.Translation{}, fmt.Errorf("%w: translate: missing translation", domain.ErrSchema)
	}
	return domain.Translation{
		Translation: strings.TrimSpace(*payload.Translation),
		Style:       strings.TrimSpace(payload.Style),
		KeyPhrases:  nonNil(payload.KeyPhrases),
	}, nil
}

// AnalyzeSyntax returns sentence patterns, clauses and grammar points.
func (c *Client) AnalyzeSyntax(ctx context.Context, text string) (domain.Syntax, error) {
	content, err := c.CompleteJSON(ctx, syntaxSystemPrompt, fmt.Sprintf(syntaxUserPrompt, text))
	if err != nil {
		return domain.Syntax{}, err
	}

	var payload map[string]json.RawMessage
	if err := DecodeJSON(content, &payload); err != nil {
		return domain.Syntax{}, fmt.Errorf("%w: analyze syntax: %v", domain.ErrSchema, err)
	}
	_, hasStructures := payload["structures"]
	_, hasClauses := payload["clauses"]
	_, hasPoints := payload["grammar_points"]
	if !hasStructures && !hasClauses && !hasPoints {
		return domain.Syntax{}, fmt.Errorf("%w: analyze syntax: no structures, clauses or grammar points", domain.ErrSchema)
	}

	var syn domain.Syntax
	if err := DecodeJSON(content, &syn); err != nil {
		return domain.Syntax{}, fmt.Errorf("%w: analyze syntax: %v", domain.ErrSchema, err)
	}
	syn.Structures = nonNil(syn.Structures)
	syn.Clauses = nonNil(syn.Clauses)
	syn.GrammarPoints = nonNil(syn.GrammarPoints)
	return syn, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
