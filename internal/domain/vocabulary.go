package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// TokenType is the closed set of vocabulary token kinds.
type TokenType string

const (
	TokenNormal      TokenType = "normal"
	TokenAttention   TokenType = "attention"
	TokenPunctuation TokenType = "punctuation"
)

// Valid reports whether t is one of the known kinds.
func (t TokenType) Valid() bool {
	switch t {
	case TokenNormal, TokenAttention, TokenPunctuation:
		return true
	}
	return false
}

// UnmarshalJSON rejects labels outside the closed set.
func (t *TokenType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("token type: %w", err)
	}
	candidate := TokenType(strings.ToLower(strings.TrimSpace(raw)))
	if !candidate.Valid() {
		return fmt.Errorf("token type %q is not one of normal, attention, punctuation", raw)
	}
	*t = candidate
	return nil
}

// Token is the smallest unit of vocabulary analysis.
type Token struct {
	Text           string    `json:"text"`
	Type           TokenType `json:"type"`
	Definition     string    `json:"definition"`
	ContextMeaning string    `json:"context_meaning"`
	GroupID        *int      `json:"group_id"`
}

// TokenSequence is the ordered analysis of one paragraph. A nil sequence means
// the analysis never ran; an empty non-nil sequence is a finished analysis.
type TokenSequence []Token

// Text concatenates token texts in order, separated by single spaces.
func (s TokenSequence) Text() string {
	parts := make([]string, 0, len(s))
	for _, tok := range s {
		parts = append(parts, tok.Text)
	}
	return strings.Join(parts, " ")
}

// ValidateTokens checks the group invariants of a token sequence and returns a
// normalised copy: every group shares one type (a mismatch is ErrSchema) and
// only the first member of a group keeps its definition and context meaning.
func ValidateTokens(tokens []Token) (TokenSequence, error) {
	out := make(TokenSequence, len(tokens))
	groupTypes := map[int]TokenType{}
	for i, tok := range tokens {
		if !tok.Type.Valid() {
			return nil, fmt.Errorf("%w: token %d has type %q", ErrSchema, i, tok.Type)
		}
		if tok.GroupID != nil {
			gid := *tok.GroupID
			if first, seen := groupTypes[gid]; seen {
				if first != tok.Type {
					return nil, fmt.Errorf("%w: group %d mixes %s and %s", ErrSchema, gid, first, tok.Type)
				}
				tok.Definition = ""
				tok.ContextMeaning = ""
			} else {
				groupTypes[gid] = tok.Type
			}
			id := gid
			tok.GroupID = &id
		}
		out[i] = tok
	}
	return out, nil
}

// SameTextModuloWhitespace reports whether the token texts reproduce text once
// all whitespace is ignored.
func SameTextModuloWhitespace(tokens []Token, text string) bool {
	var joined strings.Builder
	for _, tok := range tokens {
		joined.WriteString(tok.Text)
	}
	return stripSpace(joined.String()) == stripSpace(text)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
