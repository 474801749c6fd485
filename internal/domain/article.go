package domain

import "time"

// Article is a discovered source item together with its reading metadata.
type Article struct {
	ID          int64
	Title       string
	SourceRef   string
	CoverImage  string
	Difficulty  Difficulty
	WordCount   int
	PublishedAt *time.Time
	CreatedAt   time.Time
	FullAudio   string
}

// Stage names one enrichment process applied to a paragraph.
type Stage string

const (
	StageTranslation Stage = "translation"
	StageSyntax      Stage = "syntax"
	StageAudio       Stage = "audio"
	StageVocabulary  Stage = "vocabulary"
)

// Stages lists every paragraph-level stage.
var Stages = []Stage{StageTranslation, StageSyntax, StageAudio, StageVocabulary}

// FieldState tells whether an enrichment field was ever produced.
// A Done field may hold an empty value; only NotStarted fields are retried.
type FieldState int

const (
	NotStarted FieldState = iota
	Done
)

func (s FieldState) String() string {
	if s == Done {
		return "done"
	}
	return "not_started"
}

// Paragraph is one ordered unit of an article with its enrichment payloads.
type Paragraph struct {
	ID          int64
	ArticleID   int64
	OrderIndex  int
	Content     string
	ImageURL    string
	Translation *Translation
	Syntax      *Syntax
	AudioRef    *string
	Vocabulary  TokenSequence
}

// HasText reports whether the paragraph carries text worth enriching.
func (p Paragraph) HasText() bool {
	for _, r := range p.Content {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

// State reports the state of the field backing the given stage.
func (p Paragraph) State(stage Stage) FieldState {
	var done bool
	switch stage {
	case StageTranslation:
		done = p.Translation != nil
	case StageSyntax:
		done = p.Syntax != nil
	case StageAudio:
		done = p.AudioRef != nil
	case StageVocabulary:
		done = p.Vocabulary != nil
	}
	if done {
		return Done
	}
	return NotStarted
}

// FullyEnriched is true once all four enrichment fields are set.
func (p Paragraph) FullyEnriched() bool {
	for _, stage := range Stages {
		if p.State(stage) != Done {
			return false
		}
	}
	return true
}

// ContentKind distinguishes parsed content items.
type ContentKind int

const (
	ContentText ContentKind = iota
	ContentImage
)

// ContentItem is a transient parser output; it is folded into Paragraph rows on creation.
type ContentItem struct {
	Kind  ContentKind
	Value string
}

// KeyPhrase pairs a source phrase with its translation.
type KeyPhrase struct {
	EN string `json:"en"`
	CN string `json:"cn"`
}

// Translation is the payload of the translation stage.
type Translation struct {
	Translation string      `json:"translation"`
	Style       string      `json:"style"`
	KeyPhrases  []KeyPhrase `json:"key_phrases"`
}

// Structure describes one sentence pattern found in a paragraph.
type Structure struct {
	Pattern     string `json:"pattern"`
	Content     string `json:"content"`
	Explanation string `json:"explanation"`
}

// Clause describes one subordinate or coordinate clause.
type Clause struct {
	Type        string `json:"type"`
	Content     string `json:"content"`
	Explanation string `json:"explanation"`
}

// GrammarPoint is a grammar feature actually used by the paragraph.
type GrammarPoint struct {
	Point       string `json:"point"`
	PointCN     string `json:"point_cn"`
	Explanation string `json:"explanation"`
}

// Syntax is the payload of the syntax stage.
type Syntax struct {
	Structures    []Structure    `json:"structures"`
	Clauses       []Clause       `json:"clauses"`
	GrammarPoints []GrammarPoint `json:"grammar_points"`
}
