package ports

import (
	"context"
	"time"

	"ArticleEnricher/internal/domain"
)

// ListingItem is one entry of a listing page.
type ListingItem struct {
	ID   string
	Date time.Time
}

// ItemDetail is the raw detail payload of one source item.
type ItemDetail struct {
	Title         string
	PublishedAt   string
	GradeHints    []string
	ThumbnailURLs []string
	Content       string
}

// ArticleSource pulls listing pages and item details from the upstream source.
type ArticleSource interface {
	ListPage(ctx context.Context, page int) ([]ListingItem, error)
	FetchDetail(ctx context.Context, id string) (ItemDetail, error)
	SourceRef(id string) string
}

// LanguageModel exposes the four language operations used during enrichment.
type LanguageModel interface {
	ClassifyDifficulty(ctx context.Context, text string) (domain.Difficulty, error)
	AnalyzeVocabulary(ctx context.Context, text string, tier domain.Difficulty) ([]domain.Token, error)
	Translate(ctx context.Context, text string) (domain.Translation, error)
	AnalyzeSyntax(ctx context.Context, text string) (domain.Syntax, error)
}

// SpeechSynthesizer turns text into encoded audio bytes.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// ArticleStore persists articles, paragraphs and their enrichment fields.
type ArticleStore interface {
	ArticleExists(ctx context.Context, sourceRef string) (bool, error)
	CreateArticle(ctx context.Context, article domain.Article, paragraphs []domain.Paragraph) (int64, error)
	GetArticle(ctx context.Context, id int64) (domain.Article, error)
	ListParagraphs(ctx context.Context, articleID int64) ([]domain.Paragraph, error)
	GetParagraph(ctx context.Context, id int64) (domain.Paragraph, error)
	StaleArticleIDs(ctx context.Context, cutoff time.Time) ([]int64, error)
	DeleteArticle(ctx context.Context, id int64) error
	PendingArticleIDs(ctx context.Context, since time.Time) ([]int64, error)
	SetDifficulty(ctx context.Context, articleID int64, tier domain.Difficulty) error
	SetTranslation(ctx context.Context, paragraphID int64, tr domain.Translation) error
	SetSyntax(ctx context.Context, paragraphID int64, syn domain.Syntax) error
	SetAudioRef(ctx context.Context, paragraphID int64, ref string) error
	SetVocabulary(ctx context.Context, batch map[int64]domain.TokenSequence) error
}

// AudioStore keeps synthesized audio artifacts addressed by article and order index.
type AudioStore interface {
	Ref(articleID int64, orderIndex int) string
	Exists(ref string) bool
	Read(ref string) ([]byte, error)
	Write(ref string, audio []byte) error
	RemoveArticle(articleID int64) error
}

// Notifier delivers run summaries to an operator channel.
type Notifier interface {
	PublishSummary(ctx context.Context, summary string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
