package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/ports"
)

var instantRetry = RetryPolicy{Attempts: 3, InitialDelay: 0, Multiplier: 2}

var sourceLoc = time.FixedZone("CST", 8*3600)

type fakeSource struct {
	mu          sync.Mutex
	pages       map[int][]ports.ListingItem
	details     map[string]ports.ItemDetail
	listErr     map[int]error
	listCalls   []int
	detailCalls []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		pages:   map[int][]ports.ListingItem{},
		details: map[string]ports.ItemDetail{},
		listErr: map[int]error{},
	}
}

// add registers an item on page with a listing date and a matching detail.
func (s *fakeSource) add(page int, id string, published time.Time, markup string) {
	s.pages[page] = append(s.pages[page], ports.ListingItem{ID: id, Date: published})
	s.details[id] = ports.ItemDetail{
		Title:         "Title " + id,
		PublishedAt:   published.In(sourceLoc).Format(detailTimeLayout),
		GradeHints:    []string{"四级"},
		ThumbnailURLs: []string{"https://img.example.org/" + id + ".jpg"},
		Content:       markup,
	}
}

func (s *fakeSource) ListPage(_ context.Context, page int) ([]ports.ListingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls = append(s.listCalls, page)
	if err := s.listErr[page]; err != nil {
		return nil, err
	}
	return s.pages[page], nil
}

func (s *fakeSource) FetchDetail(_ context.Context, id string) (ports.ItemDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detailCalls = append(s.detailCalls, id)
	detail, ok := s.details[id]
	if !ok {
		return ports.ItemDetail{}, fmt.Errorf("%w: item %s", domain.ErrNotFound, id)
	}
	return detail, nil
}

func (s *fakeSource) SourceRef(id string) string {
	return "https://source.example.org/articles/" + id
}

// fakeModel answers every language call deterministically and counts calls.
// Vocabulary analysis splits on whitespace, which keeps marker tokens intact.
type fakeModel struct {
	tier         domain.Difficulty
	classifyErr  error
	translateErr func(text string) error
	vocabulary   func(text string) ([]domain.Token, error)

	classifyCalls   atomic.Int32
	translateCalls  atomic.Int32
	syntaxCalls     atomic.Int32
	vocabularyCalls atomic.Int32

	mu          sync.Mutex
	vocabInputs []string
}

func (m *fakeModel) ClassifyDifficulty(_ context.Context, _ string) (domain.Difficulty, error) {
	m.classifyCalls.Add(1)
	if m.classifyErr != nil {
		return domain.DifficultyUnknown, m.classifyErr
	}
	if m.tier == "" {
		return domain.DifficultyUnknown, nil
	}
	return m.tier, nil
}

func (m *fakeModel) AnalyzeVocabulary(_ context.Context, text string, _ domain.Difficulty) ([]domain.Token, error) {
	m.vocabularyCalls.Add(1)
	m.mu.Lock()
	m.vocabInputs = append(m.vocabInputs, text)
	m.mu.Unlock()
	if m.vocabulary != nil {
		return m.vocabulary(text)
	}
	return whitespaceTokens(text), nil
}

func (m *fakeModel) Translate(_ context.Context, text string) (domain.Translation, error) {
	m.translateCalls.Add(1)
	if m.translateErr != nil {
		if err := m.translateErr(text); err != nil {
			return domain.Translation{}, err
		}
	}
	return domain.Translation{Translation: "译:" + text, Style: "plain", KeyPhrases: []domain.KeyPhrase{}}, nil
}

func (m *fakeModel) AnalyzeSyntax(_ context.Context, text string) (domain.Syntax, error) {
	m.syntaxCalls.Add(1)
	return domain.Syntax{
		Structures:    []domain.Structure{{Pattern: "SVO", Content: text}},
		Clauses:       []domain.Clause{},
		GrammarPoints: []domain.GrammarPoint{},
	}, nil
}

func (m *fakeModel) calls() int {
	return int(m.classifyCalls.Load() + m.translateCalls.Load() + m.syntaxCalls.Load() + m.vocabularyCalls.Load())
}

func whitespaceTokens(text string) []domain.Token {
	fields := strings.Fields(text)
	tokens := make([]domain.Token, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, domain.Token{Text: f, Type: domain.TokenNormal})
	}
	return tokens
}

type fakeSpeech struct {
	err     error
	release chan struct{}
	calls   atomic.Int32
}

func (s *fakeSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	s.calls.Add(1)
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return []byte("mp3:" + text), nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) PublishSummary(_ context.Context, summary string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, summary)
	return nil
}

func paraMarkup(paragraphs ...string) string {
	var b strings.Builder
	b.WriteString("<article>")
	for _, p := range paragraphs {
		if strings.HasPrefix(p, "img:") {
			fmt.Fprintf(&b, "<para><img><url>%s</url></img></para>", strings.TrimPrefix(p, "img:"))
			continue
		}
		fmt.Fprintf(&b, "<para><sent><![CDATA[%s]]></sent></para>", p)
	}
	b.WriteString("</article>")
	return b.String()
}
