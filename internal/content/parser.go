// Package content turns the source's article markup into ordered content items.
//
// The markup is an XML dialect: <para> elements hold CDATA sentences and
// zero or more <img> elements whose <url> child references an image. CDATA
// text may itself carry inline HTML (emphasis, links, entities).
package content

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ArticleEnricher/internal/domain"
)

var (
	paraExpr  = regexp.MustCompile(`(?s)<para\b[^>]*>(.*?)</para>`)
	imageExpr = regexp.MustCompile(`(?s)<img\b[^>]*>.*?</img>`)
	urlExpr   = regexp.MustCompile(`(?s)<url>(.*?)</url>`)
	cdataExpr = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
)

// Parse splits markup into paragraph groups. Inside a group, image items come
// first in source order, followed by at most one text item made of the
// paragraph's text fragments joined with single spaces. Without any paragraph
// markers the whole document collapses into one text item. Empty paragraphs
// are dropped; a document without any item is a parse error.
func Parse(markup string) ([][]domain.ContentItem, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, fmt.Errorf("%w: empty markup", domain.ErrParse)
	}

	paras := paraExpr.FindAllStringSubmatch(markup, -1)
	if len(paras) == 0 {
		text := joinFragments(markup)
		if text == "" {
			return nil, fmt.Errorf("%w: no paragraphs or text fragments", domain.ErrParse)
		}
		return [][]domain.ContentItem{{{Kind: domain.ContentText, Value: text}}}, nil
	}

	groups := make([][]domain.ContentItem, 0, len(paras))
	for _, match := range paras {
		body := match[1]
		var items []domain.ContentItem

		for _, img := range imageExpr.FindAllString(body, -1) {
			urlMatch := urlExpr.FindStringSubmatch(img)
			if urlMatch == nil {
				continue
			}
			if ref := strings.TrimSpace(unwrapCDATA(urlMatch[1])); ref != "" {
				items = append(items, domain.ContentItem{Kind: domain.ContentImage, Value: ref})
			}
		}

		// Image captions are CDATA too; strip the image elements before collecting text.
		if text := joinFragments(imageExpr.ReplaceAllString(body, "")); text != "" {
			items = append(items, domain.ContentItem{Kind: domain.ContentText, Value: text})
		}

		if len(items) > 0 {
			groups = append(groups, items)
		}
	}

	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: all paragraphs empty", domain.ErrParse)
	}
	return groups, nil
}

// Flatten returns the items of every group in source order.
func Flatten(groups [][]domain.ContentItem) []domain.ContentItem {
	var items []domain.ContentItem
	for _, group := range groups {
		items = append(items, group...)
	}
	return items
}

// WordCount counts whitespace separated words across text items only.
func WordCount(items []domain.ContentItem) int {
	total := 0
	for _, item := range items {
		if item.Kind == domain.ContentText {
			total += len(strings.Fields(item.Value))
		}
	}
	return total
}

func joinFragments(fragment string) string {
	var parts []string
	for _, m := range cdataExpr.FindAllStringSubmatch(fragment, -1) {
		if text := plainText(m[1]); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func unwrapCDATA(value string) string {
	if m := cdataExpr.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	return value
}

// plainText flattens inline HTML and entities into single-spaced text.
func plainText(fragment string) string {
	text := fragment
	if strings.ContainsAny(fragment, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment)); err == nil {
			text = doc.Text()
		}
	}
	return strings.Join(strings.Fields(text), " ")
}
