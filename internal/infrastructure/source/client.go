package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ArticleEnricher/internal/config"
	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/ports"
)

const listingDateLayout = "2006-01-02"

// Client reads the paged listing and item details of the article source.
type Client struct {
	listURL     string
	detailURL   string
	refTemplate string
	pageSize    int
	userAgent   string
	location    *time.Location
	http        *http.Client
}

var _ ports.ArticleSource = (*Client)(nil)

// NewClient wires an HTTP client; a nil client gets a 20 second timeout.
func NewClient(cfg config.SourceConfig, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Client{
		listURL:     cfg.ListURL,
		detailURL:   strings.TrimSuffix(cfg.DetailURL, "/"),
		refTemplate: cfg.SourceRefTemplate,
		pageSize:    pageSize,
		userAgent:   cfg.UserAgent,
		location:    cfg.Location(),
		http:        client,
	}
}

type listingPayload struct {
	Objects []struct {
		ID   flexibleID `json:"id"`
		Date string     `json:"date"`
	} `json:"objects"`
}

type detailPayload struct {
	TitleEN     string `json:"title_en"`
	PublishedAt string `json:"published_at"`
	GradeInfo   string `json:"grade_info"`
	SbayLevel   *struct {
		Name string `json:"name"`
	} `json:"sbay_level"`
	ThumbnailURLs []string `json:"thumbnail_urls"`
	Content       string   `json:"content"`
}

// ListPage returns the items of one listing page, newest first. Dates that
// cannot be parsed are left zero.
func (c *Client) ListPage(ctx context.Context, page int) ([]ports.ListingItem, error) {
	pageURL, err := buildPageURL(c.listURL, page, c.pageSize)
	if err != nil {
		return nil, err
	}

	var payload listingPayload
	if err := c.getJSON(ctx, pageURL, &payload); err != nil {
		return nil, fmt.Errorf("list page %d: %w", page, err)
	}

	items := make([]ports.ListingItem, 0, len(payload.Objects))
	for _, obj := range payload.Objects {
		if obj.ID == "" {
			continue
		}
		item := ports.ListingItem{ID: string(obj.ID)}
		if parsed, err := time.ParseInLocation(listingDateLayout, strings.TrimSpace(obj.Date), c.location); err == nil {
			item.Date = parsed
		}
		items = append(items, item)
	}
	return items, nil
}

// FetchDetail returns the raw detail record of one item.
func (c *Client) FetchDetail(ctx context.Context, id string) (ports.ItemDetail, error) {
	var payload detailPayload
	if err := c.getJSON(ctx, c.detailURL+"/"+url.PathEscape(id), &payload); err != nil {
		return ports.ItemDetail{}, fmt.Errorf("detail %s: %w", id, err)
	}

	detail := ports.ItemDetail{
		Title:         strings.TrimSpace(payload.TitleEN),
		PublishedAt:   strings.TrimSpace(payload.PublishedAt),
		GradeHints:    []string{payload.GradeInfo},
		ThumbnailURLs: payload.ThumbnailURLs,
		Content:       payload.Content,
	}
	if payload.SbayLevel != nil {
		detail.GradeHints = append(detail.GradeHints, payload.SbayLevel.Name)
	}
	if detail.Title == "" {
		detail.Title = "No Title"
	}
	return detail, nil
}

// SourceRef renders the canonical public reference of an item.
func (c *Client) SourceRef(id string) string {
	if strings.Contains(c.refTemplate, "%s") {
		return fmt.Sprintf(c.refTemplate, id)
	}
	return strings.TrimSuffix(c.refTemplate, "/") + "/" + id
}

func (c *Client) getJSON(ctx context.Context, target string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: source returned %s", domain.ErrNetwork, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", domain.ErrNetwork, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decode body: %v", domain.ErrParse, err)
	}
	return nil
}

func buildPageURL(base string, page, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("ipp", strconv.Itoa(pageSize))
	query.Set("page", strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// flexibleID accepts identifiers encoded either as JSON strings or numbers.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}
