package arxiv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/atom"
	"golang.org/x/time/rate"

	"github.com/kirillkom/scholar-rag/internal/core/domain"
	"github.com/kirillkom/scholar-rag/internal/infrastructure/resilience"
)

const DefaultBaseURL = "http://export.arxiv.org/api/query"

// arXiv asks API clients to keep at least three seconds between requests.
const defaultInterval = 3 * time.Second

// Client searches the arXiv Atom API ordered by relevance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
	limiter    *rate.Limiter
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = executor
	}
}

// WithInterval sets the minimum spacing between API requests. Zero disables pacing.
func WithInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

func New(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(defaultInterval), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]domain.Paper, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "arxiv search", fmt.Errorf("query is required"))
	}
	if maxResults <= 0 {
		maxResults = 1
	}

	papers, err := resilience.Call(ctx, c.executor, "arxiv.search", func(ctx context.Context) ([]domain.Paper, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return c.fetch(ctx, query, maxResults)
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return nil, resilience.WrapTemporary("arxiv search", err, resilience.ClassifyHTTPError)
	}
	return papers, nil
}

func (c *Client) fetch(ctx context.Context, query string, maxResults int) ([]domain.Paper, error) {
	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Accept", "application/atom+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &resilience.HTTPStatusError{
			Service:    "arxiv",
			Operation:  "search",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}

	// atom.Parser carries xml:base state, so each response gets its own.
	parsed, err := (&atom.Parser{}).Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode arxiv feed: %w", err)
	}

	papers := make([]domain.Paper, 0, len(parsed.Entries))
	for _, e := range parsed.Entries {
		if e == nil || strings.TrimSpace(e.ID) == "" {
			continue
		}
		papers = append(papers, toPaper(e))
		if len(papers) == maxResults {
			break
		}
	}
	return papers, nil
}

func toPaper(e *atom.Entry) domain.Paper {
	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		if a == nil {
			continue
		}
		if name := collapse(a.Name); name != "" {
			authors = append(authors, name)
		}
	}
	return domain.Paper{
		Title:     collapse(e.Title),
		Abstract:  strings.TrimSpace(e.Summary),
		Authors:   authors,
		Published: publishedDate(e.Published),
		SourceID:  strings.TrimSpace(e.ID),
		PDFURL:    pdfLink(e),
	}
}

func publishedDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format("2006-01-02")
	}
	if len(raw) >= 10 {
		return raw[:10]
	}
	return raw
}

func pdfLink(e *atom.Entry) string {
	for _, l := range e.Links {
		if l == nil {
			continue
		}
		if l.Title == "pdf" || l.Type == "application/pdf" {
			return l.Href
		}
	}
	// Entries without an explicit pdf link still resolve under /pdf/.
	if id := strings.TrimSpace(e.ID); strings.Contains(id, "/abs/") {
		return strings.Replace(id, "/abs/", "/pdf/", 1)
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
