// Package scrape extracts readable text from pages linked by posts, so link
// posts without a selftext still contribute content to the corpus.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

const defaultMaxExcerptLen = 1200

// Scraper fetches a linked page and extracts its readable text.
type Scraper struct {
	httpClient    *http.Client
	maxExcerptLen int
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		s.httpClient.Timeout = d
	}
}

// WithMaxExcerptLength sets the maximum excerpt length to return.
func WithMaxExcerptLength(n int) Option {
	return func(s *Scraper) {
		s.maxExcerptLen = n
	}
}

// NewScraper creates a new link-content scraper.
func NewScraper(opts ...Option) *Scraper {
	s := &Scraper{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		maxExcerptLen: defaultMaxExcerptLen,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape returns a readable-text excerpt of the page at rawURL.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", fmt.Errorf("invalid URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; reddit-persona/1.0)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return "", fmt.Errorf("extract content: %w", err)
	}

	excerpt := strings.TrimSpace(article.TextContent)
	if len(excerpt) > s.maxExcerptLen {
		excerpt = excerpt[:s.maxExcerptLen]
	}
	return excerpt, nil
}
