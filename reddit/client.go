package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	defaultBaseURL   = "https://www.reddit.com"
	defaultUserAgent = "reddit-persona/1.0 (persona report generator)"
	pageSize         = 100
)

// Kind distinguishes the two item variants returned by the listing API.
type Kind string

const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
)

// RawItem is one post or comment exactly as fetched, before normalization.
type RawItem struct {
	ID         string
	Kind       Kind
	Title      string
	Body       string
	Subreddit  string
	Score      int
	CreatedUTC int64
	Permalink  string
	LinkURL    string
	LinkTitle  string
	IsSelf     bool
}

// Client fetches a user's public history from the Reddit listing API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithUserAgent overrides the request user agent.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new Reddit listing client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchItems returns up to limit posts and limit comments for the user,
// merged newest first.
func (c *Client) FetchItems(ctx context.Context, username string, limit int) ([]RawItem, error) {
	posts, err := c.fetchListing(ctx, username, "submitted", limit)
	if err != nil {
		return nil, fmt.Errorf("fetch posts for %s: %w", username, err)
	}

	comments, err := c.fetchListing(ctx, username, "comments", limit)
	if err != nil {
		return nil, fmt.Errorf("fetch comments for %s: %w", username, err)
	}

	items := append(posts, comments...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedUTC > items[j].CreatedUTC
	})
	return items, nil
}

func (c *Client) fetchListing(ctx context.Context, username, feed string, limit int) ([]RawItem, error) {
	var items []RawItem
	after := ""

	for limit <= 0 || len(items) < limit {
		count := pageSize
		if limit > 0 && limit-len(items) < count {
			count = limit - len(items)
		}

		page, next, err := c.fetchPage(ctx, username, feed, count, after)
		if err != nil {
			return nil, err
		}
		items = append(items, page...)

		if next == "" || len(page) == 0 {
			break
		}
		after = next
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (c *Client) fetchPage(ctx context.Context, username, feed string, count int, after string) ([]RawItem, string, error) {
	url := fmt.Sprintf("%s/user/%s/%s.json?limit=%d&raw_json=1", c.baseURL, username, feed, count)
	if after != "" {
		url += "&after=" + after
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s listing: %w", feed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var env listingEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, "", fmt.Errorf("decode listing: %w", err)
	}

	items := make([]RawItem, 0, len(env.Data.Children))
	for _, child := range env.Data.Children {
		items = append(items, child.toRawItem())
	}
	return items, env.Data.After, nil
}

// Listing API types

type listingEnvelope struct {
	Data struct {
		After    string         `json:"after"`
		Children []listingChild `json:"children"`
	} `json:"data"`
}

type listingChild struct {
	Kind string `json:"kind"`
	Data struct {
		Name       string  `json:"name"`
		Title      string  `json:"title"`
		SelfText   string  `json:"selftext"`
		Body       string  `json:"body"`
		Subreddit  string  `json:"subreddit"`
		Score      int     `json:"score"`
		CreatedUTC float64 `json:"created_utc"`
		Permalink  string  `json:"permalink"`
		URL        string  `json:"url"`
		LinkTitle  string  `json:"link_title"`
		IsSelf     bool    `json:"is_self"`
	} `json:"data"`
}

func (c listingChild) toRawItem() RawItem {
	item := RawItem{
		ID:         c.Data.Name,
		Subreddit:  c.Data.Subreddit,
		Score:      c.Data.Score,
		CreatedUTC: int64(c.Data.CreatedUTC),
		Permalink:  "https://reddit.com" + c.Data.Permalink,
	}

	switch c.Kind {
	case "t1":
		item.Kind = KindComment
		item.Body = c.Data.Body
		item.LinkTitle = c.Data.LinkTitle
	default:
		item.Kind = KindPost
		item.Title = c.Data.Title
		item.Body = c.Data.SelfText
		item.IsSelf = c.Data.IsSelf
		if !c.Data.IsSelf {
			item.LinkURL = c.Data.URL
		}
	}
	return item
}

var usernamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`reddit\.com/user/([^/?#]+)`),
	regexp.MustCompile(`reddit\.com/u/([^/?#]+)`),
}

// ParseUsername extracts a username from a profile URL, or accepts a bare
// username as-is.
func ParseUsername(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty username")
	}

	for _, pattern := range usernamePatterns {
		if match := pattern.FindStringSubmatch(s); match != nil {
			return match[1], nil
		}
	}

	s = strings.TrimPrefix(s, "u/")
	if strings.ContainsAny(s, "/:") {
		return "", fmt.Errorf("could not extract username from %q", s)
	}
	return s, nil
}
