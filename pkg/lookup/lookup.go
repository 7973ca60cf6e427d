// Package lookup fetches short web summaries for unfamiliar terms. Wikipedia
// is tried first (search, then the summary endpoint of the best match), with
// the DuckDuckGo instant-answer API as fallback.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout = 10 * time.Second
	maxSummaryLen  = 1200
	userAgent      = "ai-agent/0.1 (+https://localhost)"
)

// Result is a short summary for a query.
type Result struct {
	Source  string `json:"source"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
}

// Client performs web lookups.
type Client struct {
	httpClient    *http.Client
	wikipediaURL  string
	duckduckgoURL string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithWikipediaURL overrides the Wikipedia base URL (tests).
func WithWikipediaURL(base string) Option {
	return func(c *Client) { c.wikipediaURL = strings.TrimRight(base, "/") }
}

// WithDuckDuckGoURL overrides the DuckDuckGo base URL (tests).
func WithDuckDuckGoURL(base string) Option {
	return func(c *Client) { c.duckduckgoURL = strings.TrimRight(base, "/") }
}

// NewClient creates a lookup client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: defaultTimeout},
		wikipediaURL:  "https://en.wikipedia.org",
		duckduckgoURL: "https://api.duckduckgo.com",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns a short summary for the query.
func (c *Client) Lookup(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}

	if res, err := c.lookupWikipedia(ctx, query); err == nil {
		return res, nil
	} else {
		log.Debug().Err(err).Str("query", query).Msg("Wikipedia lookup failed, trying DuckDuckGo")
	}

	return c.lookupDuckDuckGo(ctx, query)
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type wikiSummaryResponse struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

func (c *Client) lookupWikipedia(ctx context.Context, query string) (*Result, error) {
	searchURL := fmt.Sprintf(
		"%s/w/api.php?action=query&list=search&srsearch=%s&utf8=&format=json&srlimit=1",
		c.wikipediaURL, url.QueryEscape(query),
	)

	var search wikiSearchResponse
	if err := c.fetchJSON(ctx, searchURL, &search); err != nil {
		return nil, err
	}
	if len(search.Query.Search) == 0 {
		return nil, fmt.Errorf("no wikipedia results for %q", query)
	}

	title := strings.TrimSpace(search.Query.Search[0].Title)
	if title == "" {
		return nil, fmt.Errorf("empty wikipedia title for %q", query)
	}

	summaryURL := fmt.Sprintf(
		"%s/api/rest_v1/page/summary/%s",
		c.wikipediaURL, url.PathEscape(strings.ReplaceAll(title, " ", "_")),
	)

	var summary wikiSummaryResponse
	if err := c.fetchJSON(ctx, summaryURL, &summary); err != nil {
		return nil, err
	}

	extract := strings.TrimSpace(summary.Extract)
	if extract == "" {
		return nil, fmt.Errorf("no wikipedia extract for %q", title)
	}

	resultTitle := strings.TrimSpace(summary.Title)
	if resultTitle == "" {
		resultTitle = title
	}

	return &Result{
		Source:  "wikipedia",
		Title:   resultTitle,
		Summary: clip(extract, maxSummaryLen),
		URL:     summary.ContentURLs.Desktop.Page,
	}, nil
}

type ddgResponse struct {
	Heading       string `json:"Heading"`
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text string `json:"Text"`
	} `json:"RelatedTopics"`
}

func (c *Client) lookupDuckDuckGo(ctx context.Context, query string) (*Result, error) {
	reqURL := fmt.Sprintf(
		"%s/?q=%s&format=json&no_redirect=1&no_html=1",
		c.duckduckgoURL, url.QueryEscape(query),
	)

	var data ddgResponse
	if err := c.fetchJSON(ctx, reqURL, &data); err != nil {
		return nil, fmt.Errorf("web lookup failed: %w", err)
	}

	title := strings.TrimSpace(data.Heading)
	if title == "" {
		title = query
	}

	if abstract := strings.TrimSpace(data.AbstractText); abstract != "" {
		return &Result{
			Source:  "duckduckgo",
			Title:   title,
			Summary: clip(abstract, maxSummaryLen),
			URL:     data.AbstractURL,
		}, nil
	}

	var snippets []string
	for _, topic := range data.RelatedTopics {
		if text := strings.TrimSpace(topic.Text); text != "" {
			snippets = append(snippets, text)
		}
		if len(snippets) >= 3 {
			break
		}
	}
	if len(snippets) > 0 {
		return &Result{
			Source:  "duckduckgo",
			Title:   title,
			Summary: clip(strings.Join(snippets, " | "), maxSummaryLen),
		}, nil
	}

	return nil, fmt.Errorf("no web summary found for %q", query)
}

func (c *Client) fetchJSON(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, reqURL)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
