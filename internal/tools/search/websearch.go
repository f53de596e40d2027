// Package search provides the web search tool.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ChamsBouzaiene/sandrun/internal/engine"
)

const (
	// DefaultEndpoint is DuckDuckGo's script-free results page.
	DefaultEndpoint = "https://html.duckduckgo.com/html/"
	// DefaultMaxResults matches the default of the web_search_tool builtin.
	DefaultMaxResults = 10

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) sandrun/1.0"
)

// ErrNoResults is returned when the results page lists nothing.
var ErrNoResults = errors.New("no results found! Try a less restrictive/shorter query")

// Result is one search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Options configures a WebSearch.
type Options struct {
	Endpoint   string
	MaxResults int
	HTTPClient *http.Client
	Timeout    time.Duration
}

// WebSearch queries DuckDuckGo and scrapes the HTML results page.
type WebSearch struct {
	endpoint   string
	maxResults int
	client     *http.Client
	timeout    time.Duration
}

// NewWebSearch fills unset options with defaults.
func NewWebSearch(opts Options) *WebSearch {
	ws := &WebSearch{
		endpoint:   opts.Endpoint,
		maxResults: opts.MaxResults,
		client:     opts.HTTPClient,
		timeout:    opts.Timeout,
	}
	if ws.endpoint == "" {
		ws.endpoint = DefaultEndpoint
	}
	if ws.maxResults <= 0 {
		ws.maxResults = DefaultMaxResults
	}
	if ws.client == nil {
		ws.client = http.DefaultClient
	}
	if ws.timeout <= 0 {
		ws.timeout = 30 * time.Second
	}
	return ws
}

// Search returns at most MaxResults hits for query.
func (w *WebSearch) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	results, err := parseResults(resp.Body, w.maxResults)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results, nil
}

// Format renders results as the markdown list the agent reads.
func Format(results []Result) string {
	var b strings.Builder
	b.WriteString("## Search Results\n\n")
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s](%s)\n%s", r.Title, r.URL, r.Snippet)
	}
	return b.String()
}

// Tool exposes the search as the web_search tool.
func (w *WebSearch) Tool() engine.Tool {
	return engine.Tool{
		Name:        "web_search",
		Description: "Performs a web search for your query then returns a string of the top search results.",
		SchemaJSON:  `{"type":"object","properties":{"query":{"type":"string","description":"The search query to perform."}},"required":["query"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			query, _ := args["query"].(string)
			results, err := w.Search(ctx, query)
			if err != nil {
				return "", err
			}
			return Format(results), nil
		},
	}
}

// parseResults walks the page collecting div.result blocks.
func parseResults(r io.Reader, limit int) ([]Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results page: %w", err)
	}

	var results []Result
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(results) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") && !hasClass(n, "result--ad") {
			if res, ok := parseResult(n); ok {
				results = append(results, res)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func parseResult(n *html.Node) (Result, bool) {
	var res Result
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "a" && hasClass(n, "result__a"):
				res.Title = textContent(n)
				res.URL = resolveLink(attr(n, "href"))
			case hasClass(n, "result__snippet"):
				res.Snippet = textContent(n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return res, res.Title != "" && res.URL != ""
}

// resolveLink unwraps DuckDuckGo's redirect links (//duckduckgo.com/l/?uddg=...).
func resolveLink(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
