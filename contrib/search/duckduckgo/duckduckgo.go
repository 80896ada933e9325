// Package duckduckgo implements the search.Searcher interface against
// DuckDuckGo's lite HTML interface, which is stable enough to scrape and
// needs no API key.
package duckduckgo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sweetpotato0/deepresearch/search"
)

const liteEndpoint = "https://lite.duckduckgo.com/lite/"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// rateLimit enforces a global limit of 1 query per second across all
// DuckDuckGo instances and goroutines.
var rateLimit struct {
	mu   sync.Mutex
	last time.Time
}

// DuckDuckGo scrapes the DuckDuckGo lite HTML page for results.
type DuckDuckGo struct {
	client *http.Client
}

// New creates a DuckDuckGo searcher with a modest timeout.
func New() *DuckDuckGo {
	return &DuckDuckGo{client: &http.Client{Timeout: 15 * time.Second}}
}

// NewWithClient creates a DuckDuckGo searcher using the supplied HTTP client.
// This is useful for overriding the default timeout.
func NewWithClient(client *http.Client) *DuckDuckGo {
	return &DuckDuckGo{client: client}
}

// Search implements search.Searcher.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}

	// Enforce global 1 QPS rate limit.
	rateLimit.mu.Lock()
	if wait := time.Until(rateLimit.last.Add(time.Second)); wait > 0 {
		rateLimit.mu.Unlock()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		rateLimit.mu.Lock()
	}
	rateLimit.last = time.Now()
	rateLimit.mu.Unlock()

	formData := url.Values{}
	formData.Set("q", query)

	var resp *http.Response
	delay := 1 * time.Second
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, liteEndpoint, strings.NewReader(formData.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err = d.client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()

		// Back off and retry on 429, doubling the delay each time up to 30 s.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo http %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return parseLiteResults(doc, maxResults), nil
}

// parseLiteResults extracts search results from the DuckDuckGo lite page.
// The page is a flat table: each result contributes a link row followed by a
// snippet row.
func parseLiteResults(doc *goquery.Document, maxResults int) []search.Result {
	var results []search.Result

	doc.Find("a.result-link").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if maxResults > 0 && len(results) >= maxResults {
			return false
		}

		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return true
		}

		title := strings.TrimSpace(sel.Text())
		if title == "" {
			return true
		}

		// The snippet lives in the next table row.
		snippet := ""
		row := sel.Closest("tr")
		if row.Length() > 0 {
			snippet = strings.TrimSpace(row.Next().Find(".result-snippet").Text())
		}

		results = append(results, search.Result{
			Title:   title,
			Link:    resolveRedirect(href),
			Snippet: snippet,
		})
		return true
	})

	return results
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg=... redirect links to the
// destination URL.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasSuffix(u.Host, "duckduckgo.com") && u.Path == "/l/" {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return href
}
