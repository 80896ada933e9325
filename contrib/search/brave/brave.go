// Package brave implements the search.Searcher interface against the Brave
// Search API. An API key is required via X-Subscription-Token.
package brave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sweetpotato0/deepresearch/search"
)

// keyGate holds a per-API-key mutex and the earliest time that a request is
// allowed. All Brave instances sharing an API key share a single gate so
// that only one request per second is issued for that key, matching the
// Brave rate limit of 1 req/s.
type keyGate struct {
	mu      sync.Mutex
	readyAt time.Time // earliest moment the next request may fire
}

var (
	gatesMu sync.Mutex
	gates   = map[string]*keyGate{}
)

func gateFor(apiKey string) *keyGate {
	gatesMu.Lock()
	defer gatesMu.Unlock()
	g, ok := gates[apiKey]
	if !ok {
		g = &keyGate{}
		gates[apiKey] = g
	}
	return g
}

// waitAndLock blocks until the caller may issue a request, then returns with
// the gate locked. The caller must call unlock(delay) after receiving the
// response. Returns ctx.Err() if the context expires while waiting.
func (g *keyGate) waitAndLock(ctx context.Context) error {
	g.mu.Lock()
	now := time.Now()
	if wait := g.readyAt.Sub(now); wait > 0 {
		g.mu.Unlock() // release while sleeping
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		g.mu.Lock()
	}
	return nil
}

// unlock sets the minimum delay before the next request and releases the
// gate so the next waiter may proceed.
func (g *keyGate) unlock(delay time.Duration) {
	g.readyAt = time.Now().Add(delay)
	g.mu.Unlock()
}

// Brave uses the Brave Search API.
type Brave struct {
	APIKey string
	client *http.Client
}

// New constructs a Brave search provider.
func New(apiKey string) *Brave {
	return &Brave{APIKey: apiKey, client: &http.Client{Timeout: 10 * time.Second}}
}

// NewWithClient constructs a Brave search provider using the supplied HTTP
// client. This is useful for overriding the default timeout.
func NewWithClient(apiKey string, client *http.Client) *Brave {
	return &Brave{APIKey: apiKey, client: client}
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search implements search.Searcher. Concurrent calls sharing the same API
// key are serialised through a shared per-key gate to respect rate limits.
func (b *Brave) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	if strings.TrimSpace(b.APIKey) == "" {
		return nil, errors.New("brave: API key is missing")
	}
	endpoint := fmt.Sprintf("https://api.search.brave.com/res/v1/web/search?q=%s", url.QueryEscape(query))
	if maxResults > 0 {
		endpoint += fmt.Sprintf("&count=%d", maxResults)
	}

	gate := gateFor(b.APIKey)

	var resp *http.Response
	delay := 1 * time.Second
	for {
		// Wait for our turn under the shared gate.
		if err := gate.waitAndLock(ctx); err != nil {
			return nil, err
		}

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if reqErr != nil {
			gate.unlock(0)
			return nil, reqErr
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Subscription-Token", b.APIKey)

		var doErr error
		resp, doErr = b.client.Do(req)
		gate.unlock(time.Second)
		if doErr != nil {
			return nil, doErr
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
		return nil, fmt.Errorf("brave http %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed braveResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("brave: decode response: %w", err)
	}

	results := make([]search.Result, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		results = append(results, search.Result{
			Title:   r.Title,
			Link:    r.URL,
			Snippet: r.Description,
		})
	}
	return results, nil
}
