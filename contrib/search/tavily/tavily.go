// Package tavily implements the search.Searcher interface against the
// Tavily search API.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sweetpotato0/deepresearch/search"
)

const endpoint = "https://api.tavily.com/search"

// Tavily calls the Tavily search API.
type Tavily struct {
	APIKey string
	client *http.Client
	// Depth controls Tavily's depth parameter (basic or advanced).
	Depth string
}

// New constructs a Tavily search provider.
func New(apiKey string, depth string) *Tavily {
	if depth == "" {
		depth = "basic"
	}
	return &Tavily{APIKey: apiKey, Depth: depth, client: &http.Client{Timeout: 10 * time.Second}}
}

// NewWithClient constructs a Tavily search provider using the supplied HTTP
// client. This is useful for overriding the default timeout.
func NewWithClient(apiKey string, depth string, client *http.Client) *Tavily {
	if depth == "" {
		depth = "basic"
	}
	return &Tavily{APIKey: apiKey, Depth: depth, client: client}
}

type tavilyResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

// Search implements search.Searcher.
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	if strings.TrimSpace(t.APIKey) == "" {
		return nil, errors.New("tavily: API key is missing")
	}

	body := map[string]any{
		"query":   query,
		"api_key": t.APIKey,
		"depth":   t.Depth,
	}
	if maxResults > 0 {
		body["max_results"] = maxResults
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var resp *http.Response
	delay := 1 * time.Second
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = t.client.Do(req)
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
		return nil, fmt.Errorf("tavily http %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	results := make([]search.Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, search.Result{
			Title:   r.Title,
			Link:    r.URL,
			Snippet: r.Content,
		})
	}
	return results, nil
}
