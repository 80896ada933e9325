// Package gemini implements the gateway.Gateway interface against the
// Google Gemini REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sweetpotato0/deepresearch/gateway"
)

const geminiAPIURL = "https://generativelanguage.googleapis.com/v1/models"

// Config holds Gemini provider configuration
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       "gemini-pro",
		MaxTokens:   2048,
		Temperature: 0.1,
	}
}

// Provider implements the gateway.Gateway interface for Google Gemini
type Provider struct {
	config *Config
	client *http.Client
}

// New creates a new Gemini provider
func New(config *Config) *Provider {
	if config == nil {
		config = DefaultConfig("")
	}

	if config.Model == "" {
		config.Model = "gemini-pro"
	}

	return &Provider{
		config: config,
		client: &http.Client{},
	}
}

// geminiMessage represents a message in Gemini API format
type geminiMessage struct {
	Role  string `json:"role"`
	Parts []struct {
		Text string `json:"text"`
	} `json:"parts"`
}

// geminiRequest represents a Gemini API request
type geminiRequest struct {
	Contents    []geminiMessage `json:"contents"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float32         `json:"temperature,omitempty"`
}

// geminiResponse represents a Gemini API response
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *geminiError `json:"error,omitempty"`
}

// geminiError represents an error in Gemini API response
type geminiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Complete implements gateway.Gateway
func (p *Provider) Complete(ctx context.Context, req *gateway.Request) (string, error) {
	if p.config.APIKey == "" {
		return "", fmt.Errorf("Gemini API key not configured")
	}
	if req == nil {
		return "", fmt.Errorf("completion request cannot be nil")
	}

	// The v1 generateContent endpoint has no separate system slot, so the
	// system role is folded into the user turn.
	text := gateway.RenderPrompt(req)
	if req.SystemRole != "" {
		text = req.SystemRole + "\n\n" + text
	}

	payload := geminiRequest{
		Contents: []geminiMessage{
			{
				Role: "user",
				Parts: []struct {
					Text string `json:"text"`
				}{
					{Text: text},
				},
			},
		},
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiAPIURL, p.config.Model, p.config.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp geminiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("Gemini API error (code %d): %s", resp.Error.Code, resp.Error.Message)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	if len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content parts in candidate")
	}

	return resp.Candidates[0].Content.Parts[0].Text, nil
}
