// Package claude implements the gateway.Gateway interface using the
// official Anthropic SDK.
package claude

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/sweetpotato0/deepresearch/gateway"
)

// Config holds Claude provider configuration
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default Claude configuration
func DefaultConfig(apiKey, baseURL string) *Config {
	return &Config{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       "claude-3-5-sonnet-20241022",
		MaxTokens:   4096,
		Temperature: 0.1,
	}
}

// Provider implements the gateway.Gateway interface for Claude
type Provider struct {
	config *Config
	client anthropic.Client
}

// New creates a new Claude provider using official SDK
func New(config *Config) *Provider {
	if config.Model == "" {
		config.Model = "claude-3-5-sonnet-20241022"
	}

	options := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}

	client := anthropic.NewClient(options...)

	return &Provider{
		config: config,
		client: client,
	}
}

// Complete implements gateway.Gateway
func (p *Provider) Complete(ctx context.Context, req *gateway.Request) (string, error) {
	if req == nil {
		return "", fmt.Errorf("completion request cannot be nil")
	}

	params := anthropic.MessageNewParams{
		Model: anthropic.Model(p.config.Model),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(gateway.RenderPrompt(req))),
		},
		MaxTokens: p.config.MaxTokens,
	}

	if req.SystemRole != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.SystemRole},
		}
	}
	if p.config.Temperature > 0 {
		params.Temperature = param.NewOpt(p.config.Temperature)
	}

	apiMessage, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API error: %w", err)
	}

	// Concatenate text content blocks
	var responseText string
	for _, content := range apiMessage.Content {
		if content.Type == "text" {
			responseText += content.Text
		}
	}

	return responseText, nil
}
