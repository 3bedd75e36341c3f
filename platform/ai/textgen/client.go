// Package textgen provides a thin client for single request/response text
// generation. All model access in the application goes through this package
// so prompts, timeouts, and response handling stay in one place.
package textgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Config for the text-generation client.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Generator is the interface consumed by domain services. It is satisfied by
// *Client and by test fakes.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Client wraps the genai SDK for synchronous one-shot generation.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewClient creates a text-generation client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("textgen: api key not configured")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("textgen: create client: %w", err)
	}

	return &Client{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// Generate sends a single prompt and returns the model's text response.
// The call is bounded by the configured timeout regardless of the caller's
// context.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var config *genai.GenerateContentConfig
	if system != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: system}},
			},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("textgen: generate: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("textgen: empty response")
	}

	return text, nil
}
