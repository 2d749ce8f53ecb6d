// Package genai wraps the external text-generation service behind a small
// interface: prompt in, text out, fallible. The pipeline and the persona
// learner only ever see the Generator interface, so the Anthropic client
// can be swapped for a fake in tests or another provider in production.
package genai

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrNotConfigured means no API credentials were supplied. Callers treat
// this as a configuration error: they degrade to a sentinel reply instead
// of failing the pipeline.
var ErrNotConfigured = errors.New("generation service not configured")

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-20250514"

// Client is the Anthropic Messages API implementation of Generator.
type Client struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// NewClient creates an Anthropic-backed generator. Returns
// ErrNotConfigured when the API key is empty.
func NewClient(apiKey, model string, maxTokens int64) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Client{client: &c, model: model, maxTokens: maxTokens}, nil
}

// Generate sends the prompt as a single user message and concatenates the
// text blocks of the response.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}
