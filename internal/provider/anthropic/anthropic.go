// Package anthropic implements provider.Provider on top of the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"log/slog"
	"os"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/SamuelSchlesinger/generalist/internal/provider"
)

// Interface guards.
var (
	_ provider.Provider      = (*Client)(nil)
	_ provider.HealthChecker = (*Client)(nil)
)

// Client is the Anthropic-backed provider.
type Client struct {
	config Config
	client *sdkanthropic.Client
	logger *slog.Logger
}

// New builds a Client from cfg. The API key resolves config first, then the
// ANTHROPIC_API_KEY environment variable.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	cfg.defaults()

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("anthropic: no API key in config or ANTHROPIC_API_KEY")
	}

	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))

	client := sdkanthropic.NewClient(opts...)
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{config: cfg, client: &client, logger: logger}, nil
}

// Send submits a conversation to the Messages API and returns the
// assistant's next message with tool_use blocks preserved in model order.
func (c *Client) Send(ctx context.Context, req provider.Request) (provider.Response, error) {
	params := convertRequest(req, &c.config)

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return provider.Response{}, mapError(err)
	}

	resp := convertResponse(msg)

	c.logger.Debug("model response",
		"model", c.config.Model,
		"stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return resp, nil
}

// ModelName implements provider.Provider.
func (c *Client) ModelName() string {
	return c.config.Model
}

// ContextWindowSize implements provider.Provider.
func (c *Client) ContextWindowSize() int {
	return c.config.contextWindow()
}

// HealthCheck validates connectivity and authentication with a 1-token
// completion, the cheapest probe the API offers.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.client.Messages.New(ctx, sdkanthropic.MessageNewParams{
		Model:     sdkanthropic.Model(c.config.Model),
		MaxTokens: 1,
		Messages: []sdkanthropic.MessageParam{
			sdkanthropic.NewUserMessage(sdkanthropic.NewTextBlock("hi")),
		},
	})
	return mapError(err)
}
