// Package openai implements ports.Classifier on an OpenAI-compatible
// chat completions endpoint. Each oracle call is a single completion whose
// plain-text answer follows a small line format parsed in parse.go.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/aretw0/boto/internal/logging"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

// Client talks to the chat completions API.
type Client struct {
	api        sdk.Client
	baseURL    string
	model      string
	httpClient *http.Client
	pages      *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient sets the client used for both completions and page fetches.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
		c.pages = httpClient
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: api key must not be empty")
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     logging.NewNop(),
	}
	c.pages = c.httpClient
	for _, opt := range opts {
		opt(c)
	}

	// The SDK resolves "chat/completions" relative to the base URL.
	base := strings.TrimRight(c.baseURL, "/") + "/"
	c.api = sdk.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(base),
		option.WithHTTPClient(c.httpClient),
		option.WithMaxRetries(0),
	)
	return c, nil
}

// complete sends one system + user exchange and returns the trimmed answer.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(system),
			sdk.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}

	c.logger.DebugContext(ctx, "completion", "model", c.model, "duration", time.Since(start))
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
