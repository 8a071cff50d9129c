// Package search implements ports.Searcher against the news search service.
package search

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

	"github.com/aretw0/boto/pkg/ports"
)

const (
	termPath     = "/api/v1/search/term"
	articlesPath = "/api/v1/search/articles"
)

type searchRequest struct {
	Query           string `json:"query"`
	GenerateSummary bool   `json:"generate_summary,omitempty"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("search: base url must not be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ ports.Searcher = (*Client)(nil)

// SearchTerm asks the service for a generated explanation of query.
func (c *Client) SearchTerm(ctx context.Context, query string) (ports.TermResult, error) {
	var out ports.TermResult
	err := c.post(ctx, termPath, searchRequest{Query: query, GenerateSummary: true}, &out)
	return out, err
}

// SearchArticles returns the ranked articles matching query.
func (c *Client) SearchArticles(ctx context.Context, query string) (ports.ArticleResult, error) {
	var out ports.ArticleResult
	err := c.post(ctx, articlesPath, searchRequest{Query: query}, &out)
	return out, err
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("search: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("search: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("search: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("search: unexpected status %d from %s: %s", res.StatusCode, path, strings.TrimSpace(string(buf)))
	}
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("search: decode response: %w", err)
	}
	return nil
}
