package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

const (
	maxPageBytes = 2 << 20
	maxPageRunes = 12000
)

// ErrEmptyPage is returned when a page has no extractable text.
var ErrEmptyPage = errors.New("openai: page has no readable text")

type page struct {
	url   string
	title string
	text  string
}

func (p page) prompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Endereço: %s\n", p.url)
	if p.title != "" {
		fmt.Fprintf(&b, "Título: %s\n", p.title)
	}
	b.WriteString("\n")
	b.WriteString(p.text)
	return b.String()
}

func (c *Client) fetchPage(ctx context.Context, raw string) (page, error) {
	target := raw
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}
	parsed, err := nurl.Parse(target)
	if err != nil {
		return page{}, fmt.Errorf("openai: parse page url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return page{}, fmt.Errorf("openai: create page request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	res, err := c.pages.Do(req)
	if err != nil {
		return page{}, fmt.Errorf("openai: fetch page: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return page{}, fmt.Errorf("openai: fetch page: unexpected status %d", res.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(res.Body, maxPageBytes), parsed)
	if err != nil {
		return page{}, fmt.Errorf("openai: extract page: %w", err)
	}
	text := strings.Join(strings.Fields(article.TextContent), " ")
	if text == "" {
		return page{}, ErrEmptyPage
	}
	if r := []rune(text); len(r) > maxPageRunes {
		text = string(r[:maxPageRunes])
	}
	return page{url: raw, title: strings.TrimSpace(article.Title), text: text}, nil
}
