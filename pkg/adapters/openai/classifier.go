package openai

import (
	"context"
	"fmt"

	"github.com/aretw0/boto/pkg/ports"
)

var _ ports.Classifier = (*Client)(nil)

func (c *Client) ValidateLocations(ctx context.Context, text string) ([]ports.LocationVerdict, error) {
	answer, err := c.complete(ctx, locationPrompt, text)
	if err != nil {
		return nil, err
	}
	return parseLocations(answer)
}

func (c *Client) ValidateSubject(ctx context.Context, text string) (ports.SubjectVerdict, error) {
	answer, err := c.complete(ctx, subjectPrompt, text)
	if err != nil {
		return ports.SubjectVerdict{}, err
	}
	return parseSubject(answer)
}

func (c *Client) NormalizeSchedule(ctx context.Context, text string) (ports.ScheduleVerdict, error) {
	answer, err := c.complete(ctx, schedulePrompt, text)
	if err != nil {
		return ports.ScheduleVerdict{}, err
	}
	return parseSchedule(answer), nil
}

func (c *Client) ResolveDigestReply(ctx context.Context, digest, reply string) (string, bool, error) {
	answer, err := c.complete(ctx, digestPrompt, fmt.Sprintf("Resumo:\n%s\n\nResposta do usuário: %s", digest, reply))
	if err != nil {
		return "", false, err
	}
	title, ok := parseDigestChoice(answer)
	return title, ok, nil
}

// SummarizeURL downloads the page, extracts its readable text and asks
// for a short summary of that text.
func (c *Client) SummarizeURL(ctx context.Context, url string) (string, error) {
	page, err := c.fetchPage(ctx, url)
	if err != nil {
		return "", err
	}
	return c.complete(ctx, summaryPrompt, page.prompt())
}
