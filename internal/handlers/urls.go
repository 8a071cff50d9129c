package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/boto/internal/runtime"
	"github.com/aretw0/boto/pkg/domain"
)

func (s *Set) processURL(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
	if len(in.URLs) == 0 {
		// A leftover process_url position: nothing to summarize.
		if err := m.Fire(ctx, domain.TriggerEndConversation); err != nil {
			return domain.Reply{}, err
		}
		return s.start(ctx, m, in)
	}
	url := in.URLs[0]

	summary, err := s.Classifier.SummarizeURL(ctx, url)
	if err != nil || strings.TrimSpace(summary) == "" {
		s.Logger.Warn("URL summary failed", "phone", m.Phone(), "url", url, "err", err)
		return s.end(ctx, m, s.text("url.error"))
	}

	record := domain.Interaction{
		PhoneNumber: m.Phone(),
		Category:    domain.CategoryArticle,
		Query:       url,
		Response:    summary,
	}
	if u, err := s.Repo.GetUser(ctx, m.Phone()); err == nil {
		record.UserID = &u.ID
	}
	if _, err := s.Feedback.Record(ctx, record, false); err != nil {
		s.Logger.Warn("Failed to record URL interaction", "phone", m.Phone(), "err", err)
	}

	return s.end(ctx, m, s.text("url.summary", "summary", summary))
}

func (s *Set) selectURL(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
	if len(in.URLs) > 1 {
		if err := s.URLs.SetURLs(ctx, m.Phone(), in.URLs); err != nil {
			return s.transient(m, "store urls", err)
		}
		lines := make([]string, len(in.URLs))
		for i, u := range in.URLs {
			lines[i] = fmt.Sprintf("%d. %s", i+1, u)
		}
		return s.text("url.select", "urls", strings.Join(lines, "\n")), nil
	}

	urls, err := s.URLs.URLs(ctx, m.Phone())
	if errors.Is(err, domain.ErrSessionNotFound) || (err == nil && len(urls) == 0) {
		if err := m.Fire(ctx, domain.TriggerEndConversation); err != nil {
			return domain.Reply{}, err
		}
		return s.start(ctx, m, in)
	}
	if err != nil {
		return s.transient(m, "load urls", err)
	}

	n, err := strconv.Atoi(strings.TrimSpace(in.Text))
	if err != nil || n < 1 || n > len(urls) {
		return s.text("url.invalid_option"), nil
	}

	if err := s.URLs.ClearURLs(ctx, m.Phone()); err != nil {
		s.Logger.Warn("Failed to clear urls", "phone", m.Phone(), "err", err)
	}
	if err := m.Fire(ctx, domain.TriggerURLSelected); err != nil {
		return domain.Reply{}, err
	}
	return s.lookupArticle(ctx, m, urls[n-1])
}
