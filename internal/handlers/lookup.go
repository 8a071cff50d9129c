package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/aretw0/boto/internal/runtime"
	"github.com/aretw0/boto/pkg/domain"
)

// maxArticles caps how many hits go into one article reply.
const maxArticles = 3

func (s *Set) termInfo(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
	query := strings.TrimSpace(in.Text)
	if query == "" {
		return s.text("menu.term_info"), nil
	}

	res, err := s.Searcher.SearchTerm(ctx, query)
	if err != nil {
		s.Logger.Warn("Term search failed", "phone", m.Phone(), "err", err)
	}
	if err != nil || !res.Success || res.Count == 0 || strings.TrimSpace(res.Summary) == "" {
		return s.end(ctx, m, s.text("term_info.not_found", "query", query))
	}

	return s.respondForFeedback(ctx, m, domain.CategoryTerm, query, res.Summary, "term_info.feedback")
}

func (s *Set) articleSummary(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
	query := strings.TrimSpace(in.Text)
	if query == "" {
		return s.text("menu.article_summary"), nil
	}
	return s.lookupArticle(ctx, m, query)
}

// lookupArticle is shared by the article, digest and URL-selection paths.
// The machine must already be in get_article_summary.
func (s *Set) lookupArticle(ctx context.Context, m *runtime.Machine, query string) (domain.Reply, error) {
	res, err := s.Searcher.SearchArticles(ctx, query)
	if err != nil {
		s.Logger.Warn("Article search failed", "phone", m.Phone(), "err", err)
	}
	if err != nil || !res.Success || res.Count == 0 || len(res.Results) == 0 {
		return s.end(ctx, m, s.text("article.not_found", "query", query))
	}

	var items []string
	for i, a := range res.Results {
		if i == maxArticles {
			break
		}
		items = append(items, s.msg("article.item", "title", a.Title, "summary", a.SummaryContent, "url", a.URL))
	}
	return s.respondForFeedback(ctx, m, domain.CategoryArticle, query, join(items...), "article.feedback")
}

// respondForFeedback logs the exchange, remembers it for the feedback step
// and asks the user to rate it.
func (s *Set) respondForFeedback(ctx context.Context, m *runtime.Machine, cat domain.Category, query, response, key string) (domain.Reply, error) {
	in := domain.Interaction{
		PhoneNumber: m.Phone(),
		Category:    cat,
		Query:       query,
		Response:    response,
	}
	if u, err := s.Repo.GetUser(ctx, m.Phone()); err == nil {
		in.UserID = &u.ID
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return s.transient(m, "get user", err)
	}

	if _, err := s.Feedback.Record(ctx, in, true); err != nil {
		return s.transient(m, "record interaction", err)
	}
	if err := m.Fire(ctx, domain.TriggerGetFeedback); err != nil {
		return domain.Reply{}, err
	}
	return s.yesNo(s.msg(key, "response", response)), nil
}

func (s *Set) feedback(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
	positive, ok := parseChoice(in.Text)
	if !ok {
		return s.yesNo(s.msg("feedback.invalid_option")), nil
	}

	if _, err := s.Feedback.Attach(ctx, m.Phone(), positive); err != nil {
		return s.transient(m, "attach feedback", err)
	}

	key := "feedback.negative"
	if positive {
		key = "feedback.positive"
	}
	return s.end(ctx, m, s.text(key))
}

func (s *Set) newsSuggestion(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return s.text("menu.news_suggestion"), nil
	}

	reply := s.text("news_suggestion.thanks")
	suggestion := domain.Interaction{
		PhoneNumber: m.Phone(),
		Category:    domain.CategoryNewsSuggestion,
		Query:       text,
		Response:    reply.Body,
	}
	if u, err := s.Repo.GetUser(ctx, m.Phone()); err == nil {
		suggestion.UserID = &u.ID
	}
	if _, err := s.Feedback.Record(ctx, suggestion, false); err != nil {
		return s.transient(m, "record suggestion", err)
	}
	return s.end(ctx, m, reply)
}

func (s *Set) monthlyNewsResponse(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
	digest, err := s.Repo.LastDigest(ctx, m.Phone())
	if errors.Is(err, domain.ErrMessageNotFound) {
		return s.end(ctx, m, s.text("digest.no_digest"))
	}
	if err != nil {
		return s.transient(m, "last digest", err)
	}

	title, ok, err := s.Classifier.ResolveDigestReply(ctx, digest.Content, strings.TrimSpace(in.Text))
	if err != nil {
		return s.transient(m, "resolve digest reply", err)
	}
	if !ok || strings.TrimSpace(title) == "" {
		return s.end(ctx, m, s.text("digest.not_found"))
	}

	if err := m.Fire(ctx, domain.TriggerSelectArticleSummary); err != nil {
		return domain.Reply{}, err
	}
	return s.lookupArticle(ctx, m, title)
}
