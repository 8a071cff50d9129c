package ports

import "context"

// TermResult is the search service answer for a term lookup.
type TermResult struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Summary string `json:"summary,omitempty"`
}

// Article is one ranked article hit.
type Article struct {
	Title          string `json:"title"`
	URL            string `json:"url"`
	SummaryContent string `json:"summary_content"`
}

// ArticleResult is the search service answer for an article lookup.
type ArticleResult struct {
	Success bool      `json:"success"`
	Count   int       `json:"count"`
	Results []Article `json:"results"`
}

// Searcher is the search/lookup service.
type Searcher interface {
	SearchTerm(ctx context.Context, query string) (TermResult, error)
	SearchArticles(ctx context.Context, query string) (ArticleResult, error)
}
