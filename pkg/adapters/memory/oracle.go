package memory

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/aretw0/boto/pkg/domain"
	"github.com/aretw0/boto/pkg/ports"
)

// Classifier implements ports.Classifier from scripted answers, falling back
// to permissive heuristics for inputs that were not scripted.
// Keys are matched on the lowercased, trimmed input.
type Classifier struct {
	mu sync.Mutex

	Locations map[string][]ports.LocationVerdict
	Subjects  map[string]ports.SubjectVerdict
	Schedules map[string]ports.ScheduleVerdict
	Summaries map[string]string
	// Err, when set, is returned by every call.
	Err error

	calls int
}

// NewClassifier returns a classifier with empty scripts.
func NewClassifier() *Classifier {
	return &Classifier{
		Locations: make(map[string][]ports.LocationVerdict),
		Subjects:  make(map[string]ports.SubjectVerdict),
		Schedules: make(map[string]ports.ScheduleVerdict),
		Summaries: make(map[string]string),
	}
}

func key(text string) string { return strings.ToLower(strings.TrimSpace(text)) }

// Calls returns how many oracle calls were made.
func (c *Classifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *Classifier) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.Err
}

func (c *Classifier) ValidateLocations(ctx context.Context, text string) ([]ports.LocationVerdict, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	if v, ok := c.Locations[key(text)]; ok {
		return v, nil
	}

	var out []ports.LocationVerdict
	for _, part := range strings.Split(text, ",") {
		name := strings.TrimSpace(part)
		switch key(name) {
		case "":
			continue
		case "todas", "todos", "todas as localidades", "brasil":
			return []ports.LocationVerdict{{Valid: true, All: true, Name: domain.AllLocationsMarker}}, nil
		}
		out = append(out, ports.LocationVerdict{Valid: true, Name: name, Region: "municipality"})
	}
	return out, nil
}

func (c *Classifier) ValidateSubject(ctx context.Context, text string) (ports.SubjectVerdict, error) {
	if err := c.begin(); err != nil {
		return ports.SubjectVerdict{}, err
	}
	if v, ok := c.Subjects[key(text)]; ok {
		return v, nil
	}
	switch key(text) {
	case "":
		return ports.SubjectVerdict{Valid: false}, nil
	case "todos", "todos os temas", "tudo":
		return ports.SubjectVerdict{Valid: true, Subject: domain.AllSubjectsName}, nil
	}
	return ports.SubjectVerdict{Valid: true, Subject: strings.TrimSpace(text)}, nil
}

var scheduleWords = map[string]string{
	"1": "daily", "diariamente": "daily", "diário": "daily", "diario": "daily", "daily": "daily",
	"2": "weekly", "semanalmente": "weekly", "semanal": "weekly", "weekly": "weekly",
	"3": "monthly", "mensalmente": "monthly", "mensal": "monthly", "monthly": "monthly",
	"4": "immediately", "imediatamente": "immediately", "assim que publicadas": "immediately", "immediately": "immediately",
}

func (c *Classifier) NormalizeSchedule(ctx context.Context, text string) (ports.ScheduleVerdict, error) {
	if err := c.begin(); err != nil {
		return ports.ScheduleVerdict{}, err
	}
	if v, ok := c.Schedules[key(text)]; ok {
		return v, nil
	}
	if v, ok := scheduleWords[key(text)]; ok {
		return ports.ScheduleVerdict{Valid: true, Value: v}, nil
	}
	return ports.ScheduleVerdict{}, nil
}

var digestLine = regexp.MustCompile(`(?m)^\s*(\d+)[.)-]\s*(.+?)\s*$`)

// ResolveDigestReply picks the numbered line of digest matching reply.
func (c *Classifier) ResolveDigestReply(ctx context.Context, digest, reply string) (string, bool, error) {
	if err := c.begin(); err != nil {
		return "", false, err
	}
	want := key(reply)
	for _, m := range digestLine.FindAllStringSubmatch(digest, -1) {
		if m[1] == want {
			return strings.Trim(m[2], "* "), true, nil
		}
	}
	return "", false, nil
}

func (c *Classifier) SummarizeURL(ctx context.Context, url string) (string, error) {
	if err := c.begin(); err != nil {
		return "", err
	}
	if s, ok := c.Summaries[key(url)]; ok {
		return s, nil
	}
	return "Resumo de " + url, nil
}

// Searcher implements ports.Searcher from scripted results.
// Unscripted queries find nothing.
type Searcher struct {
	Terms    map[string]ports.TermResult
	Articles map[string]ports.ArticleResult
	Err      error
}

// NewSearcher returns a searcher with empty scripts.
func NewSearcher() *Searcher {
	return &Searcher{
		Terms:    make(map[string]ports.TermResult),
		Articles: make(map[string]ports.ArticleResult),
	}
}

func (s *Searcher) SearchTerm(ctx context.Context, query string) (ports.TermResult, error) {
	if s.Err != nil {
		return ports.TermResult{}, s.Err
	}
	if r, ok := s.Terms[key(query)]; ok {
		return r, nil
	}
	return ports.TermResult{Success: true}, nil
}

func (s *Searcher) SearchArticles(ctx context.Context, query string) (ports.ArticleResult, error) {
	if s.Err != nil {
		return ports.ArticleResult{}, s.Err
	}
	if r, ok := s.Articles[key(query)]; ok {
		return r, nil
	}
	return ports.ArticleResult{Success: true}, nil
}
