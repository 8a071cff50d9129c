package dispatch

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/boto/internal/handlers"
	"github.com/aretw0/boto/internal/runtime"
	"github.com/aretw0/boto/pkg/domain"
	"github.com/aretw0/boto/pkg/ports"
)

// Filter inspects an inbound message before the state handler runs and may
// redirect it by naming a trigger to fire first. Filters may annotate in.
type Filter interface {
	Name() string
	Apply(ctx context.Context, m *runtime.Machine, in *handlers.Input) (domain.Trigger, bool, error)
}

// URLFilter routes messages carrying links to URL processing, whatever the
// current state.
type URLFilter struct{}

func (URLFilter) Name() string { return "url" }

func (URLFilter) Apply(_ context.Context, _ *runtime.Machine, in *handlers.Input) (domain.Trigger, bool, error) {
	urls := ExtractURLs(in.Text)
	switch len(urls) {
	case 0:
		return "", false, nil
	case 1:
		in.URLs = urls
		return domain.TriggerProcessURL, true, nil
	default:
		in.URLs = urls
		return domain.TriggerSelectFromMultipleURLs, true, nil
	}
}

// DefaultDigestWindow is how long after delivery a bare number still
// answers a digest.
const DefaultDigestWindow = 7 * 24 * time.Hour

// DigestFilter routes a bare number sent from idle to the digest reply flow
// when a digest reached the phone within Window.
type DigestFilter struct {
	Messages ports.MessageRepository
	// Window defaults to DefaultDigestWindow.
	Window time.Duration
	Now    func() time.Time
}

func (DigestFilter) Name() string { return "digest" }

func (f DigestFilter) Apply(ctx context.Context, m *runtime.Machine, in *handlers.Input) (domain.Trigger, bool, error) {
	if !m.Is(domain.StateStart) || !isNumber(in.Text) {
		return "", false, nil
	}
	last, err := f.Messages.LastDigest(ctx, m.Phone())
	if errors.Is(err, domain.ErrMessageNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if f.now().Sub(last.StatusAt) > f.window() {
		return "", false, nil
	}
	return domain.TriggerStartMonthlyNewsResponse, true, nil
}

func (f DigestFilter) window() time.Duration {
	if f.Window <= 0 {
		return DefaultDigestWindow
	}
	return f.Window
}

func (f DigestFilter) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

func isNumber(text string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	return err == nil && n > 0
}
