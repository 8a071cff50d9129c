package boto

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/boto/internal/dispatch"
	"github.com/aretw0/boto/internal/feedback"
	"github.com/aretw0/boto/internal/handlers"
	"github.com/aretw0/boto/internal/logging"
	"github.com/aretw0/boto/internal/messages"
	"github.com/aretw0/boto/internal/runtime"
	"github.com/aretw0/boto/pkg/adapters/memory"
	"github.com/aretw0/boto/pkg/domain"
	"github.com/aretw0/boto/pkg/ports"
	"github.com/aretw0/boto/pkg/session"
)

// App is the assembled dialogue.
type App struct {
	dispatcher *dispatch.Dispatcher
	sessions   *session.Manager
	repo       ports.Repository
	catalog    ports.MessageCatalog
}

type options struct {
	store      ports.SessionStore
	locker     ports.DistributedLocker
	repo       ports.Repository
	classifier ports.Classifier
	searcher   ports.Searcher
	catalog    ports.MessageCatalog
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	now        func() time.Time
	ttl        time.Duration
	lockTTL    time.Duration
	maxInput   int
}

// Option configures New.
type Option func(*options)

// WithSessionStore sets where conversation positions live (default: in memory).
func WithSessionStore(store ports.SessionStore) Option {
	return func(o *options) { o.store = store }
}

// WithLocker serializes each phone across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(o *options) { o.locker = locker }
}

// WithRepository sets the persistent store (default: in memory).
func WithRepository(repo ports.Repository) Option {
	return func(o *options) { o.repo = repo }
}

// WithClassifier sets the free-text oracle (default: memory heuristics).
func WithClassifier(c ports.Classifier) Option {
	return func(o *options) { o.classifier = c }
}

// WithSearcher sets the search service (default: empty results).
func WithSearcher(s ports.Searcher) Option {
	return func(o *options) { o.searcher = s }
}

// WithCatalog replaces the embedded message templates.
func WithCatalog(c ports.MessageCatalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *options) { o.hooks = hooks }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock replaces the time source used for stored timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithSessionTTL sets how long an idle conversation is remembered.
func WithSessionTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithLockTTL bounds how long a distributed phone lock may be held.
func WithLockTTL(ttl time.Duration) Option {
	return func(o *options) { o.lockTTL = ttl }
}

// WithMaxInputSize caps inbound message size in bytes.
func WithMaxInputSize(n int) Option {
	return func(o *options) { o.maxInput = n }
}

// New assembles the dialogue. Missing collaborators fall back to the
// in-memory adapters.
func New(opts ...Option) (*App, error) {
	o := &options{
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.ttl < 0 || o.lockTTL < 0 {
		return nil, errors.New("boto: ttl must not be negative")
	}
	if err := runtime.Validate(runtime.Table); err != nil {
		return nil, fmt.Errorf("boto: invalid transition table: %w", err)
	}
	if o.store == nil {
		o.store = memory.NewStore()
	}
	if o.repo == nil {
		o.repo = memory.NewRepository(memory.WithRepositoryClock(o.now))
	}
	if o.classifier == nil {
		o.classifier = memory.NewClassifier()
	}
	if o.searcher == nil {
		o.searcher = memory.NewSearcher()
	}
	if o.catalog == nil {
		o.catalog = messages.Default()
	}

	sessOpts := []session.Option{session.WithLogger(o.logger)}
	if o.ttl > 0 {
		sessOpts = append(sessOpts, session.WithTTL(o.ttl))
	}
	if o.lockTTL > 0 {
		sessOpts = append(sessOpts, session.WithLockTTL(o.lockTTL))
	}
	if o.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(o.locker))
	}
	sessions := session.NewManager(o.store, sessOpts...)

	set := handlers.New(handlers.Deps{
		Repo:       o.repo,
		Classifier: o.classifier,
		Searcher:   o.searcher,
		Messages:   o.catalog,
		URLs:       sessions,
		Marks:      sessions,
		Feedback:   feedback.New(o.repo, sessions, feedback.WithLogger(o.logger), feedback.WithClock(o.now)),
		Logger:     o.logger,
		Now:        o.now,
	})

	dispOpts := []dispatch.Option{
		dispatch.WithFilters(dispatch.URLFilter{}, dispatch.DigestFilter{Messages: o.repo}),
		dispatch.WithLifecycleHooks(o.hooks),
		dispatch.WithLogger(o.logger),
	}
	if o.maxInput > 0 {
		dispOpts = append(dispOpts, dispatch.WithMaxInputSize(o.maxInput))
	}

	return &App{
		dispatcher: dispatch.New(sessions, runtime.NewConditions(o.repo, o.repo), set, o.catalog, dispOpts...),
		sessions:   sessions,
		repo:       o.repo,
		catalog:    o.catalog,
	}, nil
}

// Handle processes one inbound text from phone.
func (a *App) Handle(ctx context.Context, phone, text string) (dispatch.Result, error) {
	return a.dispatcher.Handle(ctx, phone, text)
}

// Sessions exposes the session manager.
func (a *App) Sessions() *session.Manager { return a.sessions }

// Repository exposes the persistent store.
func (a *App) Repository() ports.Repository { return a.repo }

// Catalog exposes the message templates.
func (a *App) Catalog() ports.MessageCatalog { return a.catalog }
