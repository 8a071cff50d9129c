package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/boto"
	"github.com/aretw0/boto/internal/config"
	"github.com/aretw0/boto/internal/messages"
	"github.com/aretw0/boto/pkg/adapters/memory"
	"github.com/aretw0/boto/pkg/adapters/openai"
	"github.com/aretw0/boto/pkg/adapters/postgres"
	redisstore "github.com/aretw0/boto/pkg/adapters/redis"
	"github.com/aretw0/boto/pkg/adapters/search"
	"github.com/aretw0/boto/pkg/ports"
	"github.com/redis/go-redis/v9"
)

// Runtime is an assembled App plus the resources it owns.
type Runtime struct {
	App *boto.App
	// Store is nil when sessions live in memory.
	Store *redisstore.Store
	Repo  ports.Repository

	pingers []func(context.Context) error
	closers []io.Closer
}

// Ready pings every backing service.
func (r *Runtime) Ready(ctx context.Context) error {
	var errs []error
	for _, ping := range r.pingers {
		if err := ping(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases connections in reverse order of creation.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Fallback tells Build what to do with a backing service whose address is empty.
type Fallback bool

const (
	// RequireServices makes an empty address an error.
	RequireServices Fallback = false
	// AllowMemory replaces a service with an empty address by its in-memory adapter.
	AllowMemory Fallback = true
)

// ErrMissingService is returned by Build when a backing service has no
// address and the in-memory adapters were not allowed.
var ErrMissingService = errors.New("backing service not configured")

func missingServices(cfg *config.Config) []string {
	var missing []string
	if cfg.Redis.Addr == "" {
		missing = append(missing, "redis.addr")
	}
	if cfg.Database.URL == "" {
		missing = append(missing, "database.url")
	}
	if cfg.OpenAI.APIKey == "" {
		missing = append(missing, "openai.api_key")
	}
	if cfg.Search.BaseURL == "" {
		missing = append(missing, "search.base_url")
	}
	return missing
}

// Build wires the App from cfg: redis.addr for sessions, database.url for
// persistence, openai.api_key for classification and search.base_url for
// search. With AllowMemory an empty address selects the in-memory adapter.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, fallback Fallback, extra ...boto.Option) (_ *Runtime, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if missing := missingServices(cfg); len(missing) > 0 && fallback == RequireServices {
		return nil, fmt.Errorf("%w: %s (use --memory for in-memory adapters)", ErrMissingService, strings.Join(missing, ", "))
	}

	rt := &Runtime{}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	opts := []boto.Option{
		boto.WithLogger(logger),
		boto.WithSessionTTL(cfg.Session.TTL),
		boto.WithLockTTL(cfg.Session.LockTTL),
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, client)
		rt.Store = redisstore.NewFromClient(client, redisstore.WithPrefix(cfg.Redis.Prefix))
		rt.pingers = append(rt.pingers, rt.Store.Ping)
		opts = append(opts,
			boto.WithSessionStore(rt.Store),
			boto.WithLocker(redisstore.NewLocker(client, cfg.Redis.Prefix)),
		)
	} else {
		logger.Warn("redis.addr is empty, sessions are kept in memory")
	}

	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, db)
		repo := postgres.New(db)
		if err := repo.Migrate(ctx); err != nil {
			return nil, err
		}
		rt.Repo = repo
		rt.pingers = append(rt.pingers, repo.Ping)
	} else {
		logger.Warn("database.url is empty, using the in-memory repository")
		rt.Repo = memory.NewRepository()
	}
	opts = append(opts, boto.WithRepository(rt.Repo))

	if cfg.OpenAI.APIKey != "" {
		client, err := openai.NewClient(cfg.OpenAI.APIKey,
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithModel(cfg.OpenAI.Model),
			openai.WithHTTPClient(&http.Client{Timeout: cfg.OpenAI.Timeout}),
			openai.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, boto.WithClassifier(client))
	} else {
		logger.Warn("openai.api_key is empty, using the in-memory classifier")
	}

	if cfg.Search.BaseURL != "" {
		client, err := search.NewClient(cfg.Search.BaseURL, search.WithTimeout(cfg.Search.Timeout))
		if err != nil {
			return nil, err
		}
		opts = append(opts, boto.WithSearcher(client))
	} else {
		logger.Warn("search.base_url is empty, using the in-memory searcher")
	}

	if cfg.Messages.Path != "" {
		catalog, err := messages.Load(cfg.Messages.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load messages: %w", err)
		}
		opts = append(opts, boto.WithCatalog(catalog))
	}

	app, err := boto.New(append(opts, extra...)...)
	if err != nil {
		return nil, err
	}
	rt.App = app
	return rt, nil
}
