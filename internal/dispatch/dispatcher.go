// Package dispatch turns one inbound message into one reply.
//
// The Dispatcher serializes work per phone, loads the conversation position,
// runs the pre-dispatch filters and the state handler, and writes the new
// position back with a fresh TTL. Handler errors and panics never leak: the
// user gets an apology and the conversation restarts.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/boto/internal/handlers"
	"github.com/aretw0/boto/internal/logging"
	"github.com/aretw0/boto/internal/runtime"
	"github.com/aretw0/boto/pkg/domain"
	"github.com/aretw0/boto/pkg/ports"
	"github.com/aretw0/boto/pkg/session"
)

// Result is the outcome of one dispatch.
type Result struct {
	Reply domain.Reply
	// State is the persisted position after the message. Empty when the
	// session store could not be read.
	State domain.State
}

// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	sessions *session.Manager
	conds    runtime.Conditions
	handlers *handlers.Set
	catalog  ports.MessageCatalog
	filters  []Filter
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	maxInput int
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithFilters replaces the pre-dispatch filter chain. The first filter that
// applies wins.
func WithFilters(filters ...Filter) Option {
	return func(d *Dispatcher) { d.filters = filters }
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(d *Dispatcher) { d.hooks = hooks }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithMaxInputSize overrides the inbound text size limit.
func WithMaxInputSize(n int) Option {
	return func(d *Dispatcher) { d.maxInput = n }
}

// New creates a Dispatcher.
func New(sessions *session.Manager, conds runtime.Conditions, set *handlers.Set, catalog ports.MessageCatalog, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sessions: sessions,
		conds:    conds,
		handlers: set,
		catalog:  catalog,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle processes text from phone. The returned Result always carries a
// reply to send; err reports store failures worth alerting on.
func (d *Dispatcher) Handle(ctx context.Context, phone, text string) (Result, error) {
	started := time.Now()
	var (
		res    Result
		from   domain.State
		failed bool
	)

	err := d.sessions.WithLock(ctx, phone, func(ctx context.Context) error {
		var err error
		from, err = d.sessions.LoadState(ctx, phone)
		if err != nil {
			d.logger.Error("Session store unavailable", "phone", phone, "err", err)
			res = Result{Reply: d.reply("error.store_unavailable")}
			failed = true
			return err
		}

		m := runtime.NewMachine(phone, from, d.conds,
			runtime.WithLifecycleHooks(d.hooks),
			runtime.WithLogger(d.logger),
		)

		reply, err := d.run(ctx, m, phone, text)
		if err != nil {
			d.logger.Error("Dispatch failed, restarting conversation",
				"phone", phone, "state", m.State(), "from", from, "err", err)
			m.Reset()
			reply = d.reply("error.generic")
			failed = true
		}
		res = Result{Reply: reply, State: m.State()}

		if m.Forgotten() {
			if err := d.sessions.Forget(ctx, phone); err != nil {
				d.logger.Warn("Failed to clear session", "phone", phone, "err", err)
			}
			return nil
		}
		if err := d.sessions.SaveState(ctx, phone, m.State()); err != nil {
			d.logger.Error("Failed to persist state", "phone", phone, "state", m.State(), "err", err)
			failed = true
			return err
		}
		return nil
	})
	if err != nil && res.Reply.Body == "" {
		// The lock itself could not be taken.
		res = Result{Reply: d.reply("error.store_unavailable")}
		failed = true
	}

	if d.hooks.OnDispatch != nil {
		d.hooks.OnDispatch(ctx, &domain.DispatchEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventDispatch, Phone: phone},
			From:      from,
			To:        res.State,
			Duration:  time.Since(started),
			Failed:    failed,
		})
	}
	return res, err
}

// run applies the filters and the state handler, converting panics to errors.
func (d *Dispatcher) run(ctx context.Context, m *runtime.Machine, phone, text string) (reply domain.Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s handler: %v", m.State(), r)
		}
	}()

	clean, err := SanitizeInput(text, d.maxInput)
	if err != nil {
		d.logger.Warn("Rejected inbound message", "phone", phone, "err", err)
		return d.reply("error.invalid_input"), nil
	}
	in := handlers.Input{Phone: phone, Text: clean}

	for _, f := range d.filters {
		trigger, ok, err := f.Apply(ctx, m, &in)
		if err != nil {
			d.logger.Warn("Filter failed, continuing with state handler", "filter", f.Name(), "phone", phone, "err", err)
			continue
		}
		if !ok {
			continue
		}
		if err := m.Fire(ctx, trigger); err != nil {
			if errors.Is(err, domain.ErrTransitionRejected) {
				d.logger.Debug("Filter trigger rejected", "filter", f.Name(), "trigger", trigger, "state", m.State())
				continue
			}
			return domain.Reply{}, err
		}
		break
	}

	return d.handlers.Handle(ctx, m, in)
}

func (d *Dispatcher) reply(key string) domain.Reply {
	return domain.Reply{Body: d.catalog.Get(key, nil)}
}
