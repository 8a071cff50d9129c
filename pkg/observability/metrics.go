package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/boto/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "boto"

// Metrics holds the collectors updated by the dispatcher and the webhook.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Dispatches  *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	Webhook     *prometheus.CounterVec
	Outbound    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Dialogue transitions by source state, destination state and trigger.",
		}, []string{"from", "to", "trigger"}),
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Inbound messages handled, by resulting state and outcome.",
		}, []string{"state", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent handling one inbound message.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"state"}),
		Webhook: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Webhook entries by kind (message, duplicate, status, ignored, throttled).",
		}, []string{"kind"}),
		Outbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_messages_total",
			Help:      "Replies sent to the messaging provider, by status.",
		}, []string{"status"}),
	}

	for _, c := range []prometheus.Collector{m.Transitions, m.Dispatches, m.Duration, m.Webhook, m.Outbound} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that feed the dialogue collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(string(e.From), string(e.To), string(e.Trigger)).Inc()
		},
		OnDispatch: func(_ context.Context, e *domain.DispatchEvent) {
			outcome := "ok"
			if e.Failed {
				outcome = "failed"
			}
			m.Dispatches.WithLabelValues(string(e.To), outcome).Inc()
			m.Duration.WithLabelValues(string(e.To)).Observe(e.Duration.Seconds())
		},
	}
}

// LogHooks returns lifecycle hooks that log every event at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.DebugContext(ctx, "transition",
				"phone", e.Phone,
				"from", e.From,
				"to", e.To,
				"trigger", e.Trigger,
			)
		},
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			logger.DebugContext(ctx, "dispatch",
				"phone", e.Phone,
				"from", e.From,
				"to", e.To,
				"duration", e.Duration,
				"failed", e.Failed,
			)
		},
	}
}

// Chain fans every event out to each hook set in order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			for _, s := range sets {
				if s.OnTransition != nil {
					s.OnTransition(ctx, e)
				}
			}
		},
		OnDispatch: func(ctx context.Context, e *domain.DispatchEvent) {
			for _, s := range sets {
				if s.OnDispatch != nil {
					s.OnDispatch(ctx, e)
				}
			}
		},
	}
}
