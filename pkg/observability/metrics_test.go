package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/boto/pkg/domain"
	"github.com/aretw0/boto/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnTransition(ctx, &domain.TransitionEvent{From: domain.StateStart, To: domain.StateMenu, Trigger: domain.TriggerShowMenu})
	hooks.OnTransition(ctx, &domain.TransitionEvent{From: domain.StateStart, To: domain.StateMenu, Trigger: domain.TriggerShowMenu})
	hooks.OnDispatch(ctx, &domain.DispatchEvent{To: domain.StateMenu, Duration: 20 * time.Millisecond})
	hooks.OnDispatch(ctx, &domain.DispatchEvent{To: domain.StateStart, Failed: true})

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Transitions.WithLabelValues("start", "menu", "show_menu")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Dispatches.WithLabelValues("menu", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Dispatches.WithLabelValues("start", "failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Duration))
}

func TestMetrics_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var seen int
	counting := domain.LifecycleHooks{
		OnDispatch: func(context.Context, *domain.DispatchEvent) { seen++ },
	}

	hooks := observability.Chain(observability.LogHooks(logger), counting)
	hooks.OnTransition(context.Background(), &domain.TransitionEvent{From: domain.StateMenu, To: domain.StateAbout, Trigger: domain.TriggerSelectAbout})
	hooks.OnDispatch(context.Background(), &domain.DispatchEvent{To: domain.StateAbout})

	assert.Equal(t, 1, seen)
	assert.Contains(t, buf.String(), "msg=transition")
	assert.Contains(t, buf.String(), "trigger=select_about")
	assert.Contains(t, buf.String(), "msg=dispatch")
}
