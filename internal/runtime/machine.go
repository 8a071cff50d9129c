package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/boto/internal/logging"
	"github.com/aretw0/boto/pkg/domain"
)

// Machine is the dialogue position of one phone number during one dispatch.
// It is not safe for concurrent use; the dispatcher owns it for the
// duration of a single message.
type Machine struct {
	phone  string
	state  domain.State
	conds  Conditions
	hooks  domain.LifecycleHooks
	logger *slog.Logger

	forget bool
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) MachineOption {
	return func(m *Machine) {
		m.hooks = hooks
	}
}

// WithLogger sets the machine logger.
func WithLogger(logger *slog.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = logger
	}
}

// NewMachine pins a machine to state for phone.
func NewMachine(phone string, state domain.State, conds Conditions, opts ...MachineOption) *Machine {
	if !state.Valid() {
		state = domain.StateStart
	}
	m := &Machine{
		phone:  phone,
		state:  state,
		conds:  conds,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) Phone() string       { return m.phone }
func (m *Machine) State() domain.State { return m.state }

// Is reports whether the machine is in state s.
func (m *Machine) Is(s domain.State) bool { return m.state == s }

// Can reports whether some rule accepts trigger in the current state.
// Guards are not evaluated.
func (m *Machine) Can(trigger domain.Trigger) bool {
	_, ok := Lookup(m.state, trigger)
	return ok
}

// Fire applies trigger. On rejection the state is left unchanged and the
// error wraps domain.ErrTransitionRejected.
func (m *Machine) Fire(ctx context.Context, trigger domain.Trigger) error {
	from := m.state
	to, err := Resolve(ctx, from, trigger, m.phone, m.conds)
	if err != nil {
		return err
	}
	m.state = to

	m.logger.Debug("transition", "phone", m.phone, "trigger", trigger, "from", from, "to", to)
	if m.hooks.OnTransition != nil {
		m.hooks.OnTransition(ctx, &domain.TransitionEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventTransition, Phone: m.phone},
			From:      from,
			To:        to,
			Trigger:   trigger,
		})
	}
	return nil
}

// Reset forces the machine back to the start state without a trigger.
// Used by error recovery, never by normal flows.
func (m *Machine) Reset() {
	if m.state != domain.StateStart {
		m.logger.Debug("reset", "phone", m.phone, "from", m.state)
	}
	m.state = domain.StateStart
}

// Forget asks the dispatcher to drop every session key for the phone
// instead of persisting the final state.
func (m *Machine) Forget() { m.forget = true }

// Forgotten reports whether Forget was called.
func (m *Machine) Forgotten() bool { return m.forget }
