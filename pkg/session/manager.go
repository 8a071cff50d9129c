package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/boto/internal/logging"
	"github.com/aretw0/boto/pkg/domain"
	"github.com/aretw0/boto/pkg/ports"
)

const (
	DefaultTTL     = 5 * time.Minute
	DefaultLockTTL = 30 * time.Second
)

// StateKey, InteractionKey and URLsKey name the per-phone session keys.
func StateKey(phone string) string       { return "state:" + phone }
func InteractionKey(phone string) string { return "interaction:" + phone }
func URLsKey(phone string) string        { return "urls:" + phone }

// UnsubscribedKey marks a phone that just deleted its subscription.
// Forget leaves it in place.
func UnsubscribedKey(phone string) string { return "unsubscribed:" + phone }

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates per-phone session access, ensuring that messages from
// the same phone are processed one at a time.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SessionStore
	ttl   time.Duration

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets how long a distributed lock survives a crashed holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithTTL sets the expiration applied to every session key.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager backed by store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		ttl:     DefaultTTL,
		lockTTL: DefaultLockTTL,
		locks:   make(map[string]*lockEntry),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(phone) after unlocking.
func (m *Manager) acquire(phone string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[phone]
	if !exists {
		entry = &lockEntry{}
		m.locks[phone] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(phone string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[phone]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, phone)
	}
}

// WithLock executes fn while holding the lock for phone.
// The methods below do not lock on their own; callers wrap a whole
// load-handle-save cycle in WithLock.
func (m *Manager) WithLock(ctx context.Context, phone string, fn func(context.Context) error) error {
	entry := m.acquire(phone)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(phone)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, phone, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"phone", phone,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// LoadState returns the persisted state for phone.
// A missing or unreadable value yields StateStart; only an unreachable store is an error.
func (m *Manager) LoadState(ctx context.Context, phone string) (domain.State, error) {
	raw, err := m.store.Get(ctx, StateKey(phone))
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.StateStart, nil
	}
	if err != nil {
		return domain.StateStart, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	state, ok := domain.ParseState(raw)
	if !ok {
		m.logger.Warn("Discarding unknown persisted state", "phone", phone, "value", raw)
	}
	return state, nil
}

// SaveState persists state for phone, refreshing the TTL.
func (m *Manager) SaveState(ctx context.Context, phone string, state domain.State) error {
	if err := m.store.Set(ctx, StateKey(phone), state.String(), m.ttl); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Forget removes every session key held for phone.
func (m *Manager) Forget(ctx context.Context, phone string) error {
	for _, key := range []string{StateKey(phone), InteractionKey(phone), URLsKey(phone)} {
		if err := m.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

// SetInteraction remembers the interaction awaiting feedback from phone.
func (m *Manager) SetInteraction(ctx context.Context, phone string, id int64) error {
	return m.store.Set(ctx, InteractionKey(phone), strconv.FormatInt(id, 10), m.ttl)
}

// Interaction returns the pending interaction id, or domain.ErrSessionNotFound.
func (m *Manager) Interaction(ctx context.Context, phone string) (int64, error) {
	raw, err := m.store.Get(ctx, InteractionKey(phone))
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt interaction reference %q: %w", raw, err)
	}
	return id, nil
}

// ClearInteraction drops the pending interaction reference.
func (m *Manager) ClearInteraction(ctx context.Context, phone string) error {
	return m.store.Delete(ctx, InteractionKey(phone))
}

// SetURLs stores the candidate URLs offered to phone.
func (m *Manager) SetURLs(ctx context.Context, phone string, urls []string) error {
	return m.store.Set(ctx, URLsKey(phone), strings.Join(urls, "\n"), m.ttl)
}

// URLs returns the candidate URLs offered to phone, or domain.ErrSessionNotFound.
func (m *Manager) URLs(ctx context.Context, phone string) ([]string, error) {
	raw, err := m.store.Get(ctx, URLsKey(phone))
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	return strings.Split(raw, "\n"), nil
}

// ClearURLs drops the stored candidate URLs.
func (m *Manager) ClearURLs(ctx context.Context, phone string) error {
	return m.store.Delete(ctx, URLsKey(phone))
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// MarkUnsubscribed remembers for one TTL that phone just unsubscribed.
func (m *Manager) MarkUnsubscribed(ctx context.Context, phone string) error {
	return m.store.Set(ctx, UnsubscribedKey(phone), "1", m.ttl)
}

// Unsubscribed reports whether phone unsubscribed within the last TTL.
func (m *Manager) Unsubscribed(ctx context.Context, phone string) (bool, error) {
	_, err := m.store.Get(ctx, UnsubscribedKey(phone))
	if errors.Is(err, domain.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ClearUnsubscribed drops the unsubscribe marker.
func (m *Manager) ClearUnsubscribed(ctx context.Context, phone string) error {
	return m.store.Delete(ctx, UnsubscribedKey(phone))
}
