package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/boto/pkg/adapters/memory"
	"github.com/aretw0/boto/pkg/domain"
	"github.com/aretw0/boto/pkg/ports"
	"github.com/aretw0/boto/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SerializesSamePhone(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.WithLock(ctx, "5511999990000", func(ctx context.Context) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}

func TestManager_DifferentPhonesDoNotBlock(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = mgr.WithLock(ctx, "1", func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	done := make(chan struct{})
	go func() {
		_ = mgr.WithLock(ctx, "2", func(context.Context) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for another phone blocked")
	}
	close(release)
}

func TestManager_LoadState(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	mgr := session.NewManager(store)

	t.Run("missing defaults to start", func(t *testing.T) {
		s, err := mgr.LoadState(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, domain.StateStart, s)
	})

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, mgr.SaveState(ctx, "1", domain.StateGetSubject))
		s, err := mgr.LoadState(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, domain.StateGetSubject, s)
	})

	t.Run("corrupt defaults to start", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, session.StateKey("2"), "menu_state", time.Minute))
		s, err := mgr.LoadState(ctx, "2")
		require.NoError(t, err)
		assert.Equal(t, domain.StateStart, s)
	})
}

func TestManager_StateExpires(t *testing.T) {
	now := time.Now()
	store := memory.NewStore(memory.WithClock(func() time.Time { return now }))
	mgr := session.NewManager(store, session.WithTTL(5*time.Minute))
	ctx := context.Background()

	require.NoError(t, mgr.SaveState(ctx, "1", domain.StateGetLocation))
	now = now.Add(5*time.Minute + time.Second)

	s, err := mgr.LoadState(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateStart, s)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}
func (brokenStore) Set(context.Context, string, string, time.Duration) error {
	return errors.New("connection refused")
}
func (brokenStore) Delete(context.Context, string) error { return errors.New("connection refused") }

var _ ports.SessionStore = brokenStore{}

func TestManager_StoreUnavailable(t *testing.T) {
	mgr := session.NewManager(brokenStore{})
	ctx := context.Background()

	_, err := mgr.LoadState(ctx, "1")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	err = mgr.SaveState(ctx, "1", domain.StateMenu)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestManager_InteractionAndURLs(t *testing.T) {
	ctx := context.Background()
	mgr := session.NewManager(memory.NewStore())

	require.NoError(t, mgr.SetInteraction(ctx, "1", 42))
	id, err := mgr.Interaction(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	urls := []string{"https://a.example/x", "https://b.example/y"}
	require.NoError(t, mgr.SetURLs(ctx, "1", urls))
	got, err := mgr.URLs(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, urls, got)

	require.NoError(t, mgr.SaveState(ctx, "1", domain.StateSelectURL))
	require.NoError(t, mgr.Forget(ctx, "1"))

	_, err = mgr.Interaction(ctx, "1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = mgr.URLs(ctx, "1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	s, err := mgr.LoadState(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateStart, s)
}

func TestManager_UnsubscribeMark(t *testing.T) {
	now := time.Now()
	mgr := session.NewManager(memory.NewStore(memory.WithClock(func() time.Time { return now })), session.WithTTL(time.Minute))
	ctx := context.Background()

	marked, err := mgr.Unsubscribed(ctx, "1")
	require.NoError(t, err)
	assert.False(t, marked)

	require.NoError(t, mgr.MarkUnsubscribed(ctx, "1"))
	require.NoError(t, mgr.Forget(ctx, "1"))
	marked, err = mgr.Unsubscribed(ctx, "1")
	require.NoError(t, err)
	assert.True(t, marked, "Forget keeps the mark")

	now = now.Add(time.Minute + time.Second)
	marked, err = mgr.Unsubscribed(ctx, "1")
	require.NoError(t, err)
	assert.False(t, marked, "mark expires with the session TTL")

	require.NoError(t, mgr.MarkUnsubscribed(ctx, "1"))
	require.NoError(t, mgr.ClearUnsubscribed(ctx, "1"))
	marked, err = mgr.Unsubscribed(ctx, "1")
	require.NoError(t, err)
	assert.False(t, marked)

	_, err = session.NewManager(brokenStore{}).Unsubscribed(ctx, "1")
	assert.Error(t, err)
}

type recordingLocker struct {
	mu   sync.Mutex
	keys []string
}

func (l *recordingLocker) Lock(_ context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	l.keys = append(l.keys, key)
	l.mu.Unlock()
	return func(context.Context) error { return nil }, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &recordingLocker{}
	mgr := session.NewManager(memory.NewStore(), session.WithLocker(locker))

	called := false
	err := mgr.WithLock(context.Background(), "5511999990000", func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, []string{"5511999990000"}, locker.keys)
}
