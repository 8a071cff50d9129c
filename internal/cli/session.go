package cli

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	redisstore "github.com/aretw0/boto/pkg/adapters/redis"
	"github.com/aretw0/boto/pkg/domain"
	"github.com/aretw0/boto/pkg/session"
)

// SessionInfo is what the session store holds for one phone.
type SessionInfo struct {
	Phone       string        `json:"phone"`
	State       domain.State  `json:"state"`
	TTL         time.Duration `json:"ttl"`
	Interaction int64         `json:"interaction,omitempty"`
	URLs        []string      `json:"urls,omitempty"`
}

// ListSessions returns the phones with a live dialogue state, sorted.
func ListSessions(ctx context.Context, store *redisstore.Store) ([]string, error) {
	keys, err := store.Keys(ctx, session.StateKey("*"))
	if err != nil {
		return nil, err
	}
	phones := make([]string, 0, len(keys))
	for _, k := range keys {
		phones = append(phones, strings.TrimPrefix(k, session.StateKey("")))
	}
	sort.Strings(phones)
	return phones, nil
}

// InspectSession reads every key kept for phone.
func InspectSession(ctx context.Context, store *redisstore.Store, phone string) (*SessionInfo, error) {
	raw, err := store.Get(ctx, session.StateKey(phone))
	if err != nil {
		return nil, err
	}
	state, _ := domain.ParseState(raw)
	info := &SessionInfo{Phone: phone, State: state}

	if info.TTL, err = store.TTL(ctx, session.StateKey(phone)); err != nil {
		return nil, err
	}

	mgr := session.NewManager(store)
	if info.Interaction, err = mgr.Interaction(ctx, phone); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, err
	}
	if info.URLs, err = mgr.URLs(ctx, phone); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, err
	}
	return info, nil
}

// RemoveSession deletes every key kept for phone.
func RemoveSession(ctx context.Context, store *redisstore.Store, phone string) error {
	if _, err := store.Get(ctx, session.StateKey(phone)); err != nil {
		return err
	}
	return session.NewManager(store).Forget(ctx, phone)
}
