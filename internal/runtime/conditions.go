package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/boto/pkg/ports"
)

// Conditions answers the questions guards ask about a phone number.
// Implementations must be side-effect free.
type Conditions interface {
	IsNewUser(ctx context.Context, phone string) (bool, error)
	HasSavedLocation(ctx context.Context, phone string) (bool, error)
}

type repositoryConditions struct {
	users ports.UserRepository
	prefs ports.PreferenceRepository
}

// NewConditions evaluates guards against the persistent store.
func NewConditions(users ports.UserRepository, prefs ports.PreferenceRepository) Conditions {
	return &repositoryConditions{users: users, prefs: prefs}
}

func (c *repositoryConditions) IsNewUser(ctx context.Context, phone string) (bool, error) {
	exists, err := c.users.UserExists(ctx, phone)
	if err != nil {
		return false, fmt.Errorf("is new user: %w", err)
	}
	return !exists, nil
}

func (c *repositoryConditions) HasSavedLocation(ctx context.Context, phone string) (bool, error) {
	ok, err := c.prefs.HasConfirmedLocation(ctx, phone)
	if err != nil {
		return false, fmt.Errorf("has saved location: %w", err)
	}
	return ok, nil
}

// StaticConditions is a fixed answer set, for tests and tooling.
type StaticConditions struct {
	NewUser       bool
	SavedLocation bool
}

func (s StaticConditions) IsNewUser(context.Context, string) (bool, error) { return s.NewUser, nil }

func (s StaticConditions) HasSavedLocation(context.Context, string) (bool, error) {
	return s.SavedLocation, nil
}
