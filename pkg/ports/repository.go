package ports

import (
	"context"
	"time"

	"github.com/aretw0/boto/pkg/domain"
)

// UserRepository persists subscribers.
type UserRepository interface {
	// UserExists checks existence only; it never loads the row.
	UserExists(ctx context.Context, phone string) (bool, error)
	// GetUser returns domain.ErrUserNotFound when the phone is unknown.
	GetUser(ctx context.Context, phone string) (*domain.User, error)
	// CreateUser returns the existing user when the phone is already registered.
	CreateUser(ctx context.Context, phone string) (*domain.User, error)
	// SaveSchedule stores the schedule, activates the user and confirms pending preferences.
	SaveSchedule(ctx context.Context, userID int64, schedule domain.Schedule) error
	// DeleteUserCascade removes the user and every row scoped to it in one transaction.
	// It reports false, with no error, when there was no user to delete.
	DeleteUserCascade(ctx context.Context, phone string) (bool, error)
}

// PreferenceRepository persists the locations and subjects a user follows.
type PreferenceRepository interface {
	HasConfirmedLocation(ctx context.Context, phone string) (bool, error)
	CountLocations(ctx context.Context, userID int64) (int, error)
	// AddLocation reports false when the user already follows that location.
	AddLocation(ctx context.Context, loc domain.Location) (bool, error)
	// PurgeStaleLocations deletes unconfirmed locations created before the cutoff.
	PurgeStaleLocations(ctx context.Context, userID int64, before time.Time) (int64, error)
	// AddSubject reports false when the user already follows that subject.
	AddSubject(ctx context.Context, sub domain.Subject) (bool, error)
}

// InteractionRepository persists query/response audit records.
type InteractionRepository interface {
	CreateInteraction(ctx context.Context, in domain.Interaction) (int64, error)
	// SetFeedback returns domain.ErrInteractionNotFound for an unknown id.
	SetFeedback(ctx context.Context, id int64, feedback bool, at time.Time) error
}

// MessageRepository persists WhatsApp messages in both directions.
type MessageRepository interface {
	// RecordMessage reports false when a message with the same WhatsApp id already exists.
	RecordMessage(ctx context.Context, msg domain.Message) (bool, error)
	UpdateMessageStatus(ctx context.Context, update domain.StatusUpdate) error
	// LastDigest returns the most recent successfully sent digest to phone,
	// or domain.ErrMessageNotFound.
	LastDigest(ctx context.Context, phone string) (*domain.Message, error)
}

// Repository is the persistent relational store.
type Repository interface {
	UserRepository
	PreferenceRepository
	InteractionRepository
	MessageRepository
}
