// Package feedback logs query/response interactions and attaches the user's
// later verdict to them.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/boto/internal/logging"
	"github.com/aretw0/boto/pkg/domain"
	"github.com/aretw0/boto/pkg/ports"
)

// References stores the interaction awaiting feedback per phone.
// *session.Manager satisfies it.
type References interface {
	SetInteraction(ctx context.Context, phone string, id int64) error
	Interaction(ctx context.Context, phone string) (int64, error)
	ClearInteraction(ctx context.Context, phone string) error
}

// Recorder ties the interaction repository to the ephemeral reference.
type Recorder struct {
	repo   ports.InteractionRepository
	refs   References
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

func New(repo ports.InteractionRepository, refs References, opts ...Option) *Recorder {
	r := &Recorder{repo: repo, refs: refs, logger: logging.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record stores the interaction. When awaitFeedback is set the new id becomes
// the phone's current interaction reference.
func (r *Recorder) Record(ctx context.Context, in domain.Interaction, awaitFeedback bool) (int64, error) {
	id, err := r.repo.CreateInteraction(ctx, in)
	if err != nil {
		return 0, fmt.Errorf("failed to record interaction: %w", err)
	}
	if awaitFeedback {
		if err := r.refs.SetInteraction(ctx, in.PhoneNumber, id); err != nil {
			return id, fmt.Errorf("failed to store interaction reference: %w", err)
		}
	}
	return id, nil
}

// Attach sets the feedback on the phone's current interaction and clears the
// reference. It reports false, without error, when there was nothing to attach to.
func (r *Recorder) Attach(ctx context.Context, phone string, positive bool) (bool, error) {
	id, err := r.refs.Interaction(ctx, phone)
	if errors.Is(err, domain.ErrSessionNotFound) {
		r.logger.Warn("Feedback received without a pending interaction", "phone", phone)
		return false, nil
	}
	if err != nil {
		r.logger.Warn("Unreadable interaction reference", "phone", phone, "err", err)
		_ = r.refs.ClearInteraction(ctx, phone)
		return false, nil
	}

	err = r.repo.SetFeedback(ctx, id, positive, r.now())
	if errors.Is(err, domain.ErrInteractionNotFound) {
		r.logger.Warn("Interaction reference points to a missing row", "phone", phone, "interaction_id", id)
		_ = r.refs.ClearInteraction(ctx, phone)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to attach feedback: %w", err)
	}

	if err := r.refs.ClearInteraction(ctx, phone); err != nil {
		r.logger.Warn("Failed to clear interaction reference", "phone", phone, "err", err)
	}
	return true, nil
}
