package handlers

import (
	"context"

	"github.com/aretw0/boto/internal/runtime"
	"github.com/aretw0/boto/pkg/domain"
)

func (s *Set) unsubscribe(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
	confirm, ok := parseChoice(in.Text)
	if !ok {
		return s.yesNo(s.msg("unsubscribe.invalid_option")), nil
	}

	if !confirm {
		if err := m.Fire(ctx, domain.TriggerShowMenu); err != nil {
			return domain.Reply{}, err
		}
		return domain.Reply{Body: join(s.msg("unsubscribe.cancelled"), s.msg("menu.main"))}, nil
	}

	deleted, err := s.Repo.DeleteUserCascade(ctx, m.Phone())
	if err != nil {
		s.Logger.Error("Unsubscribe failed, nothing was deleted", "phone", m.Phone(), "err", err)
		return s.yesNo(join(s.msg("unsubscribe.failed"), s.msg("unsubscribe.confirm"))), nil
	}
	if !deleted {
		return s.end(ctx, m, s.text("unsubscribe.already"))
	}

	s.Logger.Info("User unsubscribed", "phone", m.Phone())
	if s.Marks != nil {
		if err := s.Marks.MarkUnsubscribed(ctx, m.Phone()); err != nil {
			s.Logger.Warn("Failed to mark unsubscribe", "phone", m.Phone(), "err", err)
		}
	}
	m.Forget()
	return s.end(ctx, m, s.text("unsubscribe.success"))
}

// repeatedUnsubscribe answers a confirmation that arrives right after an
// unsubscribe. Any other text clears the mark and the phone may register again.
func (s *Set) repeatedUnsubscribe(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, bool) {
	if s.Marks == nil {
		return domain.Reply{}, false
	}
	marked, err := s.Marks.Unsubscribed(ctx, m.Phone())
	if err != nil {
		s.Logger.Warn("Failed to read unsubscribe mark", "phone", m.Phone(), "err", err)
		return domain.Reply{}, false
	}
	if !marked {
		return domain.Reply{}, false
	}
	if _, ok := parseChoice(in.Text); ok {
		return s.text("unsubscribe.already"), true
	}
	if _, ok := ParseConfirmation(in.Text); ok {
		return s.text("unsubscribe.already"), true
	}
	if err := s.Marks.ClearUnsubscribed(ctx, m.Phone()); err != nil {
		s.Logger.Warn("Failed to clear unsubscribe mark", "phone", m.Phone(), "err", err)
	}
	return domain.Reply{}, false
}
