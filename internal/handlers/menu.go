package handlers

import (
	"context"
	"errors"

	"github.com/aretw0/boto/internal/runtime"
	"github.com/aretw0/boto/pkg/domain"
)

func (s *Set) start(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
	if reply, ok := s.repeatedUnsubscribe(ctx, m, in); ok {
		return reply, nil
	}
	err := m.Fire(ctx, domain.TriggerVerifyUser)
	switch {
	case err == nil:
		return s.register(ctx, m, in)
	case errors.Is(err, domain.ErrTransitionRejected):
		if err := m.Fire(ctx, domain.TriggerShowMenu); err != nil {
			return domain.Reply{}, err
		}
		return s.text("menu.main"), nil
	default:
		return s.transient(m, "verify user", err)
	}
}

func (s *Set) register(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
	if _, err := s.Repo.CreateUser(ctx, m.Phone()); err != nil {
		return s.transient(m, "create user", err)
	}
	s.Logger.Info("User registered", "phone", m.Phone())

	if err := m.Fire(ctx, domain.TriggerShowMenu); err != nil {
		return domain.Reply{}, err
	}
	if IsEscape(in.Text) {
		return s.text("menu.main"), nil
	}
	return domain.Reply{Body: join(s.msg("welcome.new_user"), s.msg("menu.main"))}, nil
}

func (s *Set) menu(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
	var (
		trigger domain.Trigger
		key     string
	)
	switch normalize(in.Text) {
	case "menu", "voltar":
		return s.text("menu.main"), nil
	case "1", "inscrever", "inscrição", "inscricao", "notícias", "noticias", "subscribe":
		trigger = domain.TriggerSelectSubscribe
	case "2", "termo", "term":
		trigger, key = domain.TriggerSelectTermInfo, "menu.term_info"
	case "3", "resumo", "artigo", "article":
		trigger, key = domain.TriggerSelectArticleSummary, "menu.article_summary"
	case "4", "sugestão", "sugestao", "pauta":
		trigger, key = domain.TriggerSelectNewsSuggestion, "menu.news_suggestion"
	case "5", "cancelar", "unsubscribe", "descadastrar":
		if err := m.Fire(ctx, domain.TriggerSelectUnsubscribe); err != nil {
			return domain.Reply{}, err
		}
		return s.yesNo(s.msg("unsubscribe.confirm")), nil
	case "6", "sobre", "about", "info":
		if err := m.Fire(ctx, domain.TriggerSelectAbout); err != nil {
			return domain.Reply{}, err
		}
		return domain.Reply{Body: join(s.msg("about.info"), s.msg("about.return"))}, nil
	default:
		return s.text("menu.invalid_option"), nil
	}

	if err := m.Fire(ctx, trigger); err != nil {
		if errors.Is(err, domain.ErrTransitionRejected) {
			return domain.Reply{}, err
		}
		return s.transient(m, string(trigger), err)
	}
	if trigger == domain.TriggerSelectSubscribe {
		if m.Is(domain.StateModifySubscription) {
			return s.text("subscription.modify"), nil
		}
		return s.text("location.request"), nil
	}
	return s.text(key), nil
}

func (s *Set) modifySubscription(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
	var (
		trigger domain.Trigger
		key     string
	)
	switch normalize(in.Text) {
	case "1":
		trigger, key = domain.TriggerSelectLocationModification, "location.request"
	case "2":
		trigger, key = domain.TriggerSelectSubjectModification, "subject.request"
	case "3":
		trigger, key = domain.TriggerSelectScheduleModification, "schedule.request"
	default:
		return s.text("subscription.invalid_option"), nil
	}
	if err := m.Fire(ctx, trigger); err != nil {
		return domain.Reply{}, err
	}
	return s.text(key), nil
}

// about returns to idle on the next message and answers it from there.
func (s *Set) about(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
	if err := m.Fire(ctx, domain.TriggerEndConversation); err != nil {
		return domain.Reply{}, err
	}
	return s.start(ctx, m, in)
}
