// Package handlers implements one handler per dialogue state.
//
// A handler consumes the inbound text, talks to the oracle and the stores,
// and fires at most the triggers needed to reach the next position. Expected
// conditions (invalid input, missing correlation, duplicates, unreachable
// services) become replies; only programming errors escape as errors.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/boto/internal/feedback"
	"github.com/aretw0/boto/internal/logging"
	"github.com/aretw0/boto/internal/runtime"
	"github.com/aretw0/boto/pkg/domain"
	"github.com/aretw0/boto/pkg/ports"
)

// Input is one inbound message as seen by a handler.
type Input struct {
	Phone string
	Text  string
	// URLs holds the links found in Text by the dispatcher's URL filter.
	URLs []string
}

// Handler processes input for the machine's current state.
type Handler func(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error)

// URLStore keeps the candidate links offered to a phone.
// *session.Manager satisfies it.
type URLStore interface {
	SetURLs(ctx context.Context, phone string, urls []string) error
	URLs(ctx context.Context, phone string) ([]string, error)
	ClearURLs(ctx context.Context, phone string) error
}

// UnsubscribeMarks remembers phones that just unsubscribed, so a repeated
// confirmation does not register them again. *session.Manager satisfies it.
type UnsubscribeMarks interface {
	MarkUnsubscribed(ctx context.Context, phone string) error
	Unsubscribed(ctx context.Context, phone string) (bool, error)
	ClearUnsubscribed(ctx context.Context, phone string) error
}

// Deps are the collaborators shared by every handler. Marks is optional.
type Deps struct {
	Repo       ports.Repository
	Classifier ports.Classifier
	Searcher   ports.Searcher
	Messages   ports.MessageCatalog
	URLs       URLStore
	Marks      UnsubscribeMarks
	Feedback   *feedback.Recorder
	Logger     *slog.Logger
	Now        func() time.Time
}

// Set resolves the handler bound to each state.
type Set struct {
	Deps
	table map[domain.State]Handler
}

// StaleLocationAge is how old an unconfirmed location must be before a new
// capture round discards it.
const StaleLocationAge = time.Hour

// New builds the handler set.
func New(deps Deps) *Set {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Set{Deps: deps}
	s.table = map[domain.State]Handler{
		domain.StateStart:               s.start,
		domain.StateRegister:            s.register,
		domain.StateMenu:                s.menu,
		domain.StateModifySubscription:  s.escapable(s.modifySubscription),
		domain.StateGetLocation:         s.escapable(s.location),
		domain.StateGetSubject:          s.escapable(s.subject),
		domain.StateGetSchedule:         s.escapable(s.schedule),
		domain.StateAbout:               s.about,
		domain.StateGetTermInfo:         s.escapable(s.termInfo),
		domain.StateGetArticleSummary:   s.escapable(s.articleSummary),
		domain.StateGetNewsSuggestion:   s.escapable(s.newsSuggestion),
		domain.StateFeedback:            s.escapable(s.feedback),
		domain.StateUnsubscribe:         s.escapable(s.unsubscribe),
		domain.StateMonthlyNewsResponse: s.escapable(s.monthlyNewsResponse),
		domain.StateProcessURL:          s.processURL,
		domain.StateSelectURL:           s.escapable(s.selectURL),
	}
	return s
}

// Lookup returns the handler bound to state.
func (s *Set) Lookup(state domain.State) (Handler, bool) {
	h, ok := s.table[state]
	return h, ok
}

// Handle runs the handler for the machine's current state.
func (s *Set) Handle(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
	h, ok := s.Lookup(m.State())
	if !ok {
		m.Reset()
		return s.start(ctx, m, in)
	}
	return h(ctx, m, in)
}

// IsEscape reports whether text asks to go back to the main menu.
func IsEscape(text string) bool {
	switch normalize(text) {
	case "menu", "voltar":
		return true
	}
	return false
}

func (s *Set) escapable(h Handler) Handler {
	return func(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
		if IsEscape(in.Text) {
			return s.backToMenu(ctx, m)
		}
		return h(ctx, m, in)
	}
}

// backToMenu moves any state to menu, whatever partial input was collected.
func (s *Set) backToMenu(ctx context.Context, m *runtime.Machine) (domain.Reply, error) {
	if m.Is(domain.StateMenu) {
		return s.text("menu.main"), nil
	}
	if !m.Can(domain.TriggerShowMenu) {
		if m.Can(domain.TriggerEndConversation) {
			if err := m.Fire(ctx, domain.TriggerEndConversation); err != nil {
				return domain.Reply{}, err
			}
		} else {
			m.Reset()
		}
	}
	if err := m.Fire(ctx, domain.TriggerShowMenu); err != nil {
		return domain.Reply{}, err
	}
	return s.text("menu.main"), nil
}

// end fires end_conversation and returns reply.
func (s *Set) end(ctx context.Context, m *runtime.Machine, reply domain.Reply) (domain.Reply, error) {
	if err := m.Fire(ctx, domain.TriggerEndConversation); err != nil {
		return domain.Reply{}, err
	}
	return reply, nil
}

// transient handles an unreachable external service: the user gets an
// apology and the conversation restarts.
func (s *Set) transient(m *runtime.Machine, op string, err error) (domain.Reply, error) {
	s.Logger.Error("External call failed", "phone", m.Phone(), "state", m.State(), "op", op, "err", err)
	m.Reset()
	return s.text("error.generic"), nil
}

// user loads the subscriber, restarting the conversation if it vanished.
func (s *Set) user(ctx context.Context, m *runtime.Machine) (*domain.User, *domain.Reply, error) {
	u, err := s.Repo.GetUser(ctx, m.Phone())
	if errors.Is(err, domain.ErrUserNotFound) {
		s.Logger.Warn("User missing mid-flow", "phone", m.Phone(), "state", m.State())
		m.Reset()
		r := s.text("error.user_not_found")
		return nil, &r, nil
	}
	if err != nil {
		r, _ := s.transient(m, "get user", err)
		return nil, &r, nil
	}
	return u, nil, nil
}

func (s *Set) msg(key string, kv ...string) string {
	var vars map[string]string
	if len(kv) > 0 {
		vars = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			vars[kv[i]] = kv[i+1]
		}
	}
	return s.Messages.Get(key, vars)
}

func (s *Set) text(key string, kv ...string) domain.Reply {
	return domain.Reply{Body: s.msg(key, kv...)}
}

// yesNo is an interactive reply with the confirm/deny buttons.
func (s *Set) yesNo(body string) domain.Reply {
	return domain.Reply{
		Body: body,
		Buttons: []domain.Button{
			{ID: "1", Title: s.msg("buttons.yes")},
			{ID: "2", Title: s.msg("buttons.no")},
		},
	}
}

func join(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
