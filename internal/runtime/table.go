package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/boto/pkg/domain"
)

// Guard gates a rule. It receives the phone number explicitly and must not
// mutate anything.
type Guard func(ctx context.Context, conds Conditions, phone string) (bool, error)

// Rule maps a trigger fired in one of Sources to Dest.
// An empty Sources list matches every state.
// When Guard is set and returns false, Otherwise is used; an empty Otherwise
// means the trigger is rejected.
type Rule struct {
	Trigger   domain.Trigger
	Sources   []domain.State
	Dest      domain.State
	Guard     Guard
	Otherwise domain.State
}

func (r Rule) matches(from domain.State) bool {
	if len(r.Sources) == 0 {
		return true
	}
	for _, s := range r.Sources {
		if s == from {
			return true
		}
	}
	return false
}

// IsNewUser holds when no user row exists for phone.
func IsNewUser(ctx context.Context, conds Conditions, phone string) (bool, error) {
	return conds.IsNewUser(ctx, phone)
}

// HasSavedLocation holds when the user already finished a subscription with at least one location.
func HasSavedLocation(ctx context.Context, conds Conditions, phone string) (bool, error) {
	return conds.HasSavedLocation(ctx, phone)
}

func states(s ...domain.State) []domain.State { return s }

// Table is the dialogue definition.
var Table = []Rule{
	{Trigger: domain.TriggerVerifyUser, Sources: states(domain.StateStart), Dest: domain.StateRegister, Guard: IsNewUser},
	{
		Trigger: domain.TriggerShowMenu,
		Sources: states(
			domain.StateStart,
			domain.StateRegister,
			domain.StateGetLocation,
			domain.StateGetSubject,
			domain.StateGetSchedule,
			domain.StateUnsubscribe,
			domain.StateMonthlyNewsResponse,
		),
		Dest: domain.StateMenu,
	},
	{
		Trigger:   domain.TriggerSelectSubscribe,
		Sources:   states(domain.StateMenu, domain.StateGetLocation),
		Dest:      domain.StateModifySubscription,
		Guard:     HasSavedLocation,
		Otherwise: domain.StateGetLocation,
	},
	{Trigger: domain.TriggerSelectLocationModification, Sources: states(domain.StateModifySubscription), Dest: domain.StateGetLocation},
	{Trigger: domain.TriggerSelectSubjectModification, Sources: states(domain.StateModifySubscription), Dest: domain.StateGetSubject},
	{Trigger: domain.TriggerSelectScheduleModification, Sources: states(domain.StateModifySubscription), Dest: domain.StateGetSchedule},
	{Trigger: domain.TriggerProceedToSubjects, Sources: states(domain.StateGetLocation), Dest: domain.StateGetSubject},
	{Trigger: domain.TriggerProceedToSchedule, Sources: states(domain.StateGetSubject), Dest: domain.StateGetSchedule},
	{Trigger: domain.TriggerSelectAbout, Sources: states(domain.StateMenu), Dest: domain.StateAbout},
	{Trigger: domain.TriggerSelectTermInfo, Sources: states(domain.StateMenu), Dest: domain.StateGetTermInfo},
	{
		Trigger: domain.TriggerSelectArticleSummary,
		Sources: states(
			domain.StateMenu,
			domain.StateMonthlyNewsResponse,
			domain.StateStart,
			domain.StateFeedback,
			domain.StateGetArticleSummary,
		),
		Dest: domain.StateGetArticleSummary,
	},
	{Trigger: domain.TriggerSelectNewsSuggestion, Sources: states(domain.StateMenu), Dest: domain.StateGetNewsSuggestion},
	{
		Trigger: domain.TriggerGetFeedback,
		Sources: states(domain.StateGetTermInfo, domain.StateGetArticleSummary, domain.StateMonthlyNewsResponse),
		Dest:    domain.StateFeedback,
	},
	{Trigger: domain.TriggerSelectUnsubscribe, Sources: states(domain.StateMenu), Dest: domain.StateUnsubscribe},
	{Trigger: domain.TriggerStartMonthlyNewsResponse, Sources: states(domain.StateStart), Dest: domain.StateMonthlyNewsResponse},
	{
		Trigger: domain.TriggerEndConversation,
		Sources: states(
			domain.StateRegister,
			domain.StateGetSchedule,
			domain.StateAbout,
			domain.StateFeedback,
			domain.StateGetNewsSuggestion,
			domain.StateGetArticleSummary,
			domain.StateGetTermInfo,
			domain.StateUnsubscribe,
			domain.StateMonthlyNewsResponse,
			domain.StateProcessURL,
			domain.StateSelectURL,
		),
		Dest: domain.StateStart,
	},
	{Trigger: domain.TriggerProcessURL, Dest: domain.StateProcessURL},
	{Trigger: domain.TriggerSelectFromMultipleURLs, Dest: domain.StateSelectURL},
	{Trigger: domain.TriggerURLSelected, Sources: states(domain.StateSelectURL), Dest: domain.StateGetArticleSummary},
}

// Lookup returns the rule accepting trigger in from.
func Lookup(from domain.State, trigger domain.Trigger) (Rule, bool) {
	for _, r := range Table {
		if r.Trigger == trigger && r.matches(from) {
			return r, true
		}
	}
	return Rule{}, false
}

// Resolve computes the destination of trigger fired in from.
// It is a pure function of its arguments: guards only read through conds.
func Resolve(ctx context.Context, from domain.State, trigger domain.Trigger, phone string, conds Conditions) (domain.State, error) {
	rule, ok := Lookup(from, trigger)
	if !ok {
		return from, &TransitionError{From: from, Trigger: trigger}
	}
	if rule.Guard == nil {
		return rule.Dest, nil
	}

	pass, err := rule.Guard(ctx, conds, phone)
	if err != nil {
		return from, fmt.Errorf("guard for %s failed: %w", trigger, err)
	}
	if pass {
		return rule.Dest, nil
	}
	if rule.Otherwise == "" {
		return from, &TransitionError{From: from, Trigger: trigger, Guarded: true}
	}
	return rule.Otherwise, nil
}

// Validate checks the table: every state and trigger is declared, and no
// (state, trigger) pair is claimed by two rules.
func Validate(table []Rule) error {
	seen := make(map[domain.State]map[domain.Trigger]bool)
	claim := func(s domain.State, t domain.Trigger) error {
		if seen[s] == nil {
			seen[s] = make(map[domain.Trigger]bool)
		}
		if seen[s][t] {
			return fmt.Errorf("trigger %s is ambiguous in state %s", t, s)
		}
		seen[s][t] = true
		return nil
	}

	for _, r := range table {
		if !r.Trigger.Valid() {
			return fmt.Errorf("unknown trigger %q", r.Trigger)
		}
		if !r.Dest.Valid() {
			return fmt.Errorf("trigger %s: unknown destination %q", r.Trigger, r.Dest)
		}
		if r.Otherwise != "" && !r.Otherwise.Valid() {
			return fmt.Errorf("trigger %s: unknown fallback %q", r.Trigger, r.Otherwise)
		}
		if r.Otherwise != "" && r.Guard == nil {
			return fmt.Errorf("trigger %s: fallback without guard", r.Trigger)
		}
		sources := r.Sources
		if len(sources) == 0 {
			sources = domain.States
		}
		for _, s := range sources {
			if !s.Valid() {
				return fmt.Errorf("trigger %s: unknown source %q", r.Trigger, s)
			}
			if err := claim(s, r.Trigger); err != nil {
				return err
			}
		}
	}
	return nil
}
