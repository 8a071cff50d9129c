package domain

import "strings"

// State names a position in the dialogue with one phone number.
type State string

const (
	// StateStart is both the initial state and the state every finished flow returns to.
	StateStart               State = "start"
	StateRegister            State = "register"
	StateMenu                State = "menu"
	StateModifySubscription  State = "modify_subscription"
	StateGetLocation         State = "get_location"
	StateGetSubject          State = "get_subject"
	StateGetSchedule         State = "get_schedule"
	StateAbout               State = "about"
	StateGetTermInfo         State = "get_term_info"
	StateGetArticleSummary   State = "get_article_summary"
	StateGetNewsSuggestion   State = "get_news_suggestion"
	StateFeedback            State = "feedback"
	StateUnsubscribe         State = "unsubscribe"
	StateMonthlyNewsResponse State = "monthly_news_response"
	StateProcessURL          State = "process_url"
	StateSelectURL           State = "select_url"
)

// States lists every dialogue state in declaration order.
var States = []State{
	StateStart,
	StateRegister,
	StateMenu,
	StateModifySubscription,
	StateGetLocation,
	StateGetSubject,
	StateGetSchedule,
	StateAbout,
	StateGetTermInfo,
	StateGetArticleSummary,
	StateGetNewsSuggestion,
	StateFeedback,
	StateUnsubscribe,
	StateMonthlyNewsResponse,
	StateProcessURL,
	StateSelectURL,
}

// Valid reports whether s is one of the declared states.
func (s State) Valid() bool {
	for _, known := range States {
		if s == known {
			return true
		}
	}
	return false
}

func (s State) String() string { return string(s) }

// ParseState converts a persisted value back into a State.
// Unknown or empty values fall back to StateStart and report false.
func ParseState(raw string) (State, bool) {
	s := State(strings.TrimSpace(raw))
	if !s.Valid() {
		return StateStart, false
	}
	return s, true
}
