package domain

// Trigger is a named action that may move the dialogue to another state.
type Trigger string

const (
	TriggerVerifyUser                 Trigger = "verify_user"
	TriggerShowMenu                   Trigger = "show_menu"
	TriggerSelectSubscribe            Trigger = "select_subscribe"
	TriggerSelectLocationModification Trigger = "select_location_modification"
	TriggerSelectSubjectModification  Trigger = "select_subject_modification"
	TriggerSelectScheduleModification Trigger = "select_schedule_modification"
	TriggerProceedToSubjects          Trigger = "proceed_to_subjects"
	TriggerProceedToSchedule          Trigger = "proceed_to_schedule"
	TriggerSelectAbout                Trigger = "select_about"
	TriggerSelectTermInfo             Trigger = "select_term_info"
	TriggerSelectArticleSummary       Trigger = "select_article_summary"
	TriggerSelectNewsSuggestion       Trigger = "select_news_suggestion"
	TriggerGetFeedback                Trigger = "get_feedback"
	TriggerSelectUnsubscribe          Trigger = "select_unsubscribe"
	TriggerStartMonthlyNewsResponse   Trigger = "start_monthly_news_response"
	TriggerEndConversation            Trigger = "end_conversation"
	TriggerProcessURL                 Trigger = "process_url"
	TriggerSelectFromMultipleURLs     Trigger = "select_from_multiple_urls"
	TriggerURLSelected                Trigger = "url_selected"
)

// Triggers lists every declared trigger.
var Triggers = []Trigger{
	TriggerVerifyUser,
	TriggerShowMenu,
	TriggerSelectSubscribe,
	TriggerSelectLocationModification,
	TriggerSelectSubjectModification,
	TriggerSelectScheduleModification,
	TriggerProceedToSubjects,
	TriggerProceedToSchedule,
	TriggerSelectAbout,
	TriggerSelectTermInfo,
	TriggerSelectArticleSummary,
	TriggerSelectNewsSuggestion,
	TriggerGetFeedback,
	TriggerSelectUnsubscribe,
	TriggerStartMonthlyNewsResponse,
	TriggerEndConversation,
	TriggerProcessURL,
	TriggerSelectFromMultipleURLs,
	TriggerURLSelected,
}

// Valid reports whether t is one of the declared triggers.
func (t Trigger) Valid() bool {
	for _, known := range Triggers {
		if t == known {
			return true
		}
	}
	return false
}

func (t Trigger) String() string { return string(t) }
