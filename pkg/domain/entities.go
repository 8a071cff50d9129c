package domain

import (
	"strings"
	"time"
)

// Schedule is the delivery cadence a subscriber chose.
type Schedule string

const (
	ScheduleDaily       Schedule = "daily"
	ScheduleWeekly      Schedule = "weekly"
	ScheduleMonthly     Schedule = "monthly"
	ScheduleImmediately Schedule = "immediately"
)

// ParseSchedule accepts only the four canonical keys.
func ParseSchedule(raw string) (Schedule, bool) {
	switch s := Schedule(strings.ToLower(strings.TrimSpace(raw))); s {
	case ScheduleDaily, ScheduleWeekly, ScheduleMonthly, ScheduleImmediately:
		return s, true
	default:
		return "", false
	}
}

// Category classifies an Interaction.
type Category string

const (
	CategoryTerm           Category = "term"
	CategoryArticle        Category = "article"
	CategoryNewsSuggestion Category = "news_suggestion"
)

const (
	// AllLocationsMarker is what the location oracle returns when the user wants every region.
	AllLocationsMarker = "ALL_LOCATIONS"
	// AllLocationsName is the name stored for the "all locations" preference.
	AllLocationsName = "Todos Locais"
	// AllSubjectsName is the canonical "all subjects" value from the subject oracle.
	AllSubjectsName = "Todos temas"
)

// IsAllSubjects reports whether a classified subject means "every subject".
func IsAllSubjects(subject string) bool {
	s := strings.ToLower(strings.TrimSpace(subject))
	return s == strings.ToLower(AllSubjectsName) || s == "todos assuntos" || s == "all subjects"
}

// User is a subscriber, identified by phone number.
type User struct {
	ID          int64
	PhoneNumber string
	IsActive    bool
	Schedule    Schedule // empty until chosen
	CreatedAt   time.Time
}

// Location is a region a user follows. Confirmed rows belong to a finished subscription flow.
type Location struct {
	ID        int64
	UserID    int64
	Name      string
	Latitude  *float64
	Longitude *float64
	Confirmed bool
	CreatedAt time.Time
}

// Subject is a topic a user follows.
type Subject struct {
	ID        int64
	UserID    int64
	Name      string
	Confirmed bool
	CreatedAt time.Time
}

// Interaction is the audit record of one query and the response sent back.
type Interaction struct {
	ID          int64
	UserID      *int64
	PhoneNumber string
	Category    Category
	Query       string
	Response    string
	Feedback    *bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Direction tells whether a Message was received or sent.
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// MessageKind is the WhatsApp payload type.
type MessageKind string

const (
	KindText        MessageKind = "text"
	KindInteractive MessageKind = "interactive"
	KindTemplate    MessageKind = "template"
)

// Message statuses reported by the transport.
const (
	StatusReceived  = "received"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

// Message is a WhatsApp message exchanged with a phone number.
type Message struct {
	ID                int64
	WhatsAppMessageID string
	PhoneNumber       string
	Direction         Direction
	Kind              MessageKind
	Content           string
	Status            string
	StatusAt          time.Time
	ErrorCode         *int
	ErrorTitle        string
	ErrorMessage      string
}

// digestErrorPrefixes mark outgoing bodies that were logged for a failed send.
var digestErrorPrefixes = []string{"Error", "Erro", "Failed"}

// DigestErrorPrefixes returns the body prefixes that disqualify a digest.
func DigestErrorPrefixes() []string {
	return append([]string(nil), digestErrorPrefixes...)
}

// IsDigest reports whether m is a successfully sent batch digest.
func (m Message) IsDigest() bool {
	if m.Direction != DirectionOutgoing || m.Kind != KindTemplate {
		return false
	}
	switch m.Status {
	case StatusSent, StatusDelivered, StatusRead:
	default:
		return false
	}
	for _, p := range digestErrorPrefixes {
		if strings.HasPrefix(m.Content, p) {
			return false
		}
	}
	return true
}

// StatusUpdate is a delivery receipt for an outgoing message.
type StatusUpdate struct {
	WhatsAppMessageID string
	PhoneNumber       string
	Status            string
	At                time.Time
	ErrorCode         *int
	ErrorTitle        string
	ErrorMessage      string
}
