package ports

import "context"

// LocationVerdict is the oracle's answer for one location mentioned by the user.
type LocationVerdict struct {
	Valid bool
	// Name is the corrected canonical name, or the original text when invalid.
	Name string
	// Region is the oracle's classification (municipality, state, region...).
	Region string
	// All is set when the user asked for every location.
	All       bool
	Latitude  *float64
	Longitude *float64
}

// SubjectVerdict is the oracle's answer for a subject.
type SubjectVerdict struct {
	Valid       bool
	Subject     string
	Explanation string
}

// ScheduleVerdict carries the raw normalized value; callers must still check
// it against the canonical schedule keys.
type ScheduleVerdict struct {
	Valid bool
	Value string
}

// Classifier is the external natural-language validation oracle.
type Classifier interface {
	ValidateLocations(ctx context.Context, text string) ([]LocationVerdict, error)
	ValidateSubject(ctx context.Context, text string) (SubjectVerdict, error)
	NormalizeSchedule(ctx context.Context, text string) (ScheduleVerdict, error)
	// ResolveDigestReply maps a numbered reply to one of the titles listed in digest.
	ResolveDigestReply(ctx context.Context, digest, reply string) (title string, ok bool, err error)
	SummarizeURL(ctx context.Context, url string) (string, error)
}
