package openai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/boto/pkg/domain"
	"github.com/aretw0/boto/pkg/ports"
)

// ErrMalformedAnswer is returned when a completion does not follow the
// requested line format.
var ErrMalformedAnswer = errors.New("openai: malformed answer")

// parseLocations reads "T;name;class|F;name;class" answers. Newlines are
// accepted as separators too.
func parseLocations(answer string) ([]ports.LocationVerdict, error) {
	if strings.Contains(answer, domain.AllLocationsMarker) {
		return []ports.LocationVerdict{{Valid: true, All: true, Name: domain.AllLocationsMarker}}, nil
	}

	var out []ports.LocationVerdict
	for _, item := range strings.FieldsFunc(answer, func(r rune) bool { return r == '|' || r == '\n' }) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, ";", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("%w: location item %q", ErrMalformedAnswer, item)
		}
		v := ports.LocationVerdict{
			Valid: strings.EqualFold(strings.TrimSpace(parts[0]), "T"),
			Name:  strings.TrimSpace(parts[1]),
		}
		if len(parts) == 3 {
			v.Region = strings.TrimSpace(parts[2])
		}
		if v.Name == "" {
			return nil, fmt.Errorf("%w: empty location name", ErrMalformedAnswer)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no locations", ErrMalformedAnswer)
	}
	return out, nil
}

// parseSubject reads "VALID|subject|explanation" or "INVALID|subject|explanation".
func parseSubject(answer string) (ports.SubjectVerdict, error) {
	parts := strings.SplitN(answer, "|", 3)
	if len(parts) < 2 {
		return ports.SubjectVerdict{}, fmt.Errorf("%w: subject %q", ErrMalformedAnswer, answer)
	}
	v := ports.SubjectVerdict{
		Valid:   strings.EqualFold(strings.TrimSpace(parts[0]), "VALID"),
		Subject: strings.TrimSpace(parts[1]),
	}
	if len(parts) == 3 {
		v.Explanation = strings.TrimSpace(parts[2])
	}
	return v, nil
}

// parseSchedule keeps the raw value; the caller checks it is canonical.
func parseSchedule(answer string) ports.ScheduleVerdict {
	v := strings.ToLower(strings.Trim(strings.TrimSpace(answer), `."'`))
	if v == "" || v == "invalid" {
		return ports.ScheduleVerdict{}
	}
	return ports.ScheduleVerdict{Valid: true, Value: v}
}

func parseDigestChoice(answer string) (string, bool) {
	title := strings.Trim(strings.TrimSpace(answer), `"`)
	if title == "" || strings.EqualFold(title, "NONE") {
		return "", false
	}
	return title, true
}
