package handlers

import (
	"context"
	"strings"

	"github.com/aretw0/boto/internal/runtime"
	"github.com/aretw0/boto/pkg/domain"
	"github.com/aretw0/boto/pkg/ports"
)

func (s *Set) location(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
	u, reply, err := s.user(ctx, m)
	if reply != nil || err != nil {
		return derefReply(reply), err
	}

	if n, err := s.Repo.PurgeStaleLocations(ctx, u.ID, s.Now().Add(-StaleLocationAge)); err != nil {
		return s.transient(m, "purge locations", err)
	} else if n > 0 {
		s.Logger.Debug("Purged stale locations", "phone", m.Phone(), "count", n)
	}

	if more, ok := ParseConfirmation(in.Text); ok {
		if more {
			return s.text("location.add_more"), nil
		}
		count, err := s.Repo.CountLocations(ctx, u.ID)
		if err != nil {
			return s.transient(m, "count locations", err)
		}
		if count == 0 {
			return s.text("location.need_one"), nil
		}
		if err := m.Fire(ctx, domain.TriggerProceedToSubjects); err != nil {
			return domain.Reply{}, err
		}
		return s.text("subject.request"), nil
	}

	verdicts, err := s.Classifier.ValidateLocations(ctx, in.Text)
	if err != nil {
		return s.transient(m, "validate locations", err)
	}

	for _, v := range verdicts {
		if !v.All {
			continue
		}
		if _, err := s.Repo.AddLocation(ctx, domain.Location{UserID: u.ID, Name: domain.AllLocationsName}); err != nil {
			return s.transient(m, "save location", err)
		}
		if err := m.Fire(ctx, domain.TriggerProceedToSubjects); err != nil {
			return domain.Reply{}, err
		}
		return domain.Reply{Body: join(s.msg("location.all_saved"), s.msg("subject.request"))}, nil
	}

	var saved, existing, invalid []string
	for _, v := range verdicts {
		if !v.Valid || v.Name == "" {
			if v.Name != "" {
				invalid = append(invalid, v.Name)
			}
			continue
		}
		created, err := s.Repo.AddLocation(ctx, domain.Location{
			UserID:    u.ID,
			Name:      v.Name,
			Latitude:  v.Latitude,
			Longitude: v.Longitude,
		})
		if err != nil {
			return s.transient(m, "save location", err)
		}
		if created {
			saved = append(saved, v.Name)
		} else {
			existing = append(existing, v.Name)
		}
	}

	if len(saved) == 0 && len(existing) == 0 {
		shown := strings.Join(invalid, ", ")
		if shown == "" {
			shown = strings.TrimSpace(in.Text)
		}
		return s.text("location.invalid", "message", shown), nil
	}

	var body string
	switch {
	case len(saved) == 1:
		body = s.msg("location.saved", "location", saved[0])
	case len(saved) > 1:
		body = s.msg("location.saved_multiple", "locations", strings.Join(saved, ", "))
	default:
		body = s.msg("location.already_exists", "location", strings.Join(existing, ", "))
	}
	if len(invalid) > 0 {
		body = join(body, s.msg("location.partial_invalid", "invalid", strings.Join(invalid, ", ")))
	}
	return domain.Reply{Body: body}, nil
}

func (s *Set) subject(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
	u, reply, err := s.user(ctx, m)
	if reply != nil || err != nil {
		return derefReply(reply), err
	}

	if more, ok := ParseConfirmation(in.Text); ok {
		if more {
			return s.text("subject.add_more"), nil
		}
		if err := m.Fire(ctx, domain.TriggerProceedToSchedule); err != nil {
			return domain.Reply{}, err
		}
		return s.text("schedule.request"), nil
	}

	v, err := s.Classifier.ValidateSubject(ctx, in.Text)
	if err != nil {
		return s.transient(m, "validate subject", err)
	}
	if !v.Valid {
		shown := v.Subject
		if shown == "" {
			shown = strings.TrimSpace(in.Text)
		}
		return s.text("subject.invalid", "message", shown), nil
	}

	if domain.IsAllSubjects(v.Subject) {
		if _, err := s.Repo.AddSubject(ctx, domain.Subject{UserID: u.ID, Name: domain.AllSubjectsName}); err != nil {
			return s.transient(m, "save subject", err)
		}
		if err := m.Fire(ctx, domain.TriggerProceedToSchedule); err != nil {
			return domain.Reply{}, err
		}
		return domain.Reply{Body: join(s.msg("subject.all_saved"), s.msg("schedule.request"))}, nil
	}

	created, err := s.Repo.AddSubject(ctx, domain.Subject{UserID: u.ID, Name: v.Subject})
	if err != nil {
		return s.transient(m, "save subject", err)
	}
	if !created {
		return s.text("subject.already_exists", "subject", v.Subject), nil
	}
	return s.text("subject.saved", "subject", v.Subject), nil
}

func (s *Set) schedule(ctx context.Context, m *runtime.Machine, in Input) (domain.Reply, error) {
	v, err := s.Classifier.NormalizeSchedule(ctx, in.Text)
	if err != nil {
		return s.transient(m, "normalize schedule", err)
	}
	sched, ok := canonicalSchedule(v)
	if !ok {
		if v.Valid {
			s.Logger.Warn("Oracle returned a non-canonical schedule", "phone", m.Phone(), "value", v.Value)
		}
		return s.text("schedule.invalid_option"), nil
	}

	u, reply, err := s.user(ctx, m)
	if reply != nil || err != nil {
		return derefReply(reply), err
	}
	if err := s.Repo.SaveSchedule(ctx, u.ID, sched); err != nil {
		return s.transient(m, "save schedule", err)
	}

	return s.end(ctx, m, s.text("schedule.confirmation", "schedule", s.msg("schedule.labels."+string(sched))))
}

// canonicalSchedule accepts only one of the four schedule keys, exactly.
func canonicalSchedule(v ports.ScheduleVerdict) (domain.Schedule, bool) {
	if !v.Valid {
		return "", false
	}
	sched, ok := domain.ParseSchedule(v.Value)
	if !ok || string(sched) != v.Value {
		return "", false
	}
	return sched, true
}

func derefReply(r *domain.Reply) domain.Reply {
	if r == nil {
		return domain.Reply{}
	}
	return *r
}
