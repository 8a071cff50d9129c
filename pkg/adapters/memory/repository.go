package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/boto/pkg/domain"
)

// Repository implements ports.Repository in memory.
// Safe for concurrent use. Rows are copied on the way in and out.
type Repository struct {
	mu  sync.Mutex
	now func() time.Time
	err error

	nextID       int64
	users        map[string]*domain.User
	locations    []domain.Location
	subjects     []domain.Subject
	interactions map[int64]*domain.Interaction
	messages     []domain.Message
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithRepositoryClock replaces the time source used for timestamps.
func WithRepositoryClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) {
		r.now = now
	}
}

// NewRepository creates an empty in-memory repository.
func NewRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		now:          time.Now,
		users:        make(map[string]*domain.User),
		interactions: make(map[int64]*domain.Interaction),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetFailure makes every subsequent call fail with err until reset with nil.
func (r *Repository) SetFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Repository) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *Repository) UserExists(ctx context.Context, phone string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	_, ok := r.users[phone]
	return ok, nil
}

func (r *Repository) GetUser(ctx context.Context, phone string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[phone]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *Repository) CreateUser(ctx context.Context, phone string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if u, ok := r.users[phone]; ok {
		cp := *u
		return &cp, nil
	}
	u := &domain.User{ID: r.id(), PhoneNumber: phone, CreatedAt: r.now()}
	r.users[phone] = u
	cp := *u
	return &cp, nil
}

func (r *Repository) userByID(id int64) *domain.User {
	for _, u := range r.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (r *Repository) SaveSchedule(ctx context.Context, userID int64, schedule domain.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	u := r.userByID(userID)
	if u == nil {
		return domain.ErrUserNotFound
	}
	u.Schedule = schedule
	u.IsActive = true
	for i := range r.locations {
		if r.locations[i].UserID == userID {
			r.locations[i].Confirmed = true
		}
	}
	for i := range r.subjects {
		if r.subjects[i].UserID == userID {
			r.subjects[i].Confirmed = true
		}
	}
	return nil
}

func (r *Repository) DeleteUserCascade(ctx context.Context, phone string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	u, ok := r.users[phone]
	if !ok {
		return false, nil
	}

	locations := r.locations[:0]
	for _, l := range r.locations {
		if l.UserID != u.ID {
			locations = append(locations, l)
		}
	}
	r.locations = locations

	subjects := r.subjects[:0]
	for _, s := range r.subjects {
		if s.UserID != u.ID {
			subjects = append(subjects, s)
		}
	}
	r.subjects = subjects

	for id, in := range r.interactions {
		if in.PhoneNumber == phone || (in.UserID != nil && *in.UserID == u.ID) {
			delete(r.interactions, id)
		}
	}

	messages := r.messages[:0]
	for _, m := range r.messages {
		if m.PhoneNumber != phone {
			messages = append(messages, m)
		}
	}
	r.messages = messages

	delete(r.users, phone)
	return true, nil
}

func (r *Repository) HasConfirmedLocation(ctx context.Context, phone string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	u, ok := r.users[phone]
	if !ok {
		return false, nil
	}
	for _, l := range r.locations {
		if l.UserID == u.ID && l.Confirmed {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repository) CountLocations(ctx context.Context, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	n := 0
	for _, l := range r.locations {
		if l.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *Repository) AddLocation(ctx context.Context, loc domain.Location) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	for _, l := range r.locations {
		if l.UserID == loc.UserID && strings.EqualFold(l.Name, loc.Name) {
			return false, nil
		}
	}
	loc.ID = r.id()
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = r.now()
	}
	r.locations = append(r.locations, loc)
	return true, nil
}

func (r *Repository) PurgeStaleLocations(ctx context.Context, userID int64, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	var purged int64
	kept := r.locations[:0]
	for _, l := range r.locations {
		if l.UserID == userID && !l.Confirmed && l.CreatedAt.Before(before) {
			purged++
			continue
		}
		kept = append(kept, l)
	}
	r.locations = kept
	return purged, nil
}

func (r *Repository) AddSubject(ctx context.Context, sub domain.Subject) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	for _, s := range r.subjects {
		if s.UserID == sub.UserID && strings.EqualFold(s.Name, sub.Name) {
			return false, nil
		}
	}
	sub.ID = r.id()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = r.now()
	}
	r.subjects = append(r.subjects, sub)
	return true, nil
}

func (r *Repository) CreateInteraction(ctx context.Context, in domain.Interaction) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	in.ID = r.id()
	in.CreatedAt = r.now()
	in.UpdatedAt = in.CreatedAt
	r.interactions[in.ID] = &in
	return in.ID, nil
}

func (r *Repository) SetFeedback(ctx context.Context, id int64, feedback bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	in, ok := r.interactions[id]
	if !ok {
		return domain.ErrInteractionNotFound
	}
	in.Feedback = &feedback
	in.UpdatedAt = at
	return nil
}

func (r *Repository) RecordMessage(ctx context.Context, msg domain.Message) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	if msg.WhatsAppMessageID != "" {
		for _, m := range r.messages {
			if m.WhatsAppMessageID == msg.WhatsAppMessageID {
				return false, nil
			}
		}
	}
	msg.ID = r.id()
	if msg.StatusAt.IsZero() {
		msg.StatusAt = r.now()
	}
	r.messages = append(r.messages, msg)
	return true, nil
}

func (r *Repository) UpdateMessageStatus(ctx context.Context, update domain.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for i := range r.messages {
		m := &r.messages[i]
		if m.WhatsAppMessageID != update.WhatsAppMessageID {
			continue
		}
		m.Status = update.Status
		m.StatusAt = update.At
		m.ErrorCode = update.ErrorCode
		m.ErrorTitle = update.ErrorTitle
		m.ErrorMessage = update.ErrorMessage
		return nil
	}
	r.messages = append(r.messages, domain.Message{
		ID:                r.id(),
		WhatsAppMessageID: update.WhatsAppMessageID,
		PhoneNumber:       update.PhoneNumber,
		Direction:         domain.DirectionOutgoing,
		Kind:              domain.KindText,
		Status:            update.Status,
		StatusAt:          update.At,
		ErrorCode:         update.ErrorCode,
		ErrorTitle:        update.ErrorTitle,
		ErrorMessage:      update.ErrorMessage,
	})
	return nil
}

func (r *Repository) LastDigest(ctx context.Context, phone string) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var last *domain.Message
	for i := range r.messages {
		m := r.messages[i]
		if m.PhoneNumber != phone || !m.IsDigest() {
			continue
		}
		if last == nil || !m.StatusAt.Before(last.StatusAt) {
			cp := m
			last = &cp
		}
	}
	if last == nil {
		return nil, domain.ErrMessageNotFound
	}
	return last, nil
}

// Locations returns the locations stored for phone, ordered by id.
func (r *Repository) Locations(phone string) []domain.Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[phone]
	if !ok {
		return nil
	}
	var out []domain.Location
	for _, l := range r.locations {
		if l.UserID == u.ID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Subjects returns the subjects stored for phone, ordered by id.
func (r *Repository) Subjects(phone string) []domain.Subject {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[phone]
	if !ok {
		return nil
	}
	var out []domain.Subject
	for _, s := range r.subjects {
		if s.UserID == u.ID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Interactions returns every stored interaction, ordered by id.
func (r *Repository) Interactions() []domain.Interaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Interaction, 0, len(r.interactions))
	for _, in := range r.interactions {
		out = append(out, *in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Messages returns every stored message for phone, in insertion order.
func (r *Repository) Messages(phone string) []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.messages {
		if m.PhoneNumber == phone {
			out = append(out, m)
		}
	}
	return out
}

// UserCount returns how many users are stored.
func (r *Repository) UserCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}
