package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/boto/pkg/domain"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

// Repository implements ports.Repository on a *sql.DB.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

type Option func(*Repository)

// WithClock replaces the time source used for created_at columns.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

func New(db *sql.DB, opts ...Option) *Repository {
	r := &Repository{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open connects to the database at url and verifies the connection.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return db, nil
}

// Migrate creates the tables and indexes if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) UserExists(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE phone_number = $1)", phone).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}

const userColumns = "id, phone_number, is_active, COALESCE(schedule, ''), created_at"

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u        domain.User
		schedule string
	)
	if err := row.Scan(&u.ID, &u.PhoneNumber, &u.IsActive, &schedule, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Schedule = domain.Schedule(schedule)
	return &u, nil
}

func (r *Repository) GetUser(ctx context.Context, phone string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE phone_number = $1", phone))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *Repository) CreateUser(ctx context.Context, phone string) (*domain.User, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`INSERT INTO users (phone_number, is_active, created_at) VALUES ($1, FALSE, $2)
		ON CONFLICT (phone_number) DO UPDATE SET phone_number = EXCLUDED.phone_number
		RETURNING `+userColumns, phone, r.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// withTx runs fn in a transaction, rolling back when fn fails.
func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (r *Repository) SaveSchedule(ctx context.Context, userID int64, schedule domain.Schedule) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE users SET schedule = $1, is_active = TRUE WHERE id = $2", string(schedule), userID)
		if err != nil {
			return fmt.Errorf("failed to save schedule: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrUserNotFound
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE locations SET confirmed = TRUE WHERE user_id = $1", userID); err != nil {
			return fmt.Errorf("failed to confirm locations: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE subjects SET confirmed = TRUE WHERE user_id = $1", userID); err != nil {
			return fmt.Errorf("failed to confirm subjects: %w", err)
		}
		return nil
	})
}

func (r *Repository) DeleteUserCascade(ctx context.Context, phone string) (bool, error) {
	deleted := false
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM users WHERE phone_number = $1 FOR UPDATE", phone).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock user: %w", err)
		}

		steps := []struct {
			query string
			args  []any
		}{
			{"DELETE FROM locations WHERE user_id = $1", []any{id}},
			{"DELETE FROM subjects WHERE user_id = $1", []any{id}},
			{"DELETE FROM interactions WHERE user_id = $1 OR phone_number = $2", []any{id, phone}},
			{"DELETE FROM messages WHERE phone_number = $1", []any{phone}},
			{"DELETE FROM users WHERE id = $1", []any{id}},
		}
		for _, s := range steps {
			if _, err := tx.ExecContext(ctx, s.query, s.args...); err != nil {
				return fmt.Errorf("failed to delete user data: %w", err)
			}
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (r *Repository) HasConfirmedLocation(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM locations l JOIN users u ON u.id = l.user_id
			WHERE u.phone_number = $1 AND l.confirmed
		)`, phone).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check locations: %w", err)
	}
	return exists, nil
}

func (r *Repository) CountLocations(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM locations WHERE user_id = $1", userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count locations: %w", err)
	}
	return n, nil
}

func (r *Repository) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return r.now()
	}
	return t
}

func (r *Repository) AddLocation(ctx context.Context, loc domain.Location) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO locations (user_id, name, latitude, longitude, confirmed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, lower(name)) DO NOTHING`,
		loc.UserID, loc.Name, nullFloat(loc.Latitude), nullFloat(loc.Longitude), loc.Confirmed, r.stamp(loc.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("failed to add location: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to add location: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) PurgeStaleLocations(ctx context.Context, userID int64, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM locations WHERE user_id = $1 AND NOT confirmed AND created_at < $2", userID, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge locations: %w", err)
	}
	return res.RowsAffected()
}

func (r *Repository) AddSubject(ctx context.Context, sub domain.Subject) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO subjects (user_id, name, confirmed, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, lower(name)) DO NOTHING`,
		sub.UserID, sub.Name, sub.Confirmed, r.stamp(sub.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("failed to add subject: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to add subject: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) CreateInteraction(ctx context.Context, in domain.Interaction) (int64, error) {
	now := r.now()
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO interactions (user_id, phone_number, category, query, response, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`,
		nullInt(in.UserID), in.PhoneNumber, string(in.Category), in.Query, in.Response, now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create interaction: %w", err)
	}
	return id, nil
}

func (r *Repository) SetFeedback(ctx context.Context, id int64, feedback bool, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE interactions SET feedback = $1, updated_at = $2 WHERE id = $3", feedback, at, id)
	if err != nil {
		return fmt.Errorf("failed to set feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrInteractionNotFound
	}
	return nil
}

func (r *Repository) RecordMessage(ctx context.Context, msg domain.Message) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO messages
			(whatsapp_message_id, phone_number, direction, kind, content, status, status_at, error_code, error_title, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (whatsapp_message_id) DO NOTHING`,
		nullString(msg.WhatsAppMessageID), msg.PhoneNumber, string(msg.Direction), string(msg.Kind),
		msg.Content, msg.Status, r.stamp(msg.StatusAt), nullCode(msg.ErrorCode), msg.ErrorTitle, msg.ErrorMessage)
	if err != nil {
		return false, fmt.Errorf("failed to record message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to record message: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) UpdateMessageStatus(ctx context.Context, u domain.StatusUpdate) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages
			(whatsapp_message_id, phone_number, direction, kind, status, status_at, error_code, error_title, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (whatsapp_message_id) DO UPDATE SET
			status = EXCLUDED.status,
			status_at = EXCLUDED.status_at,
			error_code = EXCLUDED.error_code,
			error_title = EXCLUDED.error_title,
			error_message = EXCLUDED.error_message`,
		u.WhatsAppMessageID, u.PhoneNumber, string(domain.DirectionOutgoing), string(domain.KindText),
		u.Status, r.stamp(u.At), nullCode(u.ErrorCode), u.ErrorTitle, u.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	return nil
}

// lastDigestQuery mirrors domain.Message.IsDigest; $1 is the phone and the
// remaining placeholders take the error prefixes as LIKE patterns.
var lastDigestQuery = func() string {
	var b strings.Builder
	b.WriteString(`SELECT id, COALESCE(whatsapp_message_id, ''), phone_number, direction, kind, content,
		status, status_at, error_code, error_title, error_message
	FROM messages
	WHERE phone_number = $1 AND direction = 'outgoing' AND kind = 'template'
		AND status IN ('sent', 'delivered', 'read')`)
	for i := range domain.DigestErrorPrefixes() {
		fmt.Fprintf(&b, " AND content NOT LIKE $%d", i+2)
	}
	b.WriteString(" ORDER BY status_at DESC, id DESC LIMIT 1")
	return b.String()
}()

func (r *Repository) LastDigest(ctx context.Context, phone string) (*domain.Message, error) {
	args := []any{phone}
	for _, p := range domain.DigestErrorPrefixes() {
		args = append(args, p+"%")
	}

	var (
		m         domain.Message
		direction string
		kind      string
		code      sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, lastDigestQuery, args...).Scan(
		&m.ID, &m.WhatsAppMessageID, &m.PhoneNumber, &direction, &kind, &m.Content,
		&m.Status, &m.StatusAt, &code, &m.ErrorTitle, &m.ErrorMessage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last digest: %w", err)
	}
	m.Direction = domain.Direction(direction)
	m.Kind = domain.MessageKind(kind)
	if code.Valid {
		c := int(code.Int64)
		m.ErrorCode = &c
	}
	return &m, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullCode(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
