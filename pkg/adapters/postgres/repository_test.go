package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aretw0/boto/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return New(db, WithClock(func() time.Time { return fixed })), mock
}

var userCols = []string{"id", "phone_number", "is_active", "schedule", "created_at"}

func TestGetUser(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, phone_number, is_active, COALESCE(schedule, ''), created_at FROM users WHERE phone_number = $1")).
		WithArgs("5511999990000").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(7, "5511999990000", true, "weekly", fixed))

	u, err := repo.GetUser(ctx, "5511999990000")
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, domain.ScheduleWeekly, u.Schedule)
	assert.True(t, u.IsActive)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE phone_number = $1")).
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err = repo.GetUser(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestCreateUser_ReturnsRow(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (phone_number, is_active, created_at)")).
		WithArgs("5511", fixed).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "5511", false, "", fixed))

	u, err := repo.CreateUser(context.Background(), "5511")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Empty(t, u.Schedule)
}

func TestUserExists(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM users WHERE phone_number = $1)")).
		WithArgs("5511").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.UserExists(context.Background(), "5511")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSaveSchedule(t *testing.T) {
	t.Run("Commit", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET schedule = $1, is_active = TRUE WHERE id = $2")).
			WithArgs("daily", 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE locations SET confirmed = TRUE WHERE user_id = $1")).
			WithArgs(7).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE subjects SET confirmed = TRUE WHERE user_id = $1")).
			WithArgs(7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.SaveSchedule(context.Background(), 7, domain.ScheduleDaily))
	})

	t.Run("Unknown User Rolls Back", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET schedule")).
			WithArgs("daily", 99).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.SaveSchedule(context.Background(), 99, domain.ScheduleDaily)
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestDeleteUserCascade(t *testing.T) {
	t.Run("Deletes Everything", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE phone_number = $1 FOR UPDATE")).
			WithArgs("5511").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM locations WHERE user_id = $1")).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subjects WHERE user_id = $1")).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM interactions WHERE user_id = $1 OR phone_number = $2")).WithArgs(7, "5511").WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM messages WHERE phone_number = $1")).WithArgs("5511").WillReturnResult(sqlmock.NewResult(0, 4))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		deleted, err := repo.DeleteUserCascade(context.Background(), "5511")
		require.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("No User", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users")).
			WithArgs("5511").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectCommit()

		deleted, err := repo.DeleteUserCascade(context.Background(), "5511")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("Failure Rolls Back", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users")).
			WithArgs("5511").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM locations")).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subjects")).WithArgs(7).WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		deleted, err := repo.DeleteUserCascade(context.Background(), "5511")
		assert.ErrorContains(t, err, "connection reset")
		assert.False(t, deleted)
	})
}

func TestAddLocation(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()
	lat := -23.55

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO locations (user_id, name, latitude, longitude, confirmed, created_at)")).
		WithArgs(7, "São Paulo", lat, nil, false, fixed).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO locations")).
		WithArgs(7, "são paulo", nil, nil, false, fixed).
		WillReturnResult(sqlmock.NewResult(0, 0))

	added, err := repo.AddLocation(ctx, domain.Location{UserID: 7, Name: "São Paulo", Latitude: &lat})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.AddLocation(ctx, domain.Location{UserID: 7, Name: "são paulo"})
	require.NoError(t, err)
	assert.False(t, added, "case-insensitive duplicate")
}

func TestPurgeStaleLocations(t *testing.T) {
	repo, mock := newMock(t)
	cutoff := fixed.Add(-time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM locations WHERE user_id = $1 AND NOT confirmed AND created_at < $2")).
		WithArgs(7, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.PurgeStaleLocations(context.Background(), 7, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestInteractions(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()
	uid := int64(7)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO interactions")).
		WithArgs(uid, "5511", "term", "inflação", "resumo", fixed).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	id, err := repo.CreateInteraction(ctx, domain.Interaction{
		UserID: &uid, PhoneNumber: "5511", Category: domain.CategoryTerm, Query: "inflação", Response: "resumo",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE interactions SET feedback = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(true, fixed, 42).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetFeedback(ctx, 42, true, fixed))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE interactions SET feedback")).
		WithArgs(false, fixed, 43).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.SetFeedback(ctx, 43, false, fixed), domain.ErrInteractionNotFound)
}

func TestRecordMessage_Duplicate(t *testing.T) {
	repo, mock := newMock(t)
	msg := domain.Message{
		WhatsAppMessageID: "wamid.1",
		PhoneNumber:       "5511",
		Direction:         domain.DirectionIncoming,
		Kind:              domain.KindText,
		Content:           "oi",
		Status:            domain.StatusReceived,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages")).
		WithArgs("wamid.1", "5511", "incoming", "text", "oi", "received", fixed, nil, "", "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO messages")).
		WithArgs("wamid.1", "5511", "incoming", "text", "oi", "received", fixed, nil, "", "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	first, err := repo.RecordMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := repo.RecordMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.False(t, again)
}

func TestUpdateMessageStatus(t *testing.T) {
	repo, mock := newMock(t)
	code := 131047

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (whatsapp_message_id) DO UPDATE SET")).
		WithArgs("wamid.2", "5511", "outgoing", "text", "failed", fixed, int64(code), "Re-engagement", "window closed").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateMessageStatus(context.Background(), domain.StatusUpdate{
		WhatsAppMessageID: "wamid.2",
		PhoneNumber:       "5511",
		Status:            domain.StatusFailed,
		At:                fixed,
		ErrorCode:         &code,
		ErrorTitle:        "Re-engagement",
		ErrorMessage:      "window closed",
	})
	require.NoError(t, err)
}

func TestLastDigest(t *testing.T) {
	cols := []string{"id", "whatsapp_message_id", "phone_number", "direction", "kind", "content",
		"status", "status_at", "error_code", "error_title", "error_message"}

	t.Run("Found", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("AND content NOT LIKE $2 AND content NOT LIKE $3 AND content NOT LIKE $4 ORDER BY status_at DESC")).
			WithArgs("5511", "Error%", "Erro%", "Failed%").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(5, "wamid.9", "5511", "outgoing", "template", "1. Chuvas\n2. Eleições", "read", fixed, nil, "", ""))

		m, err := repo.LastDigest(context.Background(), "5511")
		require.NoError(t, err)
		assert.True(t, m.IsDigest())
		assert.Nil(t, m.ErrorCode)
		assert.Equal(t, "wamid.9", m.WhatsAppMessageID)
	})

	t.Run("None", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM messages")).
			WithArgs("5511", "Error%", "Erro%", "Failed%").
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := repo.LastDigest(context.Background(), "5511")
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	})

	t.Run("Driver Error", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM messages")).
			WillReturnError(sql.ErrConnDone)

		_, err := repo.LastDigest(context.Background(), "5511")
		assert.ErrorIs(t, err, sql.ErrConnDone)
	})
}

func TestMigrate(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.Migrate(context.Background()))
}
