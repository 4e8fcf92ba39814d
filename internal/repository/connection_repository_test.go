package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumni-mentorship-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var connectionRowColumns = []string{"id", "mentor_id", "mentee_id", "request_id", "status", "start_date", "end_date", "notes", "idempotency_key", "created_at", "updated_at"}

func TestConnectionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConnectionRepository(db)
	requestID := "req-1"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT current_mentees, max_mentees FROM mentor_profiles WHERE alumni_id = $1 FOR UPDATE")).
		WithArgs("mentor-1").
		WillReturnRows(sqlmock.NewRows([]string{"current_mentees", "max_mentees"}).AddRow(1, 3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM mentee_requests WHERE id = $1 FOR UPDATE")).
		WithArgs(requestID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE mentee_requests SET status = $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE mentor_profiles SET current_mentees = current_mentees + 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO mentorship_connections").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	conn := &models.MentorshipConnection{
		MentorID:  "mentor-1",
		MenteeID:  "mentee-1",
		RequestID: &requestID,
		Status:    models.ConnectionPending,
		StartDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(context.Background(), conn))
	assert.NotEmpty(t, conn.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionRepositoryCreateCapacityExceeded(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConnectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT current_mentees, max_mentees FROM mentor_profiles").
		WithArgs("mentor-1").
		WillReturnRows(sqlmock.NewRows([]string{"current_mentees", "max_mentees"}).AddRow(3, 3))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.MentorshipConnection{MentorID: "mentor-1", MenteeID: "mentee-1"})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionRepositoryCreateDuplicateKey(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConnectionRepository(db)
	key := "key-1"

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM mentorship_connections WHERE idempotency_key").
		WithArgs(key).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("conn-1"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.MentorshipConnection{MentorID: "mentor-1", MenteeID: "mentee-1", IdempotencyKey: &key})
	assert.ErrorIs(t, err, ErrDuplicateIdempotencyKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionRepositoryUpdateReleasesSlot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConnectionRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM mentorship_connections WHERE id = $1 FOR UPDATE")).
		WithArgs("conn-1").
		WillReturnRows(sqlmock.NewRows(connectionRowColumns).
			AddRow("conn-1", "mentor-1", "mentee-1", nil, "active", now, now.AddDate(0, 6, 0), "", nil, now, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE mentorship_connections SET status = $2")).
		WithArgs("conn-1", models.ConnectionCompleted, sqlmock.AnyArg(), "wrapped up", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE mentor_profiles SET current_mentees = GREATEST(current_mentees - 1, 0)")).
		WithArgs("mentor-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.Update(context.Background(), "conn-1", func(c *models.MentorshipConnection) error {
		c.Status = models.ConnectionCompleted
		c.Notes = "wrapped up"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionCompleted, updated.Status)
	assert.Nil(t, updated.RequestID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionRepositoryUpdateNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConnectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM mentorship_connections WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), "missing", func(*models.MentorshipConnection) error { return nil })
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionRepositoryDeleteTerminalKeepsSlot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConnectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT mentor_id, status FROM mentorship_connections").
		WithArgs("conn-1").
		WillReturnRows(sqlmock.NewRows([]string{"mentor_id", "status"}).AddRow("mentor-1", "cancelled"))
	mock.ExpectExec("DELETE FROM mentorship_connections").
		WithArgs("conn-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "conn-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConnectionRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM mentorship_connections WHERE 1=1 AND status = $1 ORDER BY start_date ASC LIMIT 10 OFFSET 0")).
		WithArgs(models.ConnectionActive).
		WillReturnRows(sqlmock.NewRows(connectionRowColumns).
			AddRow("conn-1", "mentor-1", "mentee-1", "req-1", "active", now, now, "", nil, now, now).
			AddRow("conn-2", "mentor-2", "mentee-2", nil, "active", now, now, "", nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM mentorship_connections WHERE 1=1 AND status = $1")).
		WithArgs(models.ConnectionActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	items, total, err := repo.List(context.Background(), models.ConnectionFilter{
		Status:    models.ConnectionActive,
		SortBy:    "start_date",
		SortOrder: "asc",
		Page:      1,
		PageSize:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].RequestID)
	assert.Equal(t, "req-1", *items[0].RequestID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionRepositoryListFarPage(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConnectionRepository(db)

	offset := (math.MaxInt/10 - 1) * 10
	mock.ExpectQuery(regexp.QuoteMeta(fmt.Sprintf("ORDER BY created_at DESC LIMIT 10 OFFSET %d", offset))).
		WillReturnRows(sqlmock.NewRows(connectionRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM mentorship_connections WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.ConnectionFilter{Page: math.MaxInt, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}
