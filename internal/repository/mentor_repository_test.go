package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumni-mentorship-api/internal/models"
)

func TestMentorRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMentorRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"alumni_id", "specializations", "industries", "years_of_experience", "max_mentees", "current_mentees", "availability", "mentorship_type", "is_active", "created_at", "updated_at"}).
		AddRow("mentor-1", "{\"Software Engineering\",Leadership}", "{Technology}", 6, 3, 1, "Available", "free", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM mentor_profiles ORDER BY created_at ASC, alumni_id ASC")).
		WillReturnRows(rows)

	mentors, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, mentors, 1)
	assert.Equal(t, []string{"Software Engineering", "Leadership"}, []string(mentors[0].Specializations))
	assert.Equal(t, models.AvailabilityAvailable, mentors[0].Availability)
	assert.True(t, mentors[0].HasCapacity())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMentorRepositoryDeactivateMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMentorRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE mentor_profiles SET is_active = FALSE")).
		WithArgs("ghost", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Deactivate(context.Background(), "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMenteeRequestRepositoryUpdateStatusNotPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewMenteeRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE mentee_requests SET status = $3")).
		WithArgs("req-1", models.MenteeRequestPending, models.MenteeRequestRejected, sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM mentee_requests WHERE id = $1")).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))

	_, err := repo.UpdateStatus(context.Background(), "req-1", models.MenteeRequestPending, models.MenteeRequestRejected)
	assert.ErrorIs(t, err, ErrRequestNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlumniRepositoryFindByIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAlumniRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM alumni WHERE id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "graduation_year", "degree", "current_company", "industry"}).
			AddRow("a-1", "Ada Lovelace", "ada@example.com", 2010, "BSc", "Analytical", "Technology"))

	found, err := repo.FindByIDs(context.Background(), []string{"a-1", "a-2"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, "Ada Lovelace", found["a-1"].FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
