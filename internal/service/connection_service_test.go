package service

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumni-mentorship-api/internal/dto"
	"github.com/noah-isme/alumni-mentorship-api/internal/models"
	"github.com/noah-isme/alumni-mentorship-api/internal/repository"
	appErrors "github.com/noah-isme/alumni-mentorship-api/pkg/errors"
)

type connectionFixture struct {
	store   *repository.MemoryStore
	svc     *ConnectionService
	metrics *MetricsService
}

func newConnectionFixture(t *testing.T, maxMentees int) *connectionFixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	for _, a := range []models.Alumni{
		{ID: "1", FullName: "Rina Mentor"},
		{ID: "2", FullName: "Tono Mentor"},
		{ID: "5", FullName: "Sari Mentee"},
		{ID: "6", FullName: "Bayu Mentee"},
		{ID: "7", FullName: "Dewi Mentee"},
	} {
		a := a
		require.NoError(t, store.Alumni().Upsert(ctx, &a))
	}
	for _, id := range []string{"1", "2"} {
		require.NoError(t, store.Mentors().Upsert(ctx, &models.MentorProfile{
			AlumniID:     id,
			MaxMentees:   maxMentees,
			Availability: models.AvailabilityAvailable,
			IsActive:     true,
		}))
	}
	metrics := NewMetricsService()
	svc := NewConnectionService(store.Connections(), store.Requests(), store.Alumni(), nil, metrics, nil, nil)
	return &connectionFixture{store: store, svc: svc, metrics: metrics}
}

func (f *connectionFixture) create(t *testing.T, mentorID, menteeID string) *models.ConnectionView {
	t.Helper()
	view, err := f.svc.Create(context.Background(), dto.CreateConnectionRequest{
		MentorID:  mentorID,
		MenteeID:  menteeID,
		StartDate: "2024-01-01",
	})
	require.NoError(t, err)
	return view
}

func (f *connectionFixture) transition(t *testing.T, id string, status models.ConnectionStatus) (*models.ConnectionView, error) {
	t.Helper()
	return f.svc.Update(context.Background(), id, dto.UpdateConnectionRequest{Status: &status})
}

func errorCode(err error) string {
	return appErrors.FromError(err).Code
}

func currentMentees(t *testing.T, store *repository.MemoryStore, mentorID string) int {
	t.Helper()
	mentor, err := store.Mentors().FindByID(context.Background(), mentorID)
	require.NoError(t, err)
	return mentor.CurrentMentees
}

func TestConnectionCreateDefaultsEndDate(t *testing.T) {
	f := newConnectionFixture(t, 3)

	view, err := f.svc.Create(context.Background(), dto.CreateConnectionRequest{MentorID: "1", MenteeID: "5", StartDate: "2024-01-15"})
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionPending, view.Status)
	assert.Equal(t, "2024-07-15", view.EndDate.Format("2006-01-02"))
	assert.Equal(t, "Rina Mentor", view.MentorName)
	assert.Equal(t, "Sari Mentee", view.MenteeName)
	assert.Equal(t, 1, currentMentees(t, f.store, "1"))
	assert.Equal(t, uint64(1), f.metrics.Snapshot().ConnectionsCreated)

	view, err = f.svc.Create(context.Background(), dto.CreateConnectionRequest{MentorID: "1", MenteeID: "6", StartDate: "2024-01-01"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), view.EndDate)
}

func TestConnectionCreateExplicitEndDate(t *testing.T) {
	f := newConnectionFixture(t, 3)
	end := "2024-03-01"

	view, err := f.svc.Create(context.Background(), dto.CreateConnectionRequest{MentorID: "1", MenteeID: "5", StartDate: "2024-01-15T09:00:00Z", EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), view.EndDate)
}

func TestConnectionCreateValidation(t *testing.T) {
	f := newConnectionFixture(t, 3)
	before := "2023-12-31"
	garbage := "soon"

	cases := map[string]dto.CreateConnectionRequest{
		"missing mentor":     {MenteeID: "5", StartDate: "2024-01-01"},
		"self match":         {MentorID: "1", MenteeID: "1", StartDate: "2024-01-01"},
		"bad start":          {MentorID: "1", MenteeID: "5", StartDate: "01/02/2024"},
		"end before start":   {MentorID: "1", MenteeID: "5", StartDate: "2024-01-01", EndDate: &before},
		"unparseable end":    {MentorID: "1", MenteeID: "5", StartDate: "2024-01-01", EndDate: &garbage},
		"missing start date": {MentorID: "1", MenteeID: "5"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
		})
	}
	assert.Equal(t, 0, currentMentees(t, f.store, "1"))
}

func TestConnectionCreateCapacity(t *testing.T) {
	f := newConnectionFixture(t, 1)
	f.create(t, "1", "5")

	_, err := f.svc.Create(context.Background(), dto.CreateConnectionRequest{MentorID: "1", MenteeID: "6", StartDate: "2024-01-01"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, errorCode(err))
	assert.Equal(t, 409, appErrors.FromError(err).Status)
}

func TestConnectionCreateUnknownMentor(t *testing.T) {
	f := newConnectionFixture(t, 1)

	_, err := f.svc.Create(context.Background(), dto.CreateConnectionRequest{MentorID: "5", MenteeID: "6", StartDate: "2024-01-01"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}

func TestConnectionCreateConcurrentRespectsCapacity(t *testing.T) {
	f := newConnectionFixture(t, 2)
	mentees := []string{"5", "6", "7", "5", "6", "7", "5", "6"}

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for _, mentee := range mentees {
		wg.Add(1)
		go func(mentee string) {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), dto.CreateConnectionRequest{MentorID: "1", MenteeID: mentee, StartDate: "2024-01-01"})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(mentee)
	}
	wg.Wait()

	assert.Equal(t, 2, created)
	assert.Equal(t, 2, currentMentees(t, f.store, "1"))
}

func TestConnectionCreateIdempotent(t *testing.T) {
	f := newConnectionFixture(t, 3)
	req := dto.CreateConnectionRequest{MentorID: "1", MenteeID: "5", StartDate: "2024-01-01", IdempotencyKey: "retry-1"}

	first, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	second, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, currentMentees(t, f.store, "1"))
}

func TestConnectionCreateFromRequest(t *testing.T) {
	f := newConnectionFixture(t, 3)
	ctx := context.Background()
	request := &models.MenteeRequest{AlumniID: "5", RequestedSpecializations: []string{"Data"}, Status: models.MenteeRequestPending}
	require.NoError(t, f.store.Requests().Create(ctx, request))

	view, err := f.svc.Create(ctx, dto.CreateConnectionRequest{MentorID: "1", MenteeID: "5", StartDate: "2024-01-01", RequestID: &request.ID})
	require.NoError(t, err)
	require.NotNil(t, view.RequestID)
	assert.Equal(t, request.ID, *view.RequestID)

	stored, err := f.store.Requests().FindByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MenteeRequestMatched, stored.Status)

	_, err = f.svc.Create(ctx, dto.CreateConnectionRequest{MentorID: "2", MenteeID: "5", StartDate: "2024-01-01", RequestID: &request.ID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStateTransition.Code, errorCode(err))
	assert.Equal(t, 0, currentMentees(t, f.store, "2"))
}

func TestConnectionCreateRequestOwnership(t *testing.T) {
	f := newConnectionFixture(t, 3)
	ctx := context.Background()
	request := &models.MenteeRequest{AlumniID: "6", RequestedSpecializations: []string{"Data"}, Status: models.MenteeRequestPending}
	require.NoError(t, f.store.Requests().Create(ctx, request))

	_, err := f.svc.Create(ctx, dto.CreateConnectionRequest{MentorID: "1", MenteeID: "5", StartDate: "2024-01-01", RequestID: &request.ID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	missing := "nope"
	_, err = f.svc.Create(ctx, dto.CreateConnectionRequest{MentorID: "1", MenteeID: "5", StartDate: "2024-01-01", RequestID: &missing})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}

func TestConnectionTransitions(t *testing.T) {
	f := newConnectionFixture(t, 3)
	conn := f.create(t, "1", "5")

	view, err := f.transition(t, conn.ID, models.ConnectionActive)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionActive, view.Status)

	_, err = f.transition(t, conn.ID, models.ConnectionPending)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStateTransition.Code, errorCode(err))

	view, err = f.transition(t, conn.ID, models.ConnectionPaused)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionPaused, view.Status)

	view, err = f.transition(t, conn.ID, models.ConnectionActive)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionActive, view.Status)
	assert.Equal(t, uint64(3), f.metrics.Snapshot().Transitions)
}

func TestConnectionTerminalRejectsEveryChange(t *testing.T) {
	for _, terminal := range []models.ConnectionStatus{models.ConnectionCompleted, models.ConnectionCancelled} {
		t.Run(string(terminal), func(t *testing.T) {
			f := newConnectionFixture(t, 3)
			conn := f.create(t, "1", "5")
			_, err := f.transition(t, conn.ID, models.ConnectionActive)
			require.NoError(t, err)
			_, err = f.transition(t, conn.ID, terminal)
			require.NoError(t, err)
			assert.Equal(t, 0, currentMentees(t, f.store, "1"))

			for _, target := range []models.ConnectionStatus{
				models.ConnectionPending, models.ConnectionActive, models.ConnectionPaused,
				models.ConnectionCompleted, models.ConnectionCancelled,
			} {
				_, err := f.transition(t, conn.ID, target)
				require.Error(t, err, "target %s", target)
				assert.Equal(t, appErrors.ErrInvalidStateTransition.Code, errorCode(err))
			}

			notes := "late note"
			_, err = f.svc.Update(context.Background(), conn.ID, dto.UpdateConnectionRequest{Notes: &notes})
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrInvalidStateTransition.Code, errorCode(err))
		})
	}
}

func TestConnectionCompletedFromPendingRejected(t *testing.T) {
	f := newConnectionFixture(t, 3)
	conn := f.create(t, "1", "5")

	_, err := f.transition(t, conn.ID, models.ConnectionCompleted)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidStateTransition.Code, errorCode(err))

	view, err := f.transition(t, conn.ID, models.ConnectionCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionCancelled, view.Status)
}

func TestConnectionUpdateNotesAndEndDate(t *testing.T) {
	f := newConnectionFixture(t, 3)
	conn := f.create(t, "1", "5")
	notes := "  weekly on Tuesdays "
	end := "2024-05-01"

	view, err := f.svc.Update(context.Background(), conn.ID, dto.UpdateConnectionRequest{Notes: &notes, EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, "weekly on Tuesdays", view.Notes)
	assert.Equal(t, "2024-05-01", view.EndDate.Format("2006-01-02"))
	assert.Equal(t, models.ConnectionPending, view.Status)

	early := "2023-06-01"
	_, err = f.svc.Update(context.Background(), conn.ID, dto.UpdateConnectionRequest{EndDate: &early})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
}

func TestConnectionUpdatePrecondition(t *testing.T) {
	f := newConnectionFixture(t, 3)
	conn := f.create(t, "1", "5")
	stale := conn.UpdatedAt.Add(-time.Minute)
	active := models.ConnectionActive

	_, err := f.svc.Update(context.Background(), conn.ID, dto.UpdateConnectionRequest{Status: &active, ExpectedUpdatedAt: &stale})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, errorCode(err))
	assert.Equal(t, 412, appErrors.FromError(err).Status)

	current := conn.UpdatedAt
	view, err := f.svc.Update(context.Background(), conn.ID, dto.UpdateConnectionRequest{Status: &active, ExpectedUpdatedAt: &current})
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionActive, view.Status)
}

func TestConnectionUpdateUnknownStatusAndMissing(t *testing.T) {
	f := newConnectionFixture(t, 3)
	conn := f.create(t, "1", "5")

	bogus := models.ConnectionStatus("archived")
	_, err := f.svc.Update(context.Background(), conn.ID, dto.UpdateConnectionRequest{Status: &bogus})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	active := models.ConnectionActive
	_, err = f.svc.Update(context.Background(), "missing", dto.UpdateConnectionRequest{Status: &active})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}

func TestConnectionDeleteAndGet(t *testing.T) {
	f := newConnectionFixture(t, 3)
	conn := f.create(t, "1", "5")

	got, err := f.svc.Get(context.Background(), conn.ID)
	require.NoError(t, err)
	assert.Equal(t, conn.ID, got.ID)

	require.NoError(t, f.svc.Delete(context.Background(), conn.ID))
	assert.Equal(t, 0, currentMentees(t, f.store, "1"))

	_, err = f.svc.Get(context.Background(), conn.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))

	err = f.svc.Delete(context.Background(), conn.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}

func TestConnectionListByStatus(t *testing.T) {
	f := newConnectionFixture(t, 5)
	var ids []string
	for _, pair := range [][2]string{{"1", "5"}, {"1", "6"}, {"1", "7"}, {"2", "5"}, {"2", "6"}} {
		ids = append(ids, f.create(t, pair[0], pair[1]).ID)
	}
	for _, id := range ids[:2] {
		_, err := f.transition(t, id, models.ConnectionActive)
		require.NoError(t, err)
	}
	_, err := f.transition(t, ids[2], models.ConnectionCancelled)
	require.NoError(t, err)

	items, pagination, err := f.svc.List(context.Background(), dto.ConnectionQuery{Status: models.ConnectionActive, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 2, pagination.TotalCount)
	for _, item := range items {
		assert.Equal(t, models.ConnectionActive, item.Status)
	}

	items, pagination, err = f.svc.List(context.Background(), dto.ConnectionQuery{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 5, pagination.TotalCount)

	items, _, err = f.svc.List(context.Background(), dto.ConnectionQuery{Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, items)

	_, _, err = f.svc.List(context.Background(), dto.ConnectionQuery{Status: "archived"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
}

func TestConnectionListSearch(t *testing.T) {
	f := newConnectionFixture(t, 5)
	f.create(t, "1", "5")
	f.create(t, "2", "6")

	items, _, err := f.svc.List(context.Background(), dto.ConnectionQuery{Search: "bayu"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "6", items[0].MenteeID)
	assert.Equal(t, "Tono Mentor", items[0].MentorName)

	items, pagination, err := f.svc.List(context.Background(), dto.ConnectionQuery{Search: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, pagination.TotalCount)
}

func TestConnectionListFarPageIsEmpty(t *testing.T) {
	f := newConnectionFixture(t, 5)
	f.create(t, "1", "5")

	items, pagination, err := f.svc.List(context.Background(), dto.ConnectionQuery{Page: math.MaxInt / 10, PageSize: 20})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 20, pagination.PageSize)
}

func TestConnectionListSearchWithoutDirectory(t *testing.T) {
	f := newConnectionFixture(t, 5)
	f.create(t, "1", "5")
	svc := NewConnectionService(f.store.Connections(), f.store.Requests(), nil, nil, nil, nil, nil)

	items, pagination, err := svc.List(context.Background(), dto.ConnectionQuery{Search: "rina"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, pagination.TotalCount)

	items, _, err = svc.List(context.Background(), dto.ConnectionQuery{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Empty(t, items[0].MentorName)
}

func TestConnectionListHonoursCancellation(t *testing.T) {
	f := newConnectionFixture(t, 5)
	f.create(t, "1", "5")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := f.svc.List(ctx, dto.ConnectionQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}
