package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/noah-isme/alumni-mentorship-api/internal/models"
)

// MemoryStore keeps every mentorship record in process memory behind one lock.
// Each accessor returns a repository view sharing that lock, so cross-entity
// mutations (capacity reservation, request matching) are atomic.
type MemoryStore struct {
	mu  sync.RWMutex
	now func() time.Time

	alumni       map[string]models.Alumni
	alumniOrder  []string
	mentors      map[string]*models.MentorProfile
	mentorOrder  []string
	requests     map[string]*models.MenteeRequest
	requestOrder []string
	connections  map[string]*models.MentorshipConnection
	connOrder    []string
	idempotency  map[string]string
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }}
	s.Reset()
	return s
}

// WithClock overrides the timestamp source.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Reset drops all records.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alumni = make(map[string]models.Alumni)
	s.alumniOrder = nil
	s.mentors = make(map[string]*models.MentorProfile)
	s.mentorOrder = nil
	s.requests = make(map[string]*models.MenteeRequest)
	s.requestOrder = nil
	s.connections = make(map[string]*models.MentorshipConnection)
	s.connOrder = nil
	s.idempotency = make(map[string]string)
}

// Alumni returns the alumni directory view.
func (s *MemoryStore) Alumni() *MemoryAlumniRepository { return &MemoryAlumniRepository{s: s} }

// Mentors returns the mentor profile view.
func (s *MemoryStore) Mentors() *MemoryMentorRepository { return &MemoryMentorRepository{s: s} }

// Requests returns the mentee request view.
func (s *MemoryStore) Requests() *MemoryMenteeRequestRepository {
	return &MemoryMenteeRequestRepository{s: s}
}

// Connections returns the mentorship connection view.
func (s *MemoryStore) Connections() *MemoryConnectionRepository {
	return &MemoryConnectionRepository{s: s}
}

func cloneStrings(in pq.StringArray) pq.StringArray {
	if in == nil {
		return nil
	}
	out := make(pq.StringArray, len(in))
	copy(out, in)
	return out
}

func cloneMentor(m *models.MentorProfile) models.MentorProfile {
	out := *m
	out.Specializations = cloneStrings(m.Specializations)
	out.Industries = cloneStrings(m.Industries)
	return out
}

func cloneRequest(r *models.MenteeRequest) models.MenteeRequest {
	out := *r
	out.RequestedSpecializations = cloneStrings(r.RequestedSpecializations)
	out.PreferredMentorIndustries = cloneStrings(r.PreferredMentorIndustries)
	return out
}

func cloneConnection(c *models.MentorshipConnection) models.MentorshipConnection {
	out := *c
	if c.RequestID != nil {
		id := *c.RequestID
		out.RequestID = &id
	}
	if c.IdempotencyKey != nil {
		key := *c.IdempotencyKey
		out.IdempotencyKey = &key
	}
	return out
}

// MemoryAlumniRepository resolves alumni from the memory store.
type MemoryAlumniRepository struct{ s *MemoryStore }

// Upsert stores an alumni record, assigning an id when empty.
func (r *MemoryAlumniRepository) Upsert(ctx context.Context, alumni *models.Alumni) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if alumni.ID == "" {
		alumni.ID = uuid.NewString()
	}
	if _, ok := r.s.alumni[alumni.ID]; !ok {
		r.s.alumniOrder = append(r.s.alumniOrder, alumni.ID)
	}
	r.s.alumni[alumni.ID] = *alumni
	return nil
}

// FindByIDs returns the known alumni among ids.
func (r *MemoryAlumniRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Alumni, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make(map[string]models.Alumni, len(ids))
	for _, id := range ids {
		if a, ok := r.s.alumni[id]; ok {
			result[id] = a
		}
	}
	return result, nil
}

// SearchIDs returns ids of alumni whose full name contains term, ignoring case.
func (r *MemoryAlumniRepository) SearchIDs(ctx context.Context, term string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(term))
	ids := make([]string, 0)
	for _, id := range r.s.alumniOrder {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.Contains(strings.ToLower(r.s.alumni[id].FullName), needle) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// MemoryMentorRepository manages mentor profiles in the memory store.
type MemoryMentorRepository struct{ s *MemoryStore }

// ListAll returns every mentor profile in insertion order.
func (r *MemoryMentorRepository) ListAll(ctx context.Context) ([]models.MentorProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mentors := make([]models.MentorProfile, 0, len(r.s.mentorOrder))
	for _, id := range r.s.mentorOrder {
		mentors = append(mentors, cloneMentor(r.s.mentors[id]))
	}
	return mentors, nil
}

// List returns a filtered page of mentor profiles.
func (r *MemoryMentorRepository) List(ctx context.Context, filter models.MentorFilter) ([]models.MentorProfile, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	matched := make([]models.MentorProfile, 0)
	for _, id := range r.s.mentorOrder {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		m := r.s.mentors[id]
		if filter.ActiveOnly && !m.IsActive {
			continue
		}
		if filter.Availability != "" && m.Availability != filter.Availability {
			continue
		}
		matched = append(matched, cloneMentor(m))
	}
	page, size := normalizePage(filter.Page, filter.PageSize)
	return paginate(matched, page, size), len(matched), nil
}

// FindByID returns the mentor profile for an alumni id.
func (r *MemoryMentorRepository) FindByID(ctx context.Context, alumniID string) (*models.MentorProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.mentors[alumniID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := cloneMentor(m)
	return &out, nil
}

// Upsert inserts or replaces a mentor profile. CurrentMentees is owned by the
// connection lifecycle and kept from the stored profile on update.
func (r *MemoryMentorRepository) Upsert(ctx context.Context, mentor *models.MentorProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	if existing, ok := r.s.mentors[mentor.AlumniID]; ok {
		mentor.CreatedAt = existing.CreatedAt
		mentor.CurrentMentees = existing.CurrentMentees
	} else {
		if mentor.CreatedAt.IsZero() {
			mentor.CreatedAt = now
		}
		r.s.mentorOrder = append(r.s.mentorOrder, mentor.AlumniID)
	}
	mentor.UpdatedAt = now
	stored := cloneMentor(mentor)
	r.s.mentors[mentor.AlumniID] = &stored
	return nil
}

// Deactivate marks a mentor profile inactive.
func (r *MemoryMentorRepository) Deactivate(ctx context.Context, alumniID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.mentors[alumniID]
	if !ok {
		return sql.ErrNoRows
	}
	m.IsActive = false
	m.UpdatedAt = r.s.now()
	return nil
}

// MemoryMenteeRequestRepository manages mentee requests in the memory store.
type MemoryMenteeRequestRepository struct{ s *MemoryStore }

// Create stores a new request.
func (r *MemoryMenteeRequestRepository) Create(ctx context.Context, req *models.MenteeRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := r.s.now()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	stored := cloneRequest(req)
	r.s.requests[req.ID] = &stored
	r.s.requestOrder = append(r.s.requestOrder, req.ID)
	return nil
}

// FindByID returns a request by id.
func (r *MemoryMenteeRequestRepository) FindByID(ctx context.Context, id string) (*models.MenteeRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := cloneRequest(req)
	return &out, nil
}

// List returns a filtered page of requests, newest first.
func (r *MemoryMenteeRequestRepository) List(ctx context.Context, filter models.MenteeRequestFilter) ([]models.MenteeRequest, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	matched := make([]models.MenteeRequest, 0)
	for i := len(r.s.requestOrder) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		req := r.s.requests[r.s.requestOrder[i]]
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.AlumniID != "" && req.AlumniID != filter.AlumniID {
			continue
		}
		matched = append(matched, cloneRequest(req))
	}
	page, size := normalizePage(filter.Page, filter.PageSize)
	return paginate(matched, page, size), len(matched), nil
}

// UpdateStatus moves a request from one status to another, failing with
// ErrRequestNotPending when the current status is not from.
func (r *MemoryMenteeRequestRepository) UpdateStatus(ctx context.Context, id string, from, to models.MenteeRequestStatus) (*models.MenteeRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if req.Status != from {
		return nil, ErrRequestNotPending
	}
	req.Status = to
	req.UpdatedAt = r.s.now()
	out := cloneRequest(req)
	return &out, nil
}

// MemoryConnectionRepository manages mentorship connections in the memory store.
type MemoryConnectionRepository struct{ s *MemoryStore }

// Create reserves a mentor slot, marks the originating request matched and
// stores the connection as one atomic step.
func (r *MemoryConnectionRepository) Create(ctx context.Context, conn *models.MentorshipConnection) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if conn.IdempotencyKey != nil {
		if _, ok := r.s.idempotency[*conn.IdempotencyKey]; ok {
			return ErrDuplicateIdempotencyKey
		}
	}
	mentor, ok := r.s.mentors[conn.MentorID]
	if !ok {
		return ErrMentorNotFound
	}
	if !mentor.HasCapacity() {
		return ErrCapacityExceeded
	}
	var req *models.MenteeRequest
	if conn.RequestID != nil {
		req, ok = r.s.requests[*conn.RequestID]
		if !ok {
			return ErrRequestNotFound
		}
		if req.Status != models.MenteeRequestPending {
			return ErrRequestNotPending
		}
	}

	now := r.s.now()
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	conn.CreatedAt = now
	conn.UpdatedAt = now

	mentor.CurrentMentees++
	mentor.UpdatedAt = now
	if req != nil {
		req.Status = models.MenteeRequestMatched
		req.UpdatedAt = now
	}
	stored := cloneConnection(conn)
	r.s.connections[conn.ID] = &stored
	r.s.connOrder = append(r.s.connOrder, conn.ID)
	if conn.IdempotencyKey != nil {
		r.s.idempotency[*conn.IdempotencyKey] = conn.ID
	}
	return nil
}

// FindByID returns a connection by id.
func (r *MemoryConnectionRepository) FindByID(ctx context.Context, id string) (*models.MentorshipConnection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	conn, ok := r.s.connections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := cloneConnection(conn)
	return &out, nil
}

// FindByIdempotencyKey returns the connection created with key.
func (r *MemoryConnectionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*models.MentorshipConnection, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.idempotency[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	conn, ok := r.s.connections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := cloneConnection(conn)
	return &out, nil
}

// Update applies mutate to a copy of the connection under the store lock and
// persists the result when mutate succeeds. Entering a terminal status
// releases the mentor slot.
func (r *MemoryConnectionRepository) Update(ctx context.Context, id string, mutate func(*models.MentorshipConnection) error) (*models.MentorshipConnection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.connections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	next := cloneConnection(current)
	if err := mutate(&next); err != nil {
		return nil, err
	}
	now := r.s.now()
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = now
	if !current.Status.IsTerminal() && next.Status.IsTerminal() {
		r.releaseSlot(current.MentorID, now)
	}
	*current = next
	out := cloneConnection(current)
	return &out, nil
}

// Delete removes a connection, releasing its mentor slot when still open.
func (r *MemoryConnectionRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	conn, ok := r.s.connections[id]
	if !ok {
		return sql.ErrNoRows
	}
	if !conn.Status.IsTerminal() {
		r.releaseSlot(conn.MentorID, r.s.now())
	}
	if conn.IdempotencyKey != nil {
		delete(r.s.idempotency, *conn.IdempotencyKey)
	}
	delete(r.s.connections, id)
	for i, existing := range r.s.connOrder {
		if existing == id {
			r.s.connOrder = append(r.s.connOrder[:i], r.s.connOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryConnectionRepository) releaseSlot(mentorID string, now time.Time) {
	mentor, ok := r.s.mentors[mentorID]
	if !ok {
		return
	}
	if mentor.CurrentMentees > 0 {
		mentor.CurrentMentees--
	}
	mentor.UpdatedAt = now
}

var connectionSorters = map[string]func(a, b *models.MentorshipConnection) int{
	"created_at": func(a, b *models.MentorshipConnection) int { return compareTime(a.CreatedAt, b.CreatedAt) },
	"updated_at": func(a, b *models.MentorshipConnection) int { return compareTime(a.UpdatedAt, b.UpdatedAt) },
	"start_date": func(a, b *models.MentorshipConnection) int { return compareTime(a.StartDate, b.StartDate) },
	"end_date":   func(a, b *models.MentorshipConnection) int { return compareTime(a.EndDate, b.EndDate) },
	"status": func(a, b *models.MentorshipConnection) int {
		return strings.Compare(string(a.Status), string(b.Status))
	},
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// List returns a filtered, sorted page of connections with the total match count.
func (r *MemoryConnectionRepository) List(ctx context.Context, filter models.ConnectionFilter) ([]models.MentorshipConnection, int, error) {
	r.s.mu.RLock()
	var participants map[string]struct{}
	if filter.ParticipantIDs != nil {
		participants = make(map[string]struct{}, len(filter.ParticipantIDs))
		for _, id := range filter.ParticipantIDs {
			participants[id] = struct{}{}
		}
	}
	matched := make([]*models.MentorshipConnection, 0)
	for _, id := range r.s.connOrder {
		if err := ctx.Err(); err != nil {
			r.s.mu.RUnlock()
			return nil, 0, err
		}
		conn := r.s.connections[id]
		if filter.Status != "" && conn.Status != filter.Status {
			continue
		}
		if filter.MentorID != "" && conn.MentorID != filter.MentorID {
			continue
		}
		if filter.MenteeID != "" && conn.MenteeID != filter.MenteeID {
			continue
		}
		if participants != nil {
			_, mentor := participants[conn.MentorID]
			_, mentee := participants[conn.MenteeID]
			if !mentor && !mentee {
				continue
			}
		}
		c := cloneConnection(conn)
		matched = append(matched, &c)
	}
	r.s.mu.RUnlock()

	cmp, ok := connectionSorters[filter.SortBy]
	if !ok {
		cmp = connectionSorters["created_at"]
	}
	desc := !strings.EqualFold(filter.SortOrder, "ASC")
	sort.SliceStable(matched, func(i, j int) bool {
		if desc {
			return cmp(matched[i], matched[j]) > 0
		}
		return cmp(matched[i], matched[j]) < 0
	})

	page, size := normalizePage(filter.Page, filter.PageSize)
	window := paginate(matched, page, size)
	items := make([]models.MentorshipConnection, 0, len(window))
	for _, c := range window {
		items = append(items, *c)
	}
	return items, len(matched), nil
}

func paginate[T any](items []T, page, size int) []T {
	if page-1 >= (len(items)+size-1)/size {
		return []T{}
	}
	start := (page - 1) * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
