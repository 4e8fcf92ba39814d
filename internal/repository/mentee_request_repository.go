package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/alumni-mentorship-api/internal/models"
)

const menteeRequestColumns = `id, alumni_id, requested_specializations, career_goals, current_situation, preferred_mentor_industries, time_commitment, status, created_at, updated_at`

// MenteeRequestRepository persists mentee requests in Postgres.
type MenteeRequestRepository struct {
	db *sqlx.DB
}

// NewMenteeRequestRepository constructs a MenteeRequestRepository.
func NewMenteeRequestRepository(db *sqlx.DB) *MenteeRequestRepository {
	return &MenteeRequestRepository{db: db}
}

// Create inserts a request.
func (r *MenteeRequestRepository) Create(ctx context.Context, req *models.MenteeRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	const query = `INSERT INTO mentee_requests (id, alumni_id, requested_specializations, career_goals, current_situation, preferred_mentor_industries, time_commitment, status, created_at, updated_at)
VALUES (:id, :alumni_id, :requested_specializations, :career_goals, :current_situation, :preferred_mentor_industries, :time_commitment, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create mentee request: %w", err)
	}
	return nil
}

// FindByID returns a request by id.
func (r *MenteeRequestRepository) FindByID(ctx context.Context, id string) (*models.MenteeRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM mentee_requests WHERE id = $1", menteeRequestColumns)
	var req models.MenteeRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns a filtered page of requests, newest first.
func (r *MenteeRequestRepository) List(ctx context.Context, filter models.MenteeRequestFilter) ([]models.MenteeRequest, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.AlumniID != "" {
		args = append(args, filter.AlumniID)
		conditions = append(conditions, fmt.Sprintf("alumni_id = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")
	page, size := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM mentee_requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d", menteeRequestColumns, where, size, offset)
	var items []models.MenteeRequest
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list mentee requests: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM mentee_requests WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count mentee requests: %w", err)
	}
	return items, total, nil
}

// UpdateStatus moves a request from one status to another in a single
// conditional update.
func (r *MenteeRequestRepository) UpdateStatus(ctx context.Context, id string, from, to models.MenteeRequestStatus) (*models.MenteeRequest, error) {
	query := fmt.Sprintf(`UPDATE mentee_requests SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2 RETURNING %s`, menteeRequestColumns)
	var req models.MenteeRequest
	err := r.db.GetContext(ctx, &req, query, id, from, to, time.Now().UTC())
	if err == nil {
		return &req, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update mentee request status: %w", err)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM mentee_requests WHERE id = $1", id); err != nil {
		return nil, err
	}
	return nil, ErrRequestNotPending
}
