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
	"github.com/lib/pq"

	"github.com/noah-isme/alumni-mentorship-api/internal/models"
)

const connectionColumns = `id, mentor_id, mentee_id, request_id, status, start_date, end_date, notes, idempotency_key, created_at, updated_at`

// ConnectionRepository persists mentorship connections in Postgres.
type ConnectionRepository struct {
	db *sqlx.DB
}

// NewConnectionRepository constructs a ConnectionRepository.
func NewConnectionRepository(db *sqlx.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

// Create reserves a mentor slot, marks the originating request matched and
// inserts the connection inside one transaction.
func (r *ConnectionRepository) Create(ctx context.Context, conn *models.MentorshipConnection) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin connection transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if conn.IdempotencyKey != nil {
		var existing string
		err = tx.GetContext(ctx, &existing, `SELECT id FROM mentorship_connections WHERE idempotency_key = $1`, *conn.IdempotencyKey)
		if err == nil {
			return ErrDuplicateIdempotencyKey
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check idempotency key: %w", err)
		}
	}

	var capacity struct {
		CurrentMentees int `db:"current_mentees"`
		MaxMentees     int `db:"max_mentees"`
	}
	if err = tx.GetContext(ctx, &capacity, `SELECT current_mentees, max_mentees FROM mentor_profiles WHERE alumni_id = $1 FOR UPDATE`, conn.MentorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMentorNotFound
		}
		return fmt.Errorf("lock mentor profile: %w", err)
	}
	if capacity.CurrentMentees >= capacity.MaxMentees {
		return ErrCapacityExceeded
	}

	now := time.Now().UTC()
	if conn.RequestID != nil {
		var status models.MenteeRequestStatus
		if err = tx.GetContext(ctx, &status, `SELECT status FROM mentee_requests WHERE id = $1 FOR UPDATE`, *conn.RequestID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrRequestNotFound
			}
			return fmt.Errorf("lock mentee request: %w", err)
		}
		if status != models.MenteeRequestPending {
			return ErrRequestNotPending
		}
		if _, err = tx.ExecContext(ctx, `UPDATE mentee_requests SET status = $2, updated_at = $3 WHERE id = $1`, *conn.RequestID, models.MenteeRequestMatched, now); err != nil {
			return fmt.Errorf("match mentee request: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, `UPDATE mentor_profiles SET current_mentees = current_mentees + 1, updated_at = $2 WHERE alumni_id = $1`, conn.MentorID, now); err != nil {
		return fmt.Errorf("reserve mentor slot: %w", err)
	}

	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	conn.CreatedAt = now
	conn.UpdatedAt = now
	const insertQuery = `INSERT INTO mentorship_connections (id, mentor_id, mentee_id, request_id, status, start_date, end_date, notes, idempotency_key, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err = tx.ExecContext(ctx, insertQuery, conn.ID, conn.MentorID, conn.MenteeID, conn.RequestID, conn.Status, conn.StartDate, conn.EndDate, conn.Notes, conn.IdempotencyKey, conn.CreatedAt, conn.UpdatedAt); err != nil {
		return fmt.Errorf("insert connection: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit connection: %w", err)
	}
	return nil
}

// FindByID returns a connection by id.
func (r *ConnectionRepository) FindByID(ctx context.Context, id string) (*models.MentorshipConnection, error) {
	query := fmt.Sprintf("SELECT %s FROM mentorship_connections WHERE id = $1", connectionColumns)
	var conn models.MentorshipConnection
	if err := r.db.GetContext(ctx, &conn, query, id); err != nil {
		return nil, err
	}
	return &conn, nil
}

// FindByIdempotencyKey returns the connection created with key.
func (r *ConnectionRepository) FindByIdempotencyKey(ctx context.Context, key string) (*models.MentorshipConnection, error) {
	query := fmt.Sprintf("SELECT %s FROM mentorship_connections WHERE idempotency_key = $1", connectionColumns)
	var conn models.MentorshipConnection
	if err := r.db.GetContext(ctx, &conn, query, key); err != nil {
		return nil, err
	}
	return &conn, nil
}

// Update locks the connection row, applies mutate and writes the result back.
// Entering a terminal status releases the mentor slot in the same transaction.
func (r *ConnectionRepository) Update(ctx context.Context, id string, mutate func(*models.MentorshipConnection) error) (result *models.MentorshipConnection, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin connection transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.MentorshipConnection
	query := fmt.Sprintf("SELECT %s FROM mentorship_connections WHERE id = $1 FOR UPDATE", connectionColumns)
	if err = tx.GetContext(ctx, &current, query, id); err != nil {
		return nil, err
	}

	next := current
	if err = mutate(&next); err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = time.Now().UTC()

	const updateQuery = `UPDATE mentorship_connections SET status = $2, end_date = $3, notes = $4, updated_at = $5 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, next.ID, next.Status, next.EndDate, next.Notes, next.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update connection: %w", err)
	}
	if !current.Status.IsTerminal() && next.Status.IsTerminal() {
		if err = releaseSlot(ctx, tx, current.MentorID, next.UpdatedAt); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit connection: %w", err)
	}
	return &next, nil
}

// Delete removes a connection, releasing its mentor slot when still open.
func (r *ConnectionRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin connection transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current struct {
		MentorID string                  `db:"mentor_id"`
		Status   models.ConnectionStatus `db:"status"`
	}
	if err = tx.GetContext(ctx, &current, `SELECT mentor_id, status FROM mentorship_connections WHERE id = $1 FOR UPDATE`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM mentorship_connections WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete connection: %w", err)
	}
	if !current.Status.IsTerminal() {
		if err = releaseSlot(ctx, tx, current.MentorID, time.Now().UTC()); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit connection: %w", err)
	}
	return nil
}

func releaseSlot(ctx context.Context, tx *sqlx.Tx, mentorID string, now time.Time) error {
	const query = `UPDATE mentor_profiles SET current_mentees = GREATEST(current_mentees - 1, 0), updated_at = $2 WHERE alumni_id = $1`
	if _, err := tx.ExecContext(ctx, query, mentorID, now); err != nil {
		return fmt.Errorf("release mentor slot: %w", err)
	}
	return nil
}

// List returns a filtered, sorted page of connections with the total match count.
func (r *ConnectionRepository) List(ctx context.Context, filter models.ConnectionFilter) ([]models.MentorshipConnection, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.MentorID != "" {
		args = append(args, filter.MentorID)
		conditions = append(conditions, fmt.Sprintf("mentor_id = $%d", len(args)))
	}
	if filter.MenteeID != "" {
		args = append(args, filter.MenteeID)
		conditions = append(conditions, fmt.Sprintf("mentee_id = $%d", len(args)))
	}
	if filter.ParticipantIDs != nil {
		args = append(args, pq.Array(filter.ParticipantIDs))
		conditions = append(conditions, fmt.Sprintf("(mentor_id = ANY($%d) OR mentee_id = ANY($%d))", len(args), len(args)))
	}
	where := strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"created_at": "created_at",
		"updated_at": "updated_at",
		"start_date": "start_date",
		"end_date":   "end_date",
		"status":     "status",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page, size := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM mentorship_connections WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d", connectionColumns, where, column, order, size, offset)
	var items []models.MentorshipConnection
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list connections: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM mentorship_connections WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count connections: %w", err)
	}
	return items, total, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
