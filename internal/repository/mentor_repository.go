package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/alumni-mentorship-api/internal/models"
)

const mentorColumns = `alumni_id, specializations, industries, years_of_experience, max_mentees, current_mentees, availability, mentorship_type, is_active, created_at, updated_at`

// MentorRepository persists mentor profiles in Postgres.
type MentorRepository struct {
	db *sqlx.DB
}

// NewMentorRepository constructs a MentorRepository.
func NewMentorRepository(db *sqlx.DB) *MentorRepository {
	return &MentorRepository{db: db}
}

// ListAll returns every mentor profile in creation order.
func (r *MentorRepository) ListAll(ctx context.Context) ([]models.MentorProfile, error) {
	query := fmt.Sprintf("SELECT %s FROM mentor_profiles ORDER BY created_at ASC, alumni_id ASC", mentorColumns)
	var mentors []models.MentorProfile
	if err := r.db.SelectContext(ctx, &mentors, query); err != nil {
		return nil, fmt.Errorf("list mentors: %w", err)
	}
	return mentors, nil
}

// List returns a filtered page of mentor profiles.
func (r *MentorRepository) List(ctx context.Context, filter models.MentorFilter) ([]models.MentorProfile, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if filter.Availability != "" {
		args = append(args, filter.Availability)
		conditions = append(conditions, fmt.Sprintf("availability = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")
	page, size := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM mentor_profiles WHERE %s ORDER BY created_at ASC, alumni_id ASC LIMIT %d OFFSET %d", mentorColumns, where, size, offset)
	var mentors []models.MentorProfile
	if err := r.db.SelectContext(ctx, &mentors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list mentors: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM mentor_profiles WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count mentors: %w", err)
	}
	return mentors, total, nil
}

// FindByID returns the mentor profile for an alumni id.
func (r *MentorRepository) FindByID(ctx context.Context, alumniID string) (*models.MentorProfile, error) {
	query := fmt.Sprintf("SELECT %s FROM mentor_profiles WHERE alumni_id = $1", mentorColumns)
	var mentor models.MentorProfile
	if err := r.db.GetContext(ctx, &mentor, query, alumniID); err != nil {
		return nil, err
	}
	return &mentor, nil
}

// Upsert inserts or updates a mentor profile. current_mentees is only written on insert.
func (r *MentorRepository) Upsert(ctx context.Context, mentor *models.MentorProfile) error {
	now := time.Now().UTC()
	if mentor.CreatedAt.IsZero() {
		mentor.CreatedAt = now
	}
	mentor.UpdatedAt = now
	const query = `INSERT INTO mentor_profiles (alumni_id, specializations, industries, years_of_experience, max_mentees, current_mentees, availability, mentorship_type, is_active, created_at, updated_at)
VALUES (:alumni_id, :specializations, :industries, :years_of_experience, :max_mentees, :current_mentees, :availability, :mentorship_type, :is_active, :created_at, :updated_at)
ON CONFLICT (alumni_id) DO UPDATE SET specializations = EXCLUDED.specializations, industries = EXCLUDED.industries,
	years_of_experience = EXCLUDED.years_of_experience, max_mentees = EXCLUDED.max_mentees, availability = EXCLUDED.availability,
	mentorship_type = EXCLUDED.mentorship_type, is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, mentor); err != nil {
		return fmt.Errorf("upsert mentor: %w", err)
	}
	return nil
}

// Deactivate marks a mentor profile inactive.
func (r *MentorRepository) Deactivate(ctx context.Context, alumniID string) error {
	const query = `UPDATE mentor_profiles SET is_active = FALSE, updated_at = $2 WHERE alumni_id = $1`
	res, err := r.db.ExecContext(ctx, query, alumniID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate mentor: %w", err)
	}
	return requireAffected(res)
}
