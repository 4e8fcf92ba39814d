package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/alumni-mentorship-api/internal/models"
)

// AlumniRepository reads the alumni directory table.
type AlumniRepository struct {
	db *sqlx.DB
}

// NewAlumniRepository constructs an AlumniRepository.
func NewAlumniRepository(db *sqlx.DB) *AlumniRepository {
	return &AlumniRepository{db: db}
}

// FindByIDs returns the known alumni among ids.
func (r *AlumniRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Alumni, error) {
	result := make(map[string]models.Alumni, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	const query = `SELECT id, full_name, email, graduation_year, degree, current_company, industry FROM alumni WHERE id = ANY($1)`
	var rows []models.Alumni
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find alumni: %w", err)
	}
	for _, a := range rows {
		result[a.ID] = a
	}
	return result, nil
}

// SearchIDs returns ids of alumni whose full name contains term, ignoring case.
func (r *AlumniRepository) SearchIDs(ctx context.Context, term string) ([]string, error) {
	const query = `SELECT id FROM alumni WHERE LOWER(full_name) LIKE $1 ORDER BY full_name ASC`
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, "%"+strings.ToLower(strings.TrimSpace(term))+"%"); err != nil {
		return nil, fmt.Errorf("search alumni: %w", err)
	}
	return ids, nil
}
