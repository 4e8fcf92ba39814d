package repository

import (
	"errors"
	"math"
)

// Sentinel errors shared by the memory and Postgres stores. Missing rows are
// reported as sql.ErrNoRows.
var (
	ErrMentorNotFound          = errors.New("mentor profile not found")
	ErrRequestNotFound         = errors.New("mentee request not found")
	ErrCapacityExceeded        = errors.New("mentor capacity exceeded")
	ErrRequestNotPending       = errors.New("mentee request is not pending")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	// keeps (page-1)*size and its end bound inside int
	if maxPage := math.MaxInt / size; page > maxPage {
		page = maxPage
	}
	return page, size
}
