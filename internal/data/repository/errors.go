package repository

import "errors"

var (
	// ErrVersionConflict means another writer saved the booking first.
	ErrVersionConflict = errors.New("booking version conflict")
	// ErrDuplicateReview means the reviewer role already reviewed the booking.
	ErrDuplicateReview = errors.New("duplicate review")
)

const uniqueViolation = "23505"
