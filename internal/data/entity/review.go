package entity

import (
	"github.com/google/uuid"
)

// Review is written once per (booking, reviewer role) and never updated.
type Review struct {
	BaseSimple
	BookingID    uuid.UUID      `db:"booking_id"`
	ReviewerRole Role           `db:"reviewer_role"`
	ReviewerID   uuid.UUID      `db:"reviewer_id"`
	RevieweeID   uuid.UUID      `db:"reviewee_id"`
	Rating       int            `db:"rating"` // 1-5
	Aspects      map[string]int `db:"aspects"`
	Comment      *string        `db:"comment"`
}
