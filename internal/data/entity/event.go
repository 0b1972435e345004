package entity

import (
	"time"

	"github.com/google/uuid"
)

const EventBookingStatusChanged = "booking.status_changed"

// BookingEvent is one entry of the append-only audit log. Every status
// change produces exactly one.
type BookingEvent struct {
	ID        uuid.UUID     `db:"id"`
	BookingID uuid.UUID     `db:"booking_id"`
	Version   int64         `db:"version"` // booking version committed with the event
	Ordinal   int           `db:"ordinal"` // position within that commit
	Name      string        `db:"name"`
	From      BookingStatus `db:"from_status"`
	To        BookingStatus `db:"to_status"`
	Action    string        `db:"action"`
	ActorRole Role          `db:"actor_role"`
	ActorID   uuid.UUID     `db:"actor_id"`
	At        time.Time     `db:"occurred_at"`
}
