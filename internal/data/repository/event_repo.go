package repository

import (
	"context"
	"fmt"

	"companion-booking/internal/data/entity"
	"companion-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// EventRepository reads the append-only status log. Events are written by
// BookingRepository.Save together with the booking.
type EventRepository interface {
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]entity.BookingEvent, error)
}

type eventRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewEventRepository(db database.PgxIface, log *zap.Logger) EventRepository {
	return &eventRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking_event")),
	}
}

func (r *eventRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]entity.BookingEvent, error) {
	query := `
		SELECT id, booking_id, version, ordinal, name, from_status, to_status, action,
		       actor_role, actor_id, occurred_at
		FROM booking_events
		WHERE booking_id = $1
		ORDER BY version, ordinal
	`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find booking events",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find events of booking %s: %w", bookingID, err)
	}
	defer rows.Close()

	events := []entity.BookingEvent{}
	for rows.Next() {
		var e entity.BookingEvent
		err := rows.Scan(
			&e.ID,
			&e.BookingID,
			&e.Version,
			&e.Ordinal,
			&e.Name,
			&e.From,
			&e.To,
			&e.Action,
			&e.ActorRole,
			&e.ActorID,
			&e.At,
		)
		if err != nil {
			r.log.Error("Failed to scan booking event row", zap.Error(err))
			return nil, fmt.Errorf("scan booking event row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking event rows: %w", err)
	}

	return events, nil
}

func insertEvents(ctx context.Context, tx pgx.Tx, events []entity.BookingEvent) error {
	query := `
		INSERT INTO booking_events (id, booking_id, version, ordinal, name, from_status, to_status,
		                            action, actor_role, actor_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for _, e := range events {
		_, err := tx.Exec(ctx, query,
			e.ID,
			e.BookingID,
			e.Version,
			e.Ordinal,
			e.Name,
			e.From,
			e.To,
			e.Action,
			e.ActorRole,
			e.ActorID,
			e.At,
		)
		if err != nil {
			return fmt.Errorf("insert event %s->%s: %w", e.From, e.To, err)
		}
	}
	return nil
}
