package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"companion-booking/internal/data/entity"
	"companion-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	// FindByParticipant lists the bookings where userID holds role, newest first.
	FindByParticipant(ctx context.Context, role entity.Role, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByParticipant(ctx context.Context, role entity.Role, userID uuid.UUID) (int64, error)

	// Save writes booking only if the stored version is still expectedVersion,
	// and appends events in the same transaction. A lost race returns ErrVersionConflict.
	Save(ctx context.Context, booking *entity.Booking, expectedVersion int64, events []entity.BookingEvent) error

	// FindSettleCandidates returns bookings whose request expired before
	// requestedBefore or whose session was scheduled to end before endedBefore.
	FindSettleCandidates(ctx context.Context, requestedBefore, endedBefore time.Time, limit int) ([]*entity.Booking, error)
}

const bookingColumns = `id, client_id, professional_id, scheduled_start, duration_hours,
		total_amount, platform_fee_amount, session_amount, currency, status, payment_status,
		payment_reference, cancellation_deadline, refund_amount, cancelled_at, cancelled_by,
		cancellation_reason, started_at, completed_at, review_deadline, identity_checks,
		meetup_checks, handshake, version, created_at, updated_at`

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
	`

	identity, meetup, handshake, err := encodeChecks(booking)
	if err != nil {
		return fmt.Errorf("create booking %s: %w", booking.ID, err)
	}

	_, err = r.db.Exec(ctx, query,
		booking.ID,
		booking.ClientID,
		booking.ProfessionalID,
		booking.ScheduledStart,
		booking.DurationHours,
		booking.TotalAmount,
		booking.PlatformFeeAmount,
		booking.SessionAmount,
		booking.Currency,
		booking.Status,
		booking.PaymentStatus,
		booking.PaymentReference,
		booking.CancellationDeadline,
		booking.RefundAmount,
		booking.CancelledAt,
		booking.CancelledBy,
		booking.CancellationReason,
		booking.StartedAt,
		booking.CompletedAt,
		booking.ReviewDeadline,
		identity,
		meetup,
		handshake,
		booking.Version,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("client_id", booking.ClientID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.ID, err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id, err)
	}

	return booking, nil
}

func participantColumn(role entity.Role) (string, error) {
	switch role {
	case entity.RoleClient:
		return "client_id", nil
	case entity.RoleProfessional:
		return "professional_id", nil
	}
	return "", fmt.Errorf("no participant column for role %q", role)
}

func (r *bookingRepository) FindByParticipant(ctx context.Context, role entity.Role, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	column, err := participantColumn(role)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE ` + column + ` = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by participant",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("role", string(role)),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find bookings by participant %s: %w", userID, err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *bookingRepository) CountByParticipant(ctx context.Context, role entity.Role, userID uuid.UUID) (int64, error) {
	column, err := participantColumn(role)
	if err != nil {
		return 0, err
	}
	query := `SELECT COUNT(*) FROM bookings WHERE ` + column + ` = $1`

	var count int64
	err = r.db.QueryRow(ctx, query, userID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count bookings by participant",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return 0, fmt.Errorf("count bookings by participant %s: %w", userID, err)
	}

	return count, nil
}

func (r *bookingRepository) Save(ctx context.Context, booking *entity.Booking, expectedVersion int64, events []entity.BookingEvent) error {
	query := `
		UPDATE bookings
		SET status = $3, payment_status = $4, payment_reference = $5, refund_amount = $6,
		    cancelled_at = $7, cancelled_by = $8, cancellation_reason = $9, started_at = $10,
		    completed_at = $11, review_deadline = $12, identity_checks = $13, meetup_checks = $14,
		    handshake = $15, version = $16, updated_at = $17
		WHERE id = $1 AND version = $2
	`

	identity, meetup, handshake, err := encodeChecks(booking)
	if err != nil {
		return fmt.Errorf("save booking %s: %w", booking.ID, err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin transaction", zap.Error(err), zap.String("booking_id", booking.ID.String()))
		return fmt.Errorf("begin save booking %s: %w", booking.ID, err)
	}

	tag, err := tx.Exec(ctx, query,
		booking.ID,
		expectedVersion,
		booking.Status,
		booking.PaymentStatus,
		booking.PaymentReference,
		booking.RefundAmount,
		booking.CancelledAt,
		booking.CancelledBy,
		booking.CancellationReason,
		booking.StartedAt,
		booking.CompletedAt,
		booking.ReviewDeadline,
		identity,
		meetup,
		handshake,
		booking.Version,
		booking.UpdatedAt,
	)
	if err != nil {
		_ = tx.Rollback(ctx)
		r.log.Error("Failed to update booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.Int64("expected_version", expectedVersion),
		)
		return fmt.Errorf("save booking %s: %w", booking.ID, err)
	}
	if tag.RowsAffected() == 0 {
		_ = tx.Rollback(ctx)
		r.log.Warn("Booking version moved",
			zap.String("booking_id", booking.ID.String()),
			zap.Int64("expected_version", expectedVersion),
		)
		return fmt.Errorf("save booking %s at version %d: %w", booking.ID, expectedVersion, ErrVersionConflict)
	}

	if err := insertEvents(ctx, tx, events); err != nil {
		_ = tx.Rollback(ctx)
		r.log.Error("Failed to append booking events",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return fmt.Errorf("save booking %s: %w", booking.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Failed to commit booking", zap.Error(err), zap.String("booking_id", booking.ID.String()))
		return fmt.Errorf("commit booking %s: %w", booking.ID, err)
	}

	return nil
}

func (r *bookingRepository) FindSettleCandidates(ctx context.Context, requestedBefore, endedBefore time.Time, limit int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE (status = 'requested' AND created_at <= $1)
		   OR (status = 'in_progress' AND scheduled_start + make_interval(hours => duration_hours) <= $2)
		ORDER BY created_at
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, requestedBefore, endedBefore, limit)
	if err != nil {
		r.log.Error("Failed to find settle candidates", zap.Error(err))
		return nil, fmt.Errorf("find settle candidates: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *bookingRepository) collect(rows pgx.Rows) ([]*entity.Booking, error) {
	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		r.log.Error("Failed to iterate booking rows", zap.Error(err))
		return nil, fmt.Errorf("iterate booking rows: %w", err)
	}

	return bookings, nil
}

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var (
		b                       entity.Booking
		identity, meetup, shake []byte
	)
	err := row.Scan(
		&b.ID,
		&b.ClientID,
		&b.ProfessionalID,
		&b.ScheduledStart,
		&b.DurationHours,
		&b.TotalAmount,
		&b.PlatformFeeAmount,
		&b.SessionAmount,
		&b.Currency,
		&b.Status,
		&b.PaymentStatus,
		&b.PaymentReference,
		&b.CancellationDeadline,
		&b.RefundAmount,
		&b.CancelledAt,
		&b.CancelledBy,
		&b.CancellationReason,
		&b.StartedAt,
		&b.CompletedAt,
		&b.ReviewDeadline,
		&identity,
		&meetup,
		&shake,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(identity) > 0 {
		if err := json.Unmarshal(identity, &b.IdentityChecks); err != nil {
			return nil, fmt.Errorf("decode identity checks: %w", err)
		}
	}
	if len(meetup) > 0 {
		if err := json.Unmarshal(meetup, &b.MeetupChecks); err != nil {
			return nil, fmt.Errorf("decode meetup checks: %w", err)
		}
	}
	if len(shake) > 0 {
		var h entity.PartyConfirmations
		if err := json.Unmarshal(shake, &h); err != nil {
			return nil, fmt.Errorf("decode handshake: %w", err)
		}
		b.Handshake = &h
	}

	return &b, nil
}

// encodeChecks renders the jsonb columns. A nil handshake stays SQL NULL.
func encodeChecks(b *entity.Booking) (identity, meetup, handshake []byte, err error) {
	if identity, err = json.Marshal(b.IdentityChecks); err != nil {
		return nil, nil, nil, fmt.Errorf("encode identity checks: %w", err)
	}
	if meetup, err = json.Marshal(b.MeetupChecks); err != nil {
		return nil, nil, nil, fmt.Errorf("encode meetup checks: %w", err)
	}
	if b.Handshake != nil {
		if handshake, err = json.Marshal(b.Handshake); err != nil {
			return nil, nil, nil, fmt.Errorf("encode handshake: %w", err)
		}
	}
	return identity, meetup, handshake, nil
}
