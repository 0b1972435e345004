package repository

import (
	"context"
	"fmt"

	"companion-booking/internal/data/entity"
	"companion-booking/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentRepository keeps a record of every gateway call, including failures.
type PaymentRepository interface {
	Create(ctx context.Context, attempt *entity.PaymentAttempt) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]entity.PaymentAttempt, error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

func (r *paymentRepository) Create(ctx context.Context, attempt *entity.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (id, booking_id, kind, amount, status, reference, failure_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		attempt.ID,
		attempt.BookingID,
		attempt.Kind,
		attempt.Amount,
		attempt.Status,
		attempt.Reference,
		attempt.FailureReason,
		attempt.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to record payment attempt",
			zap.Error(err),
			zap.String("booking_id", attempt.BookingID.String()),
			zap.String("kind", string(attempt.Kind)),
		)
		return fmt.Errorf("record %s for booking %s: %w", attempt.Kind, attempt.BookingID, err)
	}

	return nil
}

func (r *paymentRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]entity.PaymentAttempt, error) {
	query := `
		SELECT id, booking_id, kind, amount, status, reference, failure_reason, created_at
		FROM payment_attempts
		WHERE booking_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find payment attempts",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find payment attempts of booking %s: %w", bookingID, err)
	}
	defer rows.Close()

	attempts := []entity.PaymentAttempt{}
	for rows.Next() {
		var a entity.PaymentAttempt
		err := rows.Scan(
			&a.ID,
			&a.BookingID,
			&a.Kind,
			&a.Amount,
			&a.Status,
			&a.Reference,
			&a.FailureReason,
			&a.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan payment attempt row", zap.Error(err))
			return nil, fmt.Errorf("scan payment attempt row: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment attempt rows: %w", err)
	}

	return attempts, nil
}
