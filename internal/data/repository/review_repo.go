package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"companion-booking/internal/data/entity"
	"companion-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type ReviewRepository interface {
	// Create fails with ErrDuplicateReview when the reviewer role already reviewed the booking.
	Create(ctx context.Context, review *entity.Review) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]entity.Review, error)
}

type reviewRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewReviewRepository(db database.PgxIface, log *zap.Logger) ReviewRepository {
	return &reviewRepository{
		db:  db,
		log: log.With(zap.String("repository", "review")),
	}
}

func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	query := `
		INSERT INTO reviews (id, booking_id, reviewer_role, reviewer_id, reviewee_id, rating, aspects, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	aspects, err := json.Marshal(review.Aspects)
	if err != nil {
		return fmt.Errorf("encode review aspects: %w", err)
	}

	_, err = r.db.Exec(ctx, query,
		review.ID,
		review.BookingID,
		review.ReviewerRole,
		review.ReviewerID,
		review.RevieweeID,
		review.Rating,
		aspects,
		review.Comment,
		review.CreatedAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		r.log.Warn("Duplicate review",
			zap.String("booking_id", review.BookingID.String()),
			zap.String("reviewer_role", string(review.ReviewerRole)),
		)
		return fmt.Errorf("create review for booking %s by %s: %w", review.BookingID, review.ReviewerRole, ErrDuplicateReview)
	}
	if err != nil {
		r.log.Error("Failed to create review",
			zap.Error(err),
			zap.String("booking_id", review.BookingID.String()),
			zap.String("reviewer_id", review.ReviewerID.String()),
		)
		return fmt.Errorf("create review for booking %s by %s: %w", review.BookingID, review.ReviewerRole, err)
	}

	return nil
}

func (r *reviewRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]entity.Review, error) {
	query := `
		SELECT id, booking_id, reviewer_role, reviewer_id, reviewee_id, rating, aspects, comment, created_at
		FROM reviews
		WHERE booking_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find reviews by booking ID",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find reviews of booking %s: %w", bookingID, err)
	}
	defer rows.Close()

	reviews := []entity.Review{}
	for rows.Next() {
		var (
			review  entity.Review
			aspects []byte
		)
		err := rows.Scan(
			&review.ID,
			&review.BookingID,
			&review.ReviewerRole,
			&review.ReviewerID,
			&review.RevieweeID,
			&review.Rating,
			&aspects,
			&review.Comment,
			&review.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan review row", zap.Error(err))
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		if err := json.Unmarshal(aspects, &review.Aspects); err != nil {
			return nil, fmt.Errorf("decode review aspects: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}
