package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"companion-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleReview() *entity.Review {
	return &entity.Review{
		BaseSimple:   entity.BaseSimple{ID: uuid.New(), CreatedAt: time.Date(2026, 3, 4, 13, 0, 0, 0, time.UTC)},
		BookingID:    uuid.New(),
		ReviewerRole: entity.RoleClient,
		ReviewerID:   uuid.New(),
		RevieweeID:   uuid.New(),
		Rating:       4,
		Aspects:      map[string]int{"punctuality": 4, "respectfulness": 5, "communication": 4, "overall": 4},
	}
}

func reviewArgs(r *entity.Review) []any {
	return []any{r.ID, r.BookingID, r.ReviewerRole, r.ReviewerID, r.RevieweeID, r.Rating, pgxmock.AnyArg(), r.Comment, r.CreatedAt}
}

func TestReviewRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReviewRepository(mock, zap.NewNop())
	review := sampleReview()

	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(reviewArgs(review)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), review))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepositoryCreateDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReviewRepository(mock, zap.NewNop())
	review := sampleReview()

	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(reviewArgs(review)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "reviews_booking_id_reviewer_role_key"})

	err = repo.Create(context.Background(), review)
	assert.ErrorIs(t, err, ErrDuplicateReview)
}

func TestReviewRepositoryCreateOtherError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReviewRepository(mock, zap.NewNop())
	boom := errors.New("disk full")
	review := sampleReview()

	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(reviewArgs(review)...).
		WillReturnError(boom)

	err = repo.Create(context.Background(), review)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrDuplicateReview)
}

func TestReviewRepositoryFindByBookingID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReviewRepository(mock, zap.NewNop())
	review := sampleReview()
	aspects, err := json.Marshal(review.Aspects)
	require.NoError(t, err)

	mock.ExpectQuery("FROM reviews").
		WithArgs(review.BookingID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "booking_id", "reviewer_role", "reviewer_id", "reviewee_id", "rating", "aspects", "comment", "created_at",
		}).AddRow(
			review.ID, review.BookingID, review.ReviewerRole, review.ReviewerID, review.RevieweeID,
			review.Rating, aspects, nil, review.CreatedAt,
		))

	got, err := repo.FindByBookingID(context.Background(), review.BookingID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entity.RoleClient, got[0].ReviewerRole)
	assert.Equal(t, 5, got[0].Aspects["respectfulness"])
	assert.Nil(t, got[0].Comment)
}

func TestPaymentRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPaymentRepository(mock, zap.NewNop())
	ref := "chrg_test_1"
	attempt := &entity.PaymentAttempt{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: time.Now()},
		BookingID:  uuid.New(),
		Kind:       entity.PaymentKindCapture,
		Amount:     90,
		Status:     entity.PaymentStatusPaid,
		Reference:  &ref,
	}

	mock.ExpectExec("INSERT INTO payment_attempts").
		WithArgs(attempt.ID, attempt.BookingID, attempt.Kind, attempt.Amount, attempt.Status,
			attempt.Reference, attempt.FailureReason, attempt.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), attempt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryFindByBookingID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEventRepository(mock, zap.NewNop())
	bookingID, actorID := uuid.New(), uuid.New()
	at := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM booking_events").
		WithArgs(bookingID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "booking_id", "version", "ordinal", "name", "from_status", "to_status", "action",
			"actor_role", "actor_id", "occurred_at",
		}).
			AddRow(uuid.New(), bookingID, int64(2), 0, entity.EventBookingStatusChanged,
				entity.BookingStatusRequested, entity.BookingStatusAccepted, "accept",
				entity.RoleProfessional, actorID, at).
			AddRow(uuid.New(), bookingID, int64(2), 1, entity.EventBookingStatusChanged,
				entity.BookingStatusAccepted, entity.BookingStatusPaymentRequired, "accept",
				entity.RoleSystem, uuid.Nil, at))

	events, err := repo.FindByBookingID(context.Background(), bookingID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, entity.BookingStatusAccepted, events[0].To)
	assert.Equal(t, 1, events[1].Ordinal)
	assert.Equal(t, entity.RoleSystem, events[1].ActorRole)
}
