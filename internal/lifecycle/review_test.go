package lifecycle

import (
	"testing"
	"time"

	"companion-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientReview(b entity.Booking, at time.Time) ReviewInput {
	return ReviewInput{
		ReviewerRole: entity.RoleClient,
		ReviewerID:   b.ClientID,
		Rating:       4,
		Aspects: map[string]int{
			"punctuality":    5,
			"respectfulness": 4,
			"communication":  4,
			"overall":        4,
		},
		Comment: "lovely afternoon",
		At:      at,
	}
}

func TestReviewWindow(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	p := m.Policy()
	b := driveTo(t, m, entity.BookingStatusCompleted)
	done := *b.CompletedAt

	in := clientReview(b, done.Add(23*time.Hour))
	require.NoError(t, p.CheckReview(b, in, nil))
	stored := NewReview(b, in)
	existing := []entity.Review{stored}

	assert.Equal(t, b.ProfessionalID, stored.RevieweeID)
	assert.Equal(t, b.ClientID, stored.ReviewerID)
	assert.Equal(t, "lovely afternoon", *stored.Comment)
	assert.Equal(t, done.Add(23*time.Hour), stored.CreatedAt)

	late := clientReview(b, done.Add(25*time.Hour))
	assert.ErrorIs(t, p.CheckReview(b, late, existing), ErrReviewWindowExpired)

	dup := clientReview(b, done.Add(time.Hour))
	assert.ErrorIs(t, p.CheckReview(b, dup, existing), ErrReviewAlreadySubmitted)

	// the other side is independent
	pro := ReviewInput{
		ReviewerRole: entity.RoleProfessional,
		ReviewerID:   b.ProfessionalID,
		Rating:       3,
		Aspects: map[string]int{
			"punctuality":     3,
			"professionalism": 3,
			"communication":   4,
			"overall":         3,
		},
		At: done.Add(2 * time.Hour),
	}
	require.NoError(t, p.CheckReview(b, pro, existing))
	assert.Nil(t, NewReview(b, pro).Comment)
	assert.Equal(t, b.ClientID, NewReview(b, pro).RevieweeID)

	assert.ErrorIs(t, p.CheckReview(b, clientReview(b, *b.ReviewDeadline), nil), ErrReviewWindowExpired)
	assert.True(t, ReviewWindowOpen(b, b.ReviewDeadline.Add(-time.Nanosecond)))
	assert.False(t, ReviewWindowOpen(b, *b.ReviewDeadline))
}

func TestReviewRequiresCompletedBooking(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	for _, status := range []entity.BookingStatus{
		entity.BookingStatusRequested,
		entity.BookingStatusConfirmed,
		entity.BookingStatusInProgress,
		entity.BookingStatusCancelled,
	} {
		b := driveTo(t, m, status)
		err := m.Policy().CheckReview(b, clientReview(b, start.Add(time.Hour)), nil)
		assert.ErrorIs(t, err, ErrGuardNotSatisfied, status)
		assert.False(t, ReviewWindowOpen(b, start))
	}
}

func TestReviewerMustBeParticipant(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	b := driveTo(t, m, entity.BookingStatusCompleted)

	in := clientReview(b, *b.CompletedAt)
	in.ReviewerID = uuid.New()
	assert.ErrorIs(t, m.Policy().CheckReview(b, in, nil), ErrUnauthorizedActor)

	in = clientReview(b, *b.CompletedAt)
	in.ReviewerRole = entity.RoleSystem
	assert.ErrorIs(t, m.Policy().CheckReview(b, in, nil), ErrUnauthorizedActor)
}

func TestReviewRatingRules(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	b := driveTo(t, m, entity.BookingStatusCompleted)
	at := b.CompletedAt.Add(time.Hour)

	tests := []struct {
		name    string
		mutate  func(*ReviewInput)
		wantErr bool
	}{
		{"valid", func(*ReviewInput) {}, false},
		{"unrated aspect", func(in *ReviewInput) { in.Aspects["communication"] = 0 }, true},
		{"missing aspect", func(in *ReviewInput) { delete(in.Aspects, "overall") }, true},
		{"aspect from other role", func(in *ReviewInput) {
			delete(in.Aspects, "respectfulness")
			in.Aspects["professionalism"] = 4
		}, true},
		{"aspect out of range", func(in *ReviewInput) { in.Aspects["overall"] = 6 }, true},
		{"rating not the mean", func(in *ReviewInput) { in.Rating = 5 }, true},
		{"mean rounds half up", func(in *ReviewInput) {
			in.Aspects = map[string]int{"punctuality": 4, "respectfulness": 4, "communication": 3, "overall": 3}
			in.Rating = 4
		}, false},
		{"mean rounds down", func(in *ReviewInput) {
			in.Aspects = map[string]int{"punctuality": 2, "respectfulness": 2, "communication": 2, "overall": 3}
			in.Rating = 2
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := clientReview(b, at)
			tt.mutate(&in)
			err := m.Policy().CheckReview(b, in, nil)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
