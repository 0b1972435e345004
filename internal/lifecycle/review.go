package lifecycle

import (
	"fmt"
	"math"
	"time"

	"companion-booking/internal/data/entity"

	"github.com/google/uuid"
)

// ReviewInput is a reviewer's submission before it becomes a Review.
type ReviewInput struct {
	ReviewerRole entity.Role
	ReviewerID   uuid.UUID
	Rating       int
	Aspects      map[string]int
	Comment      string
	At           time.Time
}

// CheckReview decides whether in may be stored for b. existing holds the
// reviews already stored for the booking.
func (p Policy) CheckReview(b entity.Booking, in ReviewInput, existing []entity.Review) error {
	if !in.ReviewerRole.IsParticipant() || in.ReviewerID != b.ParticipantID(in.ReviewerRole) {
		return fmt.Errorf("%w: reviewer is not this booking's %s", ErrUnauthorizedActor, in.ReviewerRole)
	}
	if b.Status != entity.BookingStatusCompleted || b.ReviewDeadline == nil {
		return fmt.Errorf("%w: booking is %s, reviews open once it is completed", ErrGuardNotSatisfied, b.Status)
	}
	if !in.At.Before(*b.ReviewDeadline) {
		return fmt.Errorf("%w: window closed at %s", ErrReviewWindowExpired, b.ReviewDeadline.Format(time.RFC3339))
	}
	for _, r := range existing {
		if r.BookingID == b.ID && r.ReviewerRole == in.ReviewerRole {
			return fmt.Errorf("%w: %s has already reviewed this booking", ErrReviewAlreadySubmitted, in.ReviewerRole)
		}
	}
	return p.checkRating(in)
}

func (p Policy) checkRating(in ReviewInput) error {
	required, ok := p.Aspects[in.ReviewerRole]
	if !ok {
		return fmt.Errorf("%w: no aspects configured for %s", ErrInvalidInput, in.ReviewerRole)
	}
	if len(in.Aspects) != len(required) {
		return fmt.Errorf("%w: expected %d aspect ratings, got %d", ErrInvalidInput, len(required), len(in.Aspects))
	}

	sum := 0
	for _, key := range required {
		v, ok := in.Aspects[key]
		if !ok || v == 0 {
			return fmt.Errorf("%w: aspect %q is not rated", ErrInvalidInput, key)
		}
		if v < 1 || v > 5 {
			return fmt.Errorf("%w: aspect %q must be between 1 and 5", ErrInvalidInput, key)
		}
		sum += v
	}

	want := int(math.Round(float64(sum) / float64(len(required))))
	if in.Rating != want {
		return fmt.Errorf("%w: rating %d does not match aspect average %d", ErrInvalidInput, in.Rating, want)
	}
	return nil
}

// NewReview builds the stored review for an input that passed CheckReview.
func NewReview(b entity.Booking, in ReviewInput) entity.Review {
	aspects := make(map[string]int, len(in.Aspects))
	for k, v := range in.Aspects {
		aspects[k] = v
	}
	r := entity.Review{
		BaseSimple:   entity.BaseSimple{ID: uuid.New(), CreatedAt: in.At},
		BookingID:    b.ID,
		ReviewerRole: in.ReviewerRole,
		ReviewerID:   in.ReviewerID,
		RevieweeID:   b.ParticipantID(entity.Counterpart(in.ReviewerRole)),
		Rating:       in.Rating,
		Aspects:      aspects,
	}
	if in.Comment != "" {
		comment := in.Comment
		r.Comment = &comment
	}
	return r
}
