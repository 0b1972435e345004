package response

import (
	"time"

	"companion-booking/internal/data/entity"
)

type ReviewResponse struct {
	ID           string         `json:"id"`
	BookingID    string         `json:"booking_id"`
	ReviewerRole entity.Role    `json:"reviewer_role"`
	ReviewerID   string         `json:"reviewer_id"`
	RevieweeID   string         `json:"reviewee_id"`
	Rating       int            `json:"rating"`
	Aspects      map[string]int `json:"aspects"`
	Comment      *string        `json:"comment,omitempty"`
	SubmittedAt  time.Time      `json:"submitted_at"`
}

// Helper converter
func ReviewToResponse(review *entity.Review) ReviewResponse {
	return ReviewResponse{
		ID:           review.ID.String(),
		BookingID:    review.BookingID.String(),
		ReviewerRole: review.ReviewerRole,
		ReviewerID:   review.ReviewerID.String(),
		RevieweeID:   review.RevieweeID.String(),
		Rating:       review.Rating,
		Aspects:      review.Aspects,
		Comment:      review.Comment,
		SubmittedAt:  review.CreatedAt,
	}
}
