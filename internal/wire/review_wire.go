package wire

import (
	"companion-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireReview(r chi.Router, reviewHandler *adaptor.ReviewHandler) {
	// POST /api/bookings/{id}/reviews - Review the counterpart of a completed booking
	r.Post("/{id}/reviews", reviewHandler.SubmitReview)

	// GET /api/bookings/{id}/reviews - Reviews left on a booking
	r.Get("/{id}/reviews", reviewHandler.ListReviews)
}
