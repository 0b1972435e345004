package wire

import (
	"companion-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

// wireBooking mounts under /api/bookings, behind authentication.
func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler) {
	// POST /api/bookings - Request a booking (client)
	r.Post("/", bookingHandler.CreateBooking)

	// GET /api/bookings - Bookings the caller takes part in, in the token's role
	r.Get("/", bookingHandler.ListBookings)

	// GET /api/bookings/{id} - Booking as the caller sees it
	r.Get("/{id}", bookingHandler.GetBooking)

	// POST /api/bookings/{id}/transitions - Apply a lifecycle action
	r.Post("/{id}/transitions", bookingHandler.Transition)

	// GET /api/bookings/{id}/refund-preview - Refund if cancelled now
	r.Get("/{id}/refund-preview", bookingHandler.PreviewRefund)

	// POST /api/bookings/{id}/session/confirm - Caller's half of the session handshake
	r.Post("/{id}/session/confirm", bookingHandler.ConfirmSession)

	// POST /api/bookings/{id}/session/end - End a running session
	r.Post("/{id}/session/end", bookingHandler.EndSession)

	// GET /api/bookings/{id}/events - Status change history
	r.Get("/{id}/events", bookingHandler.ListEvents)
}
