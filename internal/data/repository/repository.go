package repository

import (
	"companion-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Booking BookingRepository
	Event   EventRepository
	Review  ReviewRepository
	Payment PaymentRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Booking: NewBookingRepository(db, log),
		Event:   NewEventRepository(db, log),
		Review:  NewReviewRepository(db, log),
		Payment: NewPaymentRepository(db, log),
	}
}
