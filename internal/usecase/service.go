package usecase

import (
	"companion-booking/internal/data/repository"
	"companion-booking/internal/gateway"
	"companion-booking/internal/lifecycle"
	"companion-booking/internal/notifier"
	"companion-booking/pkg/clock"

	"go.uber.org/zap"
)

// Dependencies are the collaborators the services call out to.
type Dependencies struct {
	Policy     lifecycle.Policy
	Clock      clock.Clock
	Payments   gateway.PaymentGateway
	Identity   gateway.IdentityVerifier
	Emitter    *notifier.Emitter
	Currency   string
	SweepBatch int
}

type Service struct {
	Booking BookingService
	Review  ReviewService
}

func NewService(repo *repository.Repository, deps Dependencies, log *zap.Logger) *Service {
	c := newCore(repo, deps, log)
	return &Service{
		Booking: newBookingService(c, deps, log),
		Review:  newReviewService(c, log),
	}
}
