package worker

import (
	"context"
	"time"

	"companion-booking/internal/usecase"

	"go.uber.org/zap"
)

type BookingSweeper interface {
	Sweep(ctx context.Context) (usecase.SweepReport, error)
}

// Sweeper settles expired requests and overdue sessions on a fixed interval,
// so bookings nobody reads still reach their terminal state.
type Sweeper struct {
	bookings BookingSweeper
	interval time.Duration
	log      *zap.Logger
}

func NewSweeper(bookings BookingSweeper, interval time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		bookings: bookings,
		interval: interval,
		log:      log.With(zap.String("worker", "sweeper")),
	}
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("Sweeper started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.RunOnce(ctx)

		select {
		case <-ctx.Done():
			s.log.Info("Sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) RunOnce(ctx context.Context) usecase.SweepReport {
	report, err := s.bookings.Sweep(ctx)
	if err != nil {
		s.log.Error("Sweep failed", zap.Error(err))
		return report
	}

	if report.Expired+report.Completed+report.Failed > 0 {
		s.log.Info("Sweep settled bookings",
			zap.Int("expired", report.Expired),
			zap.Int("completed", report.Completed),
			zap.Int("failed", report.Failed),
		)
	}
	return report
}
