package lifecycle

import (
	"time"

	"companion-booking/internal/data/entity"
)

// Quote describes the refund a booking would get if cancelled at a given
// instant. Frozen is set once the booking is cancelled and the amount is final.
type Quote struct {
	Amount        int64
	Percent       int64
	UntilDeadline time.Duration
	Frozen        bool
}

// QuoteRefund is used for both preview and cancellation, so the amount
// shown to a user and the amount committed cannot disagree for the same instant.
func (p Policy) QuoteRefund(b entity.Booking, now time.Time) Quote {
	until := b.CancellationDeadline.Sub(now)
	if until < 0 {
		until = 0
	}

	if b.Status == entity.BookingStatusCancelled {
		q := Quote{UntilDeadline: until, Frozen: true}
		if b.RefundAmount != nil {
			q.Amount = *b.RefundAmount
		}
		if b.TotalAmount > 0 {
			q.Percent = q.Amount * 100 / b.TotalAmount
		}
		return q
	}

	if !CanCancel(b.Status) || b.PaymentStatus != entity.PaymentStatusPaid {
		return Quote{UntilDeadline: until}
	}

	percent := p.refundPercent(until)
	return Quote{
		Amount:        b.TotalAmount * percent / 100,
		Percent:       percent,
		UntilDeadline: until,
	}
}

func (p Policy) RefundAmount(b entity.Booking, now time.Time) int64 {
	return p.QuoteRefund(b, now).Amount
}

func (p Policy) refundPercent(untilDeadline time.Duration) int64 {
	switch {
	case untilDeadline > p.FullRefundThreshold:
		return 100
	case untilDeadline > 0:
		return p.PartialRefundPercent
	default:
		return 0
	}
}
