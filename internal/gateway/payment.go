package gateway

import (
	"context"

	"github.com/google/uuid"
)

// PaymentGateway executes money movements for a booking. A declined charge
// is a normal result with Paid=false; an error means the provider could not
// be reached or answered something unusable.
type PaymentGateway interface {
	Capture(ctx context.Context, req CaptureRequest) (CaptureResult, error)
	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)
}

type CaptureRequest struct {
	BookingID uuid.UUID
	Amount    int64
	Currency  string
	Token     string // card token from the client
}

type CaptureResult struct {
	Paid      bool
	Reference string
	Reason    string
}

type RefundRequest struct {
	BookingID uuid.UUID
	ChargeID  string
	Amount    int64
}

type RefundResult struct {
	Refunded  bool
	Amount    int64
	Reference string
}
