package entity

import (
	"github.com/google/uuid"
)

type PaymentKind string

const (
	PaymentKindCapture PaymentKind = "capture"
	PaymentKindRefund  PaymentKind = "refund"
)

// PaymentAttempt records one call to the payment gateway, successful or not.
type PaymentAttempt struct {
	BaseSimple
	BookingID     uuid.UUID     `db:"booking_id"`
	Kind          PaymentKind   `db:"kind"`
	Amount        int64         `db:"amount"`
	Status        PaymentStatus `db:"status"`
	Reference     *string       `db:"reference"`
	FailureReason *string       `db:"failure_reason"`
}
