package request

import "time"

type CreateBookingRequest struct {
	ProfessionalID    string    `json:"professional_id" validate:"required,uuid"`
	ScheduledStart    time.Time `json:"scheduled_start" validate:"required"`
	DurationHours     int       `json:"duration_hours" validate:"required,gt=0,max=24"`
	TotalAmount       int64     `json:"total_amount" validate:"required,gt=0"`
	PlatformFeeAmount int64     `json:"platform_fee_amount" validate:"gte=0"`
	SessionAmount     int64     `json:"session_amount" validate:"gte=0"`
	Currency          string    `json:"currency,omitempty" validate:"omitempty,len=3"`
}

// TransitionRequest asks for one lifecycle action. PaymentToken is only
// read for pay, Reason only for cancel.
type TransitionRequest struct {
	Action          string `json:"action" validate:"required"`
	ExpectedVersion int64  `json:"expected_version" validate:"required,gte=1"`
	PaymentToken    string `json:"payment_token,omitempty"`
	Reason          string `json:"reason,omitempty" validate:"max=500"`
}

type SessionRequest struct {
	ExpectedVersion int64 `json:"expected_version" validate:"required,gte=1"`
}
