package lifecycle

import (
	"fmt"
	"time"

	"companion-booking/internal/data/entity"

	"github.com/google/uuid"
)

// View is a booking as one participant sees it. The concrete type is
// either ClientView or ProfessionalView.
type View interface {
	ViewerRole() entity.Role
	isView()
}

// Summary holds the fields both participants see.
type Summary struct {
	ID                   uuid.UUID            `json:"id"`
	Status               entity.BookingStatus `json:"status"`
	PaymentStatus        entity.PaymentStatus `json:"payment_status"`
	ScheduledStart       time.Time            `json:"scheduled_start"`
	ScheduledEnd         time.Time            `json:"scheduled_end"`
	DurationHours        int                  `json:"duration_hours"`
	Currency             string               `json:"currency"`
	CancellationDeadline time.Time            `json:"cancellation_deadline"`
	RequestExpired       bool                 `json:"request_expired"`
	CancelledAt          *time.Time           `json:"cancelled_at,omitempty"`
	CancelledBy          *entity.Role         `json:"cancelled_by,omitempty"`
	CancellationReason   *string              `json:"cancellation_reason,omitempty"`
	StartedAt            *time.Time           `json:"started_at,omitempty"`
	CompletedAt          *time.Time           `json:"completed_at,omitempty"`
	SecondsRemaining     int64                `json:"seconds_remaining"`
	Handshake            *HandshakeState      `json:"handshake,omitempty"`
	ReviewDeadline       *time.Time           `json:"review_deadline,omitempty"`
	ReviewWindowOpen     bool                 `json:"review_window_open"`
	HasReviewed          bool                 `json:"has_reviewed"`
	AvailableActions     []Action             `json:"available_actions"`
	Version              int64                `json:"version"`
	CreatedAt            time.Time            `json:"created_at"`
}

type ClientView struct {
	Summary
	ProfessionalID    uuid.UUID `json:"professional_id"`
	TotalAmount       int64     `json:"total_amount"`
	PlatformFeeAmount int64     `json:"platform_fee_amount"`
	SessionAmount     int64     `json:"session_amount"`
	PaymentReference  *string   `json:"payment_reference,omitempty"`
	RefundAmount      int64     `json:"refund_amount"`
	RefundPercent     int64     `json:"refund_percent"`
}

type ProfessionalView struct {
	Summary
	ClientID uuid.UUID `json:"client_id"`
	Payout   int64     `json:"payout"`
	// refund owed to the client if cancelled now
	ClientRefundAmount int64 `json:"client_refund_amount"`
}

func (ClientView) ViewerRole() entity.Role       { return entity.RoleClient }
func (ProfessionalView) ViewerRole() entity.Role { return entity.RoleProfessional }
func (ClientView) isView()                       {}
func (ProfessionalView) isView()                 {}

// Project builds the view of b for the participant in role. reviews are
// the booking's stored reviews.
func (m *Machine) Project(b entity.Booking, reviews []entity.Review, role entity.Role, now time.Time) (View, error) {
	if !role.IsParticipant() {
		return nil, fmt.Errorf("%w: no view for role %q", ErrUnauthorizedActor, role)
	}

	quote := m.policy.QuoteRefund(b, now)
	sum := Summary{
		ID:                   b.ID,
		Status:               b.Status,
		PaymentStatus:        b.PaymentStatus,
		ScheduledStart:       b.ScheduledStart,
		ScheduledEnd:         b.ScheduledEnd(),
		DurationHours:        b.DurationHours,
		Currency:             b.Currency,
		CancellationDeadline: b.CancellationDeadline,
		RequestExpired:       m.policy.IsRequestExpired(b, now),
		CancelledAt:          b.CancelledAt,
		CancelledBy:          b.CancelledBy,
		CancellationReason:   b.CancellationReason,
		StartedAt:            b.StartedAt,
		CompletedAt:          b.CompletedAt,
		SecondsRemaining:     int64(TimeRemaining(b, now) / time.Second),
		Handshake:            handshakeFor(b, role),
		ReviewDeadline:       b.ReviewDeadline,
		ReviewWindowOpen:     ReviewWindowOpen(b, now),
		AvailableActions:     m.AvailableActions(b, role, now),
		Version:              b.Version,
		CreatedAt:            b.CreatedAt,
	}
	for _, r := range reviews {
		if r.ReviewerRole == role {
			sum.HasReviewed = true
		}
	}

	if role == entity.RoleClient {
		return ClientView{
			Summary:           sum,
			ProfessionalID:    b.ProfessionalID,
			TotalAmount:       b.TotalAmount,
			PlatformFeeAmount: b.PlatformFeeAmount,
			SessionAmount:     b.SessionAmount,
			PaymentReference:  b.PaymentReference,
			RefundAmount:      quote.Amount,
			RefundPercent:     quote.Percent,
		}, nil
	}
	return ProfessionalView{
		Summary:            sum,
		ClientID:           b.ClientID,
		Payout:             b.SessionAmount,
		ClientRefundAmount: quote.Amount,
	}, nil
}

// AvailableActions lists the actions role could successfully request now,
// leaving out repeats of idempotent actions.
func (m *Machine) AvailableActions(b entity.Booking, role entity.Role, now time.Time) []Action {
	actions := []Action{}
	for _, a := range ParticipantActions {
		cmd := Command{
			Action:          a,
			ActorID:         b.ParticipantID(role),
			Role:            role,
			ExpectedVersion: b.Version,
			At:              now,
		}
		noop, err := m.check(b, cmd)
		if err == nil && !noop {
			actions = append(actions, a)
		}
	}
	return actions
}
