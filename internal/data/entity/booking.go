package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusRequested        BookingStatus = "requested"
	BookingStatusAccepted         BookingStatus = "accepted"
	BookingStatusPaymentRequired  BookingStatus = "payment_required"
	BookingStatusConfirmed        BookingStatus = "confirmed"
	BookingStatusIdentityVerified BookingStatus = "identity_verified"
	BookingStatusMeetupVerified   BookingStatus = "meetup_verified"
	BookingStatusSessionReady     BookingStatus = "session_ready"
	BookingStatusInProgress       BookingStatus = "in_progress"
	BookingStatusCompleted        BookingStatus = "completed"
	BookingStatusCancelled        BookingStatus = "cancelled"
)

// IsTerminal reports whether no further status transition is legal.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusRequested, BookingStatusAccepted, BookingStatusPaymentRequired,
		BookingStatusConfirmed, BookingStatusIdentityVerified, BookingStatusMeetupVerified,
		BookingStatusSessionReady, BookingStatusInProgress, BookingStatusCompleted,
		BookingStatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type Role string

const (
	RoleClient       Role = "client"
	RoleProfessional Role = "professional"
	RoleSystem       Role = "system"
)

// IsParticipant reports whether the role belongs to one side of a booking.
func (r Role) IsParticipant() bool {
	return r == RoleClient || r == RoleProfessional
}

// Confirmation is one participant's acknowledgement of a step.
type Confirmation struct {
	Confirmed   bool       `json:"confirmed"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// PartyConfirmations tracks a two-party step, one slot per participant role.
type PartyConfirmations struct {
	Client       Confirmation `json:"client"`
	Professional Confirmation `json:"professional"`
}

func (p PartyConfirmations) For(role Role) Confirmation {
	if role == RoleProfessional {
		return p.Professional
	}
	return p.Client
}

// With returns a copy with role marked confirmed at t.
func (p PartyConfirmations) With(role Role, t time.Time) PartyConfirmations {
	c := Confirmation{Confirmed: true, ConfirmedAt: &t}
	if role == RoleProfessional {
		p.Professional = c
	} else {
		p.Client = c
	}
	return p
}

func (p PartyConfirmations) Both() bool {
	return p.Client.Confirmed && p.Professional.Confirmed
}

// Booking is the aggregate root. Fields are only changed through
// lifecycle.Machine; repositories persist whatever the machine returns.
type Booking struct {
	BaseNoDelete
	ClientID             uuid.UUID     `db:"client_id"`
	ProfessionalID       uuid.UUID     `db:"professional_id"`
	ScheduledStart       time.Time     `db:"scheduled_start"`
	DurationHours        int           `db:"duration_hours"`
	TotalAmount          int64         `db:"total_amount"`
	PlatformFeeAmount    int64         `db:"platform_fee_amount"`
	SessionAmount        int64         `db:"session_amount"`
	Currency             string        `db:"currency"`
	Status               BookingStatus `db:"status"`
	PaymentStatus        PaymentStatus `db:"payment_status"`
	PaymentReference     *string       `db:"payment_reference"`
	CancellationDeadline time.Time     `db:"cancellation_deadline"`
	RefundAmount         *int64        `db:"refund_amount"`
	CancelledAt          *time.Time    `db:"cancelled_at"`
	CancelledBy          *Role         `db:"cancelled_by"`
	CancellationReason   *string       `db:"cancellation_reason"`
	StartedAt            *time.Time    `db:"started_at"`
	CompletedAt          *time.Time    `db:"completed_at"`
	ReviewDeadline       *time.Time    `db:"review_deadline"`
	// Identity and meetup checks are kept for audit; the handshake is
	// dropped once the booking is terminal.
	IdentityChecks PartyConfirmations  `db:"identity_checks"`
	MeetupChecks   PartyConfirmations  `db:"meetup_checks"`
	Handshake      *PartyConfirmations `db:"handshake"`
	Version        int64               `db:"version"`
}

// ScheduledEnd is the planned end of the session.
func (b *Booking) ScheduledEnd() time.Time {
	return b.ScheduledStart.Add(time.Duration(b.DurationHours) * time.Hour)
}

// ParticipantID returns the user id bound to role, or uuid.Nil for system.
func (b *Booking) ParticipantID(role Role) uuid.UUID {
	switch role {
	case RoleClient:
		return b.ClientID
	case RoleProfessional:
		return b.ProfessionalID
	}
	return uuid.Nil
}

// Counterpart returns the other participant's role.
func Counterpart(role Role) Role {
	if role == RoleClient {
		return RoleProfessional
	}
	return RoleClient
}
