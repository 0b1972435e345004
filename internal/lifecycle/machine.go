package lifecycle

import (
	"fmt"
	"slices"
	"time"

	"companion-booking/internal/data/entity"

	"github.com/google/uuid"
)

type Action string

const (
	ActionAccept         Action = "accept"
	ActionCancel         Action = "cancel"
	ActionPay            Action = "pay"
	ActionVerifyIdentity Action = "verify_identity"
	ActionVerifyMeetup   Action = "verify_meetup"
	ActionConfirmSession Action = "confirm_session"
	ActionStartSession   Action = "start_session"
	ActionEndSession     Action = "end_session"
	// system only
	ActionExpire  Action = "expire"
	ActionTimeout Action = "timeout"
)

var (
	participants = []entity.Role{entity.RoleClient, entity.RoleProfessional}
	systemOnly   = []entity.Role{entity.RoleSystem}
)

// actionRoles lists which roles may invoke each action.
var actionRoles = map[Action][]entity.Role{
	ActionAccept:         {entity.RoleProfessional},
	ActionCancel:         participants,
	ActionPay:            {entity.RoleClient},
	ActionVerifyIdentity: {entity.RoleProfessional},
	ActionVerifyMeetup:   participants,
	ActionConfirmSession: participants,
	ActionStartSession:   participants,
	ActionEndSession:     participants,
	ActionExpire:         systemOnly,
	ActionTimeout:        systemOnly,
}

// ParticipantActions are the actions a client or professional can request,
// in the order they normally happen.
var ParticipantActions = []Action{
	ActionAccept, ActionPay, ActionVerifyIdentity, ActionVerifyMeetup,
	ActionConfirmSession, ActionStartSession, ActionEndSession, ActionCancel,
}

func ParseAction(s string) (Action, bool) {
	a := Action(s)
	_, ok := actionRoles[a]
	return a, ok
}

var cancellable = map[entity.BookingStatus]bool{
	entity.BookingStatusRequested:        true,
	entity.BookingStatusAccepted:         true,
	entity.BookingStatusPaymentRequired:  true,
	entity.BookingStatusConfirmed:        true,
	entity.BookingStatusIdentityVerified: true,
	entity.BookingStatusMeetupVerified:   true,
}

// CanCancel reports whether a booking in status s may still be cancelled.
func CanCancel(s entity.BookingStatus) bool {
	return cancellable[s]
}

// PaymentOutcome is what the payment gateway reported for a capture.
type PaymentOutcome struct {
	Paid      bool
	Reference string
	Reason    string
}

// RefundOutcome is what the payment gateway reported for a refund.
type RefundOutcome struct {
	Refunded  bool
	Amount    int64
	Reference string
}

// IdentityOutcome is the verifier's answer for both participants.
type IdentityOutcome struct {
	ClientVerified       bool
	ProfessionalVerified bool
}

// Command is one requested transition. Collaborator outcomes are filled in
// by the caller after the collaborator has been called.
type Command struct {
	Action          Action
	ActorID         uuid.UUID
	Role            entity.Role
	ExpectedVersion int64
	At              time.Time
	Reason          string

	Payment  *PaymentOutcome
	Refund   *RefundOutcome
	Identity *IdentityOutcome
}

// Result is the outcome of Apply. Changed is false for a repeated
// idempotent action, in which case Booking is returned untouched.
type Result struct {
	Booking entity.Booking
	Events  []entity.BookingEvent
	Changed bool
}

// StatusChanged reports whether the result moved the booking to another status.
func (r Result) StatusChanged() bool {
	return len(r.Events) > 0
}

type Machine struct {
	policy Policy
}

func NewMachine(policy Policy) *Machine {
	return &Machine{policy: policy}
}

func (m *Machine) Policy() Policy {
	return m.policy
}

// Validate runs every check Apply runs except the ones that depend on
// collaborator outcomes. Callers use it before talking to a gateway.
func (m *Machine) Validate(b entity.Booking, cmd Command) error {
	_, err := m.check(b, cmd)
	return err
}

// IsRepeat reports whether cmd repeats an idempotent action that has
// already taken effect.
func (m *Machine) IsRepeat(b entity.Booking, cmd Command) bool {
	noop, err := m.check(b, cmd)
	return err == nil && noop
}

// Apply takes the whole aggregate and returns the next one. On error the
// returned booking is b unchanged.
func (m *Machine) Apply(b entity.Booking, cmd Command) (Result, error) {
	noop, err := m.check(b, cmd)
	if err != nil {
		return Result{Booking: b}, err
	}
	if noop {
		return Result{Booking: b}, nil
	}

	s := &step{policy: m.policy, b: b, cmd: cmd}
	switch cmd.Action {
	case ActionAccept:
		s.byActor(entity.BookingStatusAccepted)
		s.bySystem(entity.BookingStatusPaymentRequired)
	case ActionPay:
		err = s.pay()
	case ActionVerifyIdentity:
		err = s.verifyIdentity()
	case ActionVerifyMeetup:
		s.verifyMeetup()
	case ActionConfirmSession:
		s.confirmSession()
	case ActionStartSession:
		s.start(s.byActor)
	case ActionEndSession:
		s.complete(cmd.At)
	case ActionTimeout:
		s.complete(b.ScheduledEnd())
	case ActionCancel, ActionExpire:
		err = s.cancel()
	}
	if err != nil {
		return Result{Booking: b}, err
	}

	next := s.b
	next.Version = b.Version + 1
	next.UpdatedAt = cmd.At
	for i := range s.events {
		s.events[i].Version = next.Version
	}
	return Result{Booking: next, Events: s.events, Changed: true}, nil
}

// DeclinePayment records a refused capture on b. The status stays where it is
// and no event is emitted; a later pay can still succeed.
func (m *Machine) DeclinePayment(b entity.Booking, at time.Time) Result {
	next := b
	next.PaymentStatus = entity.PaymentStatusFailed
	next.Version = b.Version + 1
	next.UpdatedAt = at
	return Result{Booking: next, Changed: true}
}

func (m *Machine) check(b entity.Booking, cmd Command) (bool, error) {
	if err := authorize(b, cmd); err != nil {
		return false, err
	}
	if isRepeat(b, cmd) {
		return true, nil
	}
	if cmd.ExpectedVersion != b.Version {
		return false, fmt.Errorf("%w: expected version %d, booking is at %d",
			ErrConcurrentModification, cmd.ExpectedVersion, b.Version)
	}
	return false, m.guard(b, cmd)
}

func authorize(b entity.Booking, cmd Command) error {
	roles, ok := actionRoles[cmd.Action]
	if !ok {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidInput, cmd.Action)
	}
	if !slices.Contains(roles, cmd.Role) {
		return fmt.Errorf("%w: %s may not %s", ErrUnauthorizedActor, cmd.Role, cmd.Action)
	}
	if cmd.Role.IsParticipant() && cmd.ActorID != b.ParticipantID(cmd.Role) {
		return fmt.Errorf("%w: actor is not this booking's %s", ErrUnauthorizedActor, cmd.Role)
	}
	return nil
}

// isRepeat covers the two idempotent actions: confirming the session twice
// and ending a session that already ended.
func isRepeat(b entity.Booking, cmd Command) bool {
	switch cmd.Action {
	case ActionConfirmSession:
		return b.Handshake != nil && b.Handshake.For(cmd.Role).Confirmed
	case ActionEndSession, ActionTimeout:
		return b.Status == entity.BookingStatusCompleted
	}
	return false
}

func (m *Machine) guard(b entity.Booking, cmd Command) error {
	switch cmd.Action {
	case ActionAccept:
		if err := requireStatus(b, cmd, entity.BookingStatusRequested); err != nil {
			return err
		}
		if m.policy.IsRequestExpired(b, cmd.At) {
			return fmt.Errorf("%w: request expired at %s", ErrGuardNotSatisfied,
				m.policy.RequestExpiresAt(b).Format(time.RFC3339))
		}
	case ActionCancel:
		if !CanCancel(b.Status) {
			return fmt.Errorf("%w: cannot cancel a booking that is %s", ErrInvalidTransition, b.Status)
		}
	case ActionExpire:
		if err := requireStatus(b, cmd, entity.BookingStatusRequested); err != nil {
			return err
		}
		if !m.policy.IsRequestExpired(b, cmd.At) {
			return fmt.Errorf("%w: request has not expired", ErrGuardNotSatisfied)
		}
	case ActionPay:
		return requireStatus(b, cmd, entity.BookingStatusPaymentRequired)
	case ActionVerifyIdentity:
		return requireStatus(b, cmd, entity.BookingStatusConfirmed)
	case ActionVerifyMeetup:
		if err := requireStatus(b, cmd, entity.BookingStatusIdentityVerified); err != nil {
			return err
		}
		if b.MeetupChecks.For(cmd.Role).Confirmed {
			return fmt.Errorf("%w: meetup already verified by %s", ErrInvalidTransition, cmd.Role)
		}
	case ActionConfirmSession:
		return requireStatus(b, cmd, entity.BookingStatusMeetupVerified)
	case ActionStartSession:
		if err := requireStatus(b, cmd, entity.BookingStatusSessionReady); err != nil {
			return err
		}
		if b.Handshake == nil || !b.Handshake.Both() {
			return fmt.Errorf("%w: both participants must confirm first", ErrGuardNotSatisfied)
		}
	case ActionEndSession:
		return requireStatus(b, cmd, entity.BookingStatusInProgress)
	case ActionTimeout:
		if err := requireStatus(b, cmd, entity.BookingStatusInProgress); err != nil {
			return err
		}
		if !m.policy.IsSessionOverdue(b, cmd.At) {
			return fmt.Errorf("%w: session ends at %s", ErrGuardNotSatisfied,
				b.ScheduledEnd().Format(time.RFC3339))
		}
	}
	return nil
}

func requireStatus(b entity.Booking, cmd Command, want entity.BookingStatus) error {
	if b.Status != want {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, cmd.Action, b.Status)
	}
	return nil
}

// step accumulates the changes and events of one Apply call.
type step struct {
	policy Policy
	b      entity.Booking
	cmd    Command
	events []entity.BookingEvent
}

func (s *step) move(to entity.BookingStatus, role entity.Role, actorID uuid.UUID) {
	s.events = append(s.events, entity.BookingEvent{
		ID:        uuid.New(),
		BookingID: s.b.ID,
		Ordinal:   len(s.events),
		Name:      entity.EventBookingStatusChanged,
		From:      s.b.Status,
		To:        to,
		Action:    string(s.cmd.Action),
		ActorRole: role,
		ActorID:   actorID,
		At:        s.cmd.At,
	})
	s.b.Status = to
}

func (s *step) byActor(to entity.BookingStatus) {
	s.move(to, s.cmd.Role, s.cmd.ActorID)
}

func (s *step) bySystem(to entity.BookingStatus) {
	s.move(to, entity.RoleSystem, uuid.Nil)
}

func (s *step) pay() error {
	out := s.cmd.Payment
	if out == nil {
		return fmt.Errorf("%w: payment has not been captured", ErrGuardNotSatisfied)
	}
	if !out.Paid {
		return fmt.Errorf("%w: payment capture failed: %s", ErrCollaboratorFailure, out.Reason)
	}
	ref := out.Reference
	s.b.PaymentStatus = entity.PaymentStatusPaid
	s.b.PaymentReference = &ref
	s.byActor(entity.BookingStatusConfirmed)
	return nil
}

func (s *step) verifyIdentity() error {
	out := s.cmd.Identity
	if out == nil {
		return fmt.Errorf("%w: identity has not been checked", ErrGuardNotSatisfied)
	}
	if !out.ClientVerified || !out.ProfessionalVerified {
		return fmt.Errorf("%w: identity verification did not pass for both participants", ErrGuardNotSatisfied)
	}
	s.b.IdentityChecks = s.b.IdentityChecks.
		With(entity.RoleClient, s.cmd.At).
		With(entity.RoleProfessional, s.cmd.At)
	s.byActor(entity.BookingStatusIdentityVerified)
	return nil
}

func (s *step) verifyMeetup() {
	s.b.MeetupChecks = s.b.MeetupChecks.With(s.cmd.Role, s.cmd.At)
	if s.b.MeetupChecks.Both() {
		s.b.Handshake = &entity.PartyConfirmations{}
		s.byActor(entity.BookingStatusMeetupVerified)
	}
}

func (s *step) cancel() error {
	refund := s.policy.RefundAmount(s.b, s.cmd.At)
	if refund > 0 {
		out := s.cmd.Refund
		switch {
		case out == nil:
			return fmt.Errorf("%w: refund of %d has not been issued", ErrGuardNotSatisfied, refund)
		case !out.Refunded:
			return fmt.Errorf("%w: refund failed", ErrCollaboratorFailure)
		case out.Amount != refund:
			return fmt.Errorf("%w: refunded %d but policy amount is %d", ErrGuardNotSatisfied, out.Amount, refund)
		}
		s.b.PaymentStatus = entity.PaymentStatusRefunded
	}

	at := s.cmd.At
	role := s.cmd.Role
	reason := s.cmd.Reason
	if reason == "" && s.cmd.Action == ActionExpire {
		reason = "request expired"
	}
	s.b.RefundAmount = &refund
	s.b.CancelledAt = &at
	s.b.CancelledBy = &role
	if reason != "" {
		s.b.CancellationReason = &reason
	}
	s.b.Handshake = nil
	s.byActor(entity.BookingStatusCancelled)
	return nil
}
