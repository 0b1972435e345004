package lifecycle

import (
	"time"

	"companion-booking/internal/data/entity"
)

// confirmSession records the actor's half of the handshake. The second
// confirmation moves the booking to SessionReady, and straight on to
// InProgress when the policy starts sessions automatically.
func (s *step) confirmSession() {
	var h entity.PartyConfirmations
	if s.b.Handshake != nil {
		h = *s.b.Handshake
	}
	h = h.With(s.cmd.Role, s.cmd.At)
	s.b.Handshake = &h

	if !h.Both() {
		return
	}
	s.bySystem(entity.BookingStatusSessionReady)
	if s.policy.AutoStartSession {
		s.start(s.bySystem)
	}
}

func (s *step) start(move func(entity.BookingStatus)) {
	at := s.cmd.At
	s.b.StartedAt = &at
	move(entity.BookingStatusInProgress)
}

// complete ends the session at the given instant and opens the review window.
func (s *step) complete(at time.Time) {
	deadline := s.policy.ReviewDeadline(at)
	s.b.CompletedAt = &at
	s.b.ReviewDeadline = &deadline
	s.b.Handshake = nil
	s.byActor(entity.BookingStatusCompleted)
}

// HandshakeState is the read-only view of the session handshake for one viewer.
type HandshakeState struct {
	SelfConfirmed        bool `json:"self_confirmed"`
	CounterpartConfirmed bool `json:"counterpart_confirmed"`
	ReadyToStart         bool `json:"ready_to_start"`
}

func handshakeFor(b entity.Booking, role entity.Role) *HandshakeState {
	if b.Handshake == nil {
		return nil
	}
	return &HandshakeState{
		SelfConfirmed:        b.Handshake.For(role).Confirmed,
		CounterpartConfirmed: b.Handshake.For(entity.Counterpart(role)).Confirmed,
		ReadyToStart:         b.Status == entity.BookingStatusSessionReady && b.Handshake.Both(),
	}
}
