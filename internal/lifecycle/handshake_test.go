package lifecycle

import (
	"testing"
	"time"

	"companion-booking/internal/data/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionHandshakeAndEnd(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	b := driveTo(t, m, entity.BookingStatusMeetupVerified)
	at := start.Add(-5 * time.Minute)

	res, err := m.Apply(b, cmdFor(b, ActionConfirmSession, entity.RoleClient, at))
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusMeetupVerified, res.Booking.Status)
	assert.True(t, res.Booking.Handshake.Client.Confirmed)
	assert.False(t, res.Booking.Handshake.Professional.Confirmed)

	res, err = m.Apply(res.Booking, cmdFor(res.Booking, ActionConfirmSession, entity.RoleProfessional, at))
	require.NoError(t, err)
	ready := res.Booking
	assert.Equal(t, entity.BookingStatusSessionReady, ready.Status)
	require.Len(t, res.Events, 1)
	assert.Equal(t, entity.RoleSystem, res.Events[0].ActorRole)
	assert.Contains(t, m.AvailableActions(ready, entity.RoleClient, at), ActionStartSession)
	assert.Contains(t, m.AvailableActions(ready, entity.RoleProfessional, at), ActionStartSession)

	res, err = m.Apply(ready, cmdFor(ready, ActionStartSession, entity.RoleProfessional, start))
	require.NoError(t, err)
	running := res.Booking
	assert.Equal(t, entity.BookingStatusInProgress, running.Status)
	assert.Equal(t, start, *running.StartedAt)
	assert.Equal(t, 90*time.Minute, TimeRemaining(running, start.Add(30*time.Minute)))

	endAt := start.Add(45 * time.Minute)
	res, err = m.Apply(running, cmdFor(running, ActionEndSession, entity.RoleClient, endAt))
	require.NoError(t, err)
	done := res.Booking
	assert.Equal(t, entity.BookingStatusCompleted, done.Status)
	assert.Equal(t, endAt, *done.CompletedAt)
	assert.Equal(t, endAt.Add(24*time.Hour), *done.ReviewDeadline)
	assert.Nil(t, done.Handshake)

	// a retried end is a no-op, even with the version the caller saw before
	again, err := m.Apply(done, cmdFor(running, ActionEndSession, entity.RoleProfessional, endAt.Add(time.Minute)))
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Empty(t, again.Events)
	assert.Equal(t, done, again.Booking)
}

func TestConfirmTwiceIsSameAsOnce(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	b := driveTo(t, m, entity.BookingStatusMeetupVerified)
	at := start.Add(-5 * time.Minute)

	once := mustApply(t, m, b, cmdFor(b, ActionConfirmSession, entity.RoleClient, at))

	res, err := m.Apply(once, cmdFor(once, ActionConfirmSession, entity.RoleClient, at.Add(time.Minute)))
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, once, res.Booking)

	// also a no-op after the handshake completed
	ready := mustApply(t, m, once, cmdFor(once, ActionConfirmSession, entity.RoleProfessional, at))
	res, err = m.Apply(ready, cmdFor(ready, ActionConfirmSession, entity.RoleClient, at))
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, entity.BookingStatusSessionReady, res.Booking.Status)
}

func TestConfirmOutsideHandshake(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	b := driveTo(t, m, entity.BookingStatusIdentityVerified)

	_, err := m.Apply(b, cmdFor(b, ActionConfirmSession, entity.RoleClient, start))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done := driveTo(t, m, entity.BookingStatusCompleted)
	_, err = m.Apply(done, cmdFor(done, ActionConfirmSession, entity.RoleClient, start))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStartNeedsSessionReady(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	b := driveTo(t, m, entity.BookingStatusMeetupVerified)
	b = mustApply(t, m, b, cmdFor(b, ActionConfirmSession, entity.RoleClient, start))

	_, err := m.Apply(b, cmdFor(b, ActionStartSession, entity.RoleClient, start))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAutoStartSession(t *testing.T) {
	p := DefaultPolicy()
	p.AutoStartSession = true
	m := NewMachine(p)
	b := driveTo(t, m, entity.BookingStatusMeetupVerified)
	at := start.Add(-time.Minute)

	b = mustApply(t, m, b, cmdFor(b, ActionConfirmSession, entity.RoleProfessional, at))
	res, err := m.Apply(b, cmdFor(b, ActionConfirmSession, entity.RoleClient, at))
	require.NoError(t, err)

	assert.Equal(t, entity.BookingStatusInProgress, res.Booking.Status)
	assert.Equal(t, at, *res.Booking.StartedAt)
	require.Len(t, res.Events, 2)
	assert.Equal(t, entity.BookingStatusSessionReady, res.Events[0].To)
	assert.Equal(t, entity.BookingStatusInProgress, res.Events[1].To)
}

func TestSessionTimeout(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	b := driveTo(t, m, entity.BookingStatusInProgress)
	end := b.ScheduledEnd()
	sys := func(at time.Time) Command {
		return Command{Action: ActionTimeout, Role: entity.RoleSystem, ExpectedVersion: b.Version, At: at}
	}

	_, err := m.Apply(b, sys(end.Add(-time.Second)))
	assert.ErrorIs(t, err, ErrGuardNotSatisfied)
	assert.Equal(t, time.Second, TimeRemaining(b, end.Add(-time.Second)))
	assert.Equal(t, time.Duration(0), TimeRemaining(b, end.Add(time.Hour)))

	noticed := end.Add(3 * time.Hour)
	res, err := m.Apply(b, sys(noticed))
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCompleted, res.Booking.Status)
	assert.Equal(t, end, *res.Booking.CompletedAt)
	assert.Equal(t, end.Add(24*time.Hour), *res.Booking.ReviewDeadline)

	again, err := m.Apply(res.Booking, sys(noticed))
	require.NoError(t, err)
	assert.False(t, again.Changed)
}

func TestTimeRemainingOutsideSession(t *testing.T) {
	m := NewMachine(DefaultPolicy())
	b := driveTo(t, m, entity.BookingStatusSessionReady)
	assert.Equal(t, time.Duration(0), TimeRemaining(b, t0))
}
