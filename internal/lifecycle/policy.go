package lifecycle

import (
	"time"

	"companion-booking/internal/data/entity"
)

// Policy holds the timing and money rules of the booking lifecycle.
type Policy struct {
	CancellationLeadTime time.Duration
	RequestExpiry        time.Duration
	FullRefundThreshold  time.Duration
	PartialRefundPercent int64
	ReviewWindow         time.Duration
	AutoStartSession     bool
	Aspects              map[entity.Role][]string
}

func DefaultPolicy() Policy {
	return Policy{
		CancellationLeadTime: 24 * time.Hour,
		RequestExpiry:        48 * time.Hour,
		FullRefundThreshold:  12 * time.Hour,
		PartialRefundPercent: 50,
		ReviewWindow:         24 * time.Hour,
		AutoStartSession:     false,
		Aspects:              DefaultAspects(),
	}
}

// DefaultAspects returns the sub-ratings each reviewer role must fill in.
func DefaultAspects() map[entity.Role][]string {
	return map[entity.Role][]string{
		entity.RoleClient:       {"punctuality", "respectfulness", "communication", "overall"},
		entity.RoleProfessional: {"punctuality", "professionalism", "communication", "overall"},
	}
}

func (p Policy) CancellationDeadline(scheduledStart time.Time) time.Time {
	return scheduledStart.Add(-p.CancellationLeadTime)
}

func (p Policy) RequestExpiresAt(b entity.Booking) time.Time {
	return b.CreatedAt.Add(p.RequestExpiry)
}

// IsRequestExpired reports whether b is still Requested past its expiry.
// Expiry is never stored; it is recomputed from CreatedAt on every read.
func (p Policy) IsRequestExpired(b entity.Booking, now time.Time) bool {
	return b.Status == entity.BookingStatusRequested && !now.Before(p.RequestExpiresAt(b))
}

// IsSessionOverdue reports whether an in-progress session has run past its scheduled end.
func (p Policy) IsSessionOverdue(b entity.Booking, now time.Time) bool {
	return b.Status == entity.BookingStatusInProgress && !now.Before(b.ScheduledEnd())
}

func (p Policy) ReviewDeadline(completedAt time.Time) time.Time {
	return completedAt.Add(p.ReviewWindow)
}

// ReviewWindowOpen reports whether reviews may still be submitted at now.
func ReviewWindowOpen(b entity.Booking, now time.Time) bool {
	if b.Status != entity.BookingStatusCompleted || b.ReviewDeadline == nil {
		return false
	}
	return now.Before(*b.ReviewDeadline)
}

// TimeRemaining is the session countdown, zero outside InProgress.
func TimeRemaining(b entity.Booking, now time.Time) time.Duration {
	if b.Status != entity.BookingStatusInProgress {
		return 0
	}
	left := b.ScheduledEnd().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
