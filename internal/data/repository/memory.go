package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"companion-booking/internal/data/entity"

	"github.com/google/uuid"
)

// memoryStore backs the in-memory repositories used for local runs and tests.
// Every read returns a copy so callers can never change stored state.
type memoryStore struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]entity.Booking
	events   map[uuid.UUID][]entity.BookingEvent
	reviews  map[uuid.UUID][]entity.Review
	payments map[uuid.UUID][]entity.PaymentAttempt
}

// NewMemoryRepository returns repositories that keep everything in process memory.
func NewMemoryRepository() *Repository {
	s := &memoryStore{
		bookings: make(map[uuid.UUID]entity.Booking),
		events:   make(map[uuid.UUID][]entity.BookingEvent),
		reviews:  make(map[uuid.UUID][]entity.Review),
		payments: make(map[uuid.UUID][]entity.PaymentAttempt),
	}
	return &Repository{
		Booking: &memoryBookingRepository{s},
		Event:   &memoryEventRepository{s},
		Review:  &memoryReviewRepository{s},
		Payment: &memoryPaymentRepository{s},
	}
}

type memoryBookingRepository struct{ s *memoryStore }

func (r *memoryBookingRepository) Create(_ context.Context, booking *entity.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.bookings[booking.ID]; ok {
		return fmt.Errorf("create booking %s: already exists", booking.ID)
	}
	r.s.bookings[booking.ID] = *booking
	return nil
}

func (r *memoryBookingRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *memoryBookingRepository) participantBookings(role entity.Role, userID uuid.UUID) []entity.Booking {
	var out []entity.Booking
	for _, b := range r.s.bookings {
		if role.IsParticipant() && b.ParticipantID(role) == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memoryBookingRepository) FindByParticipant(_ context.Context, role entity.Role, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := r.participantBookings(role, userID)
	if offset >= len(all) {
		return nil, nil
	}
	end := min(offset+limit, len(all))

	out := make([]*entity.Booking, 0, end-offset)
	for i := offset; i < end; i++ {
		b := all[i]
		out = append(out, &b)
	}
	return out, nil
}

func (r *memoryBookingRepository) CountByParticipant(_ context.Context, role entity.Role, userID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return int64(len(r.participantBookings(role, userID))), nil
}

func (r *memoryBookingRepository) Save(_ context.Context, booking *entity.Booking, expectedVersion int64, events []entity.BookingEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.bookings[booking.ID]
	if !ok || current.Version != expectedVersion {
		return fmt.Errorf("save booking %s at version %d: %w", booking.ID, expectedVersion, ErrVersionConflict)
	}
	r.s.bookings[booking.ID] = *booking
	r.s.events[booking.ID] = append(r.s.events[booking.ID], events...)
	return nil
}

func (r *memoryBookingRepository) FindSettleCandidates(_ context.Context, requestedBefore, endedBefore time.Time, limit int) ([]*entity.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.Booking
	for _, b := range r.s.bookings {
		expired := b.Status == entity.BookingStatusRequested && !b.CreatedAt.After(requestedBefore)
		overdue := b.Status == entity.BookingStatusInProgress && !b.ScheduledEnd().After(endedBefore)
		if expired || overdue {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memoryEventRepository struct{ s *memoryStore }

func (r *memoryEventRepository) FindByBookingID(_ context.Context, bookingID uuid.UUID) ([]entity.BookingEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return append([]entity.BookingEvent{}, r.s.events[bookingID]...), nil
}

type memoryReviewRepository struct{ s *memoryStore }

func (r *memoryReviewRepository) Create(_ context.Context, review *entity.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.reviews[review.BookingID] {
		if existing.ReviewerRole == review.ReviewerRole {
			return fmt.Errorf("create review for booking %s by %s: %w", review.BookingID, review.ReviewerRole, ErrDuplicateReview)
		}
	}
	r.s.reviews[review.BookingID] = append(r.s.reviews[review.BookingID], *review)
	return nil
}

func (r *memoryReviewRepository) FindByBookingID(_ context.Context, bookingID uuid.UUID) ([]entity.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return append([]entity.Review{}, r.s.reviews[bookingID]...), nil
}

type memoryPaymentRepository struct{ s *memoryStore }

func (r *memoryPaymentRepository) Create(_ context.Context, attempt *entity.PaymentAttempt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.payments[attempt.BookingID] = append(r.s.payments[attempt.BookingID], *attempt)
	return nil
}

func (r *memoryPaymentRepository) FindByBookingID(_ context.Context, bookingID uuid.UUID) ([]entity.PaymentAttempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return append([]entity.PaymentAttempt{}, r.s.payments[bookingID]...), nil
}
