package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"companion-booking/internal/data/entity"
	"companion-booking/internal/data/repository"
	"companion-booking/internal/lifecycle"
	"companion-booking/internal/notifier"
	"companion-booking/pkg/clock"
	"companion-booking/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "companion-booking/usecase"

// core is the part shared by the booking and review services: loading a
// booking, settling overdue system transitions, and committing results.
type core struct {
	repo    *repository.Repository
	machine *lifecycle.Machine
	clock   clock.Clock
	emitter *notifier.Emitter
	locks   *bookingLocks
	tracer  trace.Tracer
	log     *zap.Logger
}

func newCore(repo *repository.Repository, deps Dependencies, log *zap.Logger) *core {
	c := deps.Clock
	if c == nil {
		c = clock.Real()
	}
	return &core{
		repo:    repo,
		machine: lifecycle.NewMachine(deps.Policy),
		clock:   c,
		emitter: deps.Emitter,
		locks:   newBookingLocks(),
		tracer:  otel.Tracer(tracerName),
		log:     log,
	}
}

func parseBookingID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid booking ID format %s", lifecycle.ErrInvalidInput, id)
	}
	return parsed, nil
}

func actorRole(actor utils.Actor) (entity.Role, error) {
	role := entity.Role(actor.Role)
	if !role.IsParticipant() || actor.ID == uuid.Nil {
		return "", fmt.Errorf("%w: role %q is not a booking participant", lifecycle.ErrUnauthorizedActor, actor.Role)
	}
	return role, nil
}

func requireParticipant(b *entity.Booking, actor utils.Actor, role entity.Role) error {
	if b.ParticipantID(role) != actor.ID {
		return fmt.Errorf("%w: actor is not this booking's %s", lifecycle.ErrUnauthorizedActor, role)
	}
	return nil
}

func (c *core) startSpan(ctx context.Context, name string, bookingID uuid.UUID) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("booking.id", bookingID.String())))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (c *core) find(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	b, err := c.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", id, err)
	}
	if b == nil {
		return nil, fmt.Errorf("%w: %s", lifecycle.ErrBookingNotFound, id)
	}
	return b, nil
}

// settle commits the system transition a booking is due at now: expiry of
// a stale request or timeout of an overdue session. The caller holds the
// booking's lock.
func (c *core) settle(ctx context.Context, b *entity.Booking, now time.Time) (*entity.Booking, error) {
	policy := c.machine.Policy()

	var action lifecycle.Action
	switch {
	case policy.IsRequestExpired(*b, now):
		action = lifecycle.ActionExpire
	case policy.IsSessionOverdue(*b, now):
		action = lifecycle.ActionTimeout
	default:
		return b, nil
	}

	res, err := c.machine.Apply(*b, lifecycle.Command{
		Action:          action,
		Role:            entity.RoleSystem,
		ExpectedVersion: b.Version,
		At:              now,
	})
	if err != nil {
		return nil, fmt.Errorf("settle booking %s: %w", b.ID, err)
	}

	if err := c.commit(ctx, b, res); err != nil {
		if errors.Is(err, lifecycle.ErrConcurrentModification) {
			// another instance settled it first
			return c.find(ctx, b.ID)
		}
		return nil, err
	}

	c.log.Info("Booking settled by system",
		zap.String("booking_id", b.ID.String()),
		zap.String("action", string(action)),
		zap.String("status", string(res.Booking.Status)),
	)
	return &res.Booking, nil
}

// settleByID locks, loads and settles one booking.
func (c *core) settleByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	unlock := c.locks.Lock(id)
	defer unlock()

	b, err := c.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.settle(ctx, b, c.clock.Now())
}

// commit saves res against prev's version and publishes its events.
func (c *core) commit(ctx context.Context, prev *entity.Booking, res lifecycle.Result) error {
	if !res.Changed {
		return nil
	}

	next := res.Booking
	if err := c.repo.Booking.Save(ctx, &next, prev.Version, res.Events); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return fmt.Errorf("%w: %w", lifecycle.ErrConcurrentModification, err)
		}
		return fmt.Errorf("save booking %s: %w", prev.ID, err)
	}

	c.emitter.Emit(ctx, res.Events)
	return nil
}

// project builds the caller's view. Reviews are only read once they can exist.
func (c *core) project(ctx context.Context, b *entity.Booking, role entity.Role, now time.Time) (lifecycle.View, error) {
	var reviews []entity.Review
	if b.Status == entity.BookingStatusCompleted {
		var err error
		reviews, err = c.repo.Review.FindByBookingID(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("load reviews of booking %s: %w", b.ID, err)
		}
	}
	return c.machine.Project(*b, reviews, role, now)
}
