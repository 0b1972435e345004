package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"companion-booking/internal/data/entity"
	"companion-booking/internal/dto/request"
	"companion-booking/internal/dto/response"
	"companion-booking/internal/gateway"
	"companion-booking/internal/lifecycle"
	"companion-booking/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type BookingService interface {
	CreateBooking(ctx context.Context, actor utils.Actor, req *request.CreateBookingRequest) (lifecycle.View, error)
	GetBooking(ctx context.Context, actor utils.Actor, bookingID string) (lifecycle.View, error)
	ListBookings(ctx context.Context, actor utils.Actor, req *request.PaginatedRequest) (*response.PaginatedResponse[lifecycle.View], error)
	ListEvents(ctx context.Context, actor utils.Actor, bookingID string) ([]response.EventResponse, error)

	// Lifecycle actions
	Transition(ctx context.Context, actor utils.Actor, bookingID string, req *request.TransitionRequest) (*response.TransitionResponse, error)
	ConfirmSession(ctx context.Context, actor utils.Actor, bookingID string, req *request.SessionRequest) (*response.TransitionResponse, error)
	EndSession(ctx context.Context, actor utils.Actor, bookingID string, req *request.SessionRequest) (*response.TransitionResponse, error)
	PreviewRefund(ctx context.Context, actor utils.Actor, bookingID string) (*response.RefundPreviewResponse, error)

	// Sweep settles expired requests and overdue sessions in one batch.
	Sweep(ctx context.Context) (SweepReport, error)
}

type SweepReport struct {
	Expired   int
	Completed int
	Failed    int
}

type bookingService struct {
	*core
	payments   gateway.PaymentGateway
	identity   gateway.IdentityVerifier
	currency   string
	sweepBatch int
}

func newBookingService(c *core, deps Dependencies, log *zap.Logger) BookingService {
	currency := deps.Currency
	if currency == "" {
		currency = "thb"
	}
	batch := deps.SweepBatch
	if batch <= 0 {
		batch = 100
	}

	scoped := *c
	scoped.log = log.With(zap.String("service", "booking"))
	return &bookingService{
		core:       &scoped,
		payments:   deps.Payments,
		identity:   deps.Identity,
		currency:   currency,
		sweepBatch: batch,
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, actor utils.Actor, req *request.CreateBookingRequest) (lifecycle.View, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", lifecycle.ErrInvalidInput, utils.FormatValidationErrors(errs))
	}

	if role, err := actorRole(actor); err != nil || role != entity.RoleClient {
		return nil, fmt.Errorf("%w: only clients can request a booking", lifecycle.ErrUnauthorizedActor)
	}

	professionalID, err := uuid.Parse(req.ProfessionalID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid professional ID format %s", lifecycle.ErrInvalidInput, req.ProfessionalID)
	}
	if professionalID == actor.ID {
		return nil, fmt.Errorf("%w: client and professional must differ", lifecycle.ErrInvalidInput)
	}
	if req.DurationHours <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", lifecycle.ErrInvalidInput)
	}
	if req.PlatformFeeAmount+req.SessionAmount != req.TotalAmount {
		return nil, fmt.Errorf("%w: total %d is not platform fee %d plus session %d",
			lifecycle.ErrInvalidInput, req.TotalAmount, req.PlatformFeeAmount, req.SessionAmount)
	}

	now := s.clock.Now()
	start := req.ScheduledStart.UTC()
	if !start.After(now) {
		return nil, fmt.Errorf("%w: scheduled start must be in the future", lifecycle.ErrInvalidInput)
	}

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = s.currency
	}

	booking := &entity.Booking{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ClientID:             actor.ID,
		ProfessionalID:       professionalID,
		ScheduledStart:       start,
		DurationHours:        req.DurationHours,
		TotalAmount:          req.TotalAmount,
		PlatformFeeAmount:    req.PlatformFeeAmount,
		SessionAmount:        req.SessionAmount,
		Currency:             currency,
		Status:               entity.BookingStatusRequested,
		PaymentStatus:        entity.PaymentStatusPending,
		CancellationDeadline: s.machine.Policy().CancellationDeadline(start),
		Version:              1,
	}

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		s.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("client_id", actor.ID.String()),
			zap.String("professional_id", professionalID.String()),
		)
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.log.Info("Booking requested",
		zap.String("booking_id", booking.ID.String()),
		zap.String("client_id", actor.ID.String()),
		zap.String("professional_id", professionalID.String()),
		zap.Int64("total_amount", booking.TotalAmount),
	)

	return s.machine.Project(*booking, nil, entity.RoleClient, now)
}

func (s *bookingService) GetBooking(ctx context.Context, actor utils.Actor, bookingID string) (lifecycle.View, error) {
	id, err := parseBookingID(bookingID)
	if err != nil {
		return nil, err
	}
	role, err := actorRole(actor)
	if err != nil {
		return nil, err
	}

	b, now, err := s.loadSettled(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(b, actor, role); err != nil {
		return nil, err
	}

	return s.project(ctx, b, role, now)
}

func (s *bookingService) ListBookings(ctx context.Context, actor utils.Actor, req *request.PaginatedRequest) (*response.PaginatedResponse[lifecycle.View], error) {
	role, err := actorRole(actor)
	if err != nil {
		return nil, err
	}

	limit := req.Limit()
	offset := req.Offset()

	bookings, err := s.repo.Booking.FindByParticipant(ctx, role, actor.ID, limit, offset)
	if err != nil {
		s.log.Error("Failed to get participant bookings",
			zap.Error(err),
			zap.String("user_id", actor.ID.String()),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("get bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByParticipant(ctx, role, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	// listing derives expiry for display and leaves the commit to the next
	// single booking read or the sweeper
	now := s.clock.Now()
	views := make([]lifecycle.View, 0, len(bookings))
	for _, b := range bookings {
		view, err := s.project(ctx, b, role, now)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	return response.NewPaginatedResponse(views, page, limit, total), nil
}

func (s *bookingService) ListEvents(ctx context.Context, actor utils.Actor, bookingID string) ([]response.EventResponse, error) {
	id, err := parseBookingID(bookingID)
	if err != nil {
		return nil, err
	}
	role, err := actorRole(actor)
	if err != nil {
		return nil, err
	}

	b, _, err := s.loadSettled(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(b, actor, role); err != nil {
		return nil, err
	}

	events, err := s.repo.Event.FindByBookingID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking events: %w", err)
	}
	return response.EventsToResponse(events), nil
}

func (s *bookingService) PreviewRefund(ctx context.Context, actor utils.Actor, bookingID string) (*response.RefundPreviewResponse, error) {
	id, err := parseBookingID(bookingID)
	if err != nil {
		return nil, err
	}
	role, err := actorRole(actor)
	if err != nil {
		return nil, err
	}

	b, now, err := s.loadSettled(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(b, actor, role); err != nil {
		return nil, err
	}

	quote := s.machine.Policy().QuoteRefund(*b, now)
	res := response.QuoteToResponse(b, quote, now)
	return &res, nil
}

func (s *bookingService) Transition(ctx context.Context, actor utils.Actor, bookingID string, req *request.TransitionRequest) (*response.TransitionResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", lifecycle.ErrInvalidInput, utils.FormatValidationErrors(errs))
	}
	action, ok := lifecycle.ParseAction(req.Action)
	if !ok {
		return nil, fmt.Errorf("%w: unknown action %q", lifecycle.ErrInvalidInput, req.Action)
	}

	return s.run(ctx, actor, bookingID, actionInput{
		action:   action,
		expected: req.ExpectedVersion,
		reason:   strings.TrimSpace(req.Reason),
		token:    req.PaymentToken,
	})
}

func (s *bookingService) ConfirmSession(ctx context.Context, actor utils.Actor, bookingID string, req *request.SessionRequest) (*response.TransitionResponse, error) {
	return s.run(ctx, actor, bookingID, actionInput{action: lifecycle.ActionConfirmSession, expected: req.ExpectedVersion})
}

func (s *bookingService) EndSession(ctx context.Context, actor utils.Actor, bookingID string, req *request.SessionRequest) (*response.TransitionResponse, error) {
	return s.run(ctx, actor, bookingID, actionInput{action: lifecycle.ActionEndSession, expected: req.ExpectedVersion})
}

func (s *bookingService) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	now := s.clock.Now()
	candidates, err := s.repo.Booking.FindSettleCandidates(ctx, now.Add(-s.machine.Policy().RequestExpiry), now, s.sweepBatch)
	if err != nil {
		return report, fmt.Errorf("find settle candidates: %w", err)
	}

	for _, c := range candidates {
		settled, err := s.settleByID(ctx, c.ID)
		if err != nil {
			report.Failed++
			s.log.Error("Failed to settle booking", zap.Error(err), zap.String("booking_id", c.ID.String()))
			continue
		}
		if settled.Status == c.Status {
			continue
		}
		switch settled.Status {
		case entity.BookingStatusCancelled:
			report.Expired++
		case entity.BookingStatusCompleted:
			report.Completed++
		}
	}

	return report, nil
}

// loadSettled returns the booking after any due system transition, along
// with the instant that was evaluated.
func (s *bookingService) loadSettled(ctx context.Context, id uuid.UUID) (*entity.Booking, time.Time, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.find(ctx, id)
	if err != nil {
		return nil, time.Time{}, err
	}
	now := s.clock.Now()
	b, err = s.settle(ctx, b, now)
	if err != nil {
		return nil, time.Time{}, err
	}
	return b, now, nil
}

type actionInput struct {
	action   lifecycle.Action
	expected int64
	reason   string
	token    string
}

func (s *bookingService) run(ctx context.Context, actor utils.Actor, bookingID string, in actionInput) (resp *response.TransitionResponse, err error) {
	id, err := parseBookingID(bookingID)
	if err != nil {
		return nil, err
	}
	role, err := actorRole(actor)
	if err != nil {
		return nil, err
	}

	ctx, span := s.startSpan(ctx, "booking."+string(in.action), id)
	span.SetAttributes(attribute.String("actor.role", string(role)))
	defer func() { endSpan(span, err) }()

	cmd := lifecycle.Command{
		Action:          in.action,
		ActorID:         actor.ID,
		Role:            role,
		ExpectedVersion: in.expected,
		Reason:          in.reason,
	}
	res, err := s.apply(ctx, id, cmd, in.token)
	if err != nil {
		s.log.Warn("Booking action rejected",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("action", string(in.action)),
			zap.String("role", string(role)),
		)
		return nil, err
	}

	view, err := s.project(ctx, &res.Booking, role, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return &response.TransitionResponse{
		Booking: view,
		Changed: res.Changed,
		Events:  response.EventsToResponse(res.Events),
	}, nil
}

// apply runs one command under the booking lock: settle, validate, call
// collaborators, apply, commit. A capture that cannot be committed is refunded.
func (s *bookingService) apply(ctx context.Context, id uuid.UUID, cmd lifecycle.Command, token string) (lifecycle.Result, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.find(ctx, id)
	if err != nil {
		return lifecycle.Result{}, err
	}

	now := s.clock.Now()
	if b, err = s.settle(ctx, b, now); err != nil {
		return lifecycle.Result{}, err
	}
	cmd.At = now

	if err := s.machine.Validate(*b, cmd); err != nil {
		return lifecycle.Result{Booking: *b}, err
	}
	if s.machine.IsRepeat(*b, cmd) {
		return lifecycle.Result{Booking: *b}, nil
	}

	captured, err := s.callCollaborators(ctx, b, &cmd, token)
	if err != nil {
		return lifecycle.Result{Booking: *b}, err
	}

	res, err := s.machine.Apply(*b, cmd)
	if err != nil && cmd.Payment != nil && !cmd.Payment.Paid {
		return s.declined(ctx, b, cmd, err)
	}
	if err == nil {
		err = s.commit(ctx, b, res)
	}
	if err != nil {
		if captured != "" {
			s.compensate(ctx, b, captured)
		}
		if cmd.Refund != nil && cmd.Refund.Refunded {
			s.log.Error("Refund issued but cancellation was not committed",
				zap.Error(err),
				zap.String("booking_id", b.ID.String()),
				zap.String("refund_reference", cmd.Refund.Reference),
			)
		}
		return lifecycle.Result{Booking: *b}, err
	}

	s.log.Info("Booking action applied",
		zap.String("booking_id", b.ID.String()),
		zap.String("action", string(cmd.Action)),
		zap.String("from", string(b.Status)),
		zap.String("to", string(res.Booking.Status)),
		zap.Int64("version", res.Booking.Version),
	)
	return res, nil
}

// declined commits PaymentStatus=Failed after a refused capture and hands
// back the capture error.
func (s *bookingService) declined(ctx context.Context, b *entity.Booking, cmd lifecycle.Command, cause error) (lifecycle.Result, error) {
	res := s.machine.DeclinePayment(*b, cmd.At)
	if err := s.commit(ctx, b, res); err != nil {
		s.log.Warn("Failed to record declined payment",
			zap.Error(err),
			zap.String("booking_id", b.ID.String()),
		)
		return lifecycle.Result{Booking: *b}, cause
	}
	return res, cause
}

// callCollaborators fills in the outcomes the command needs. It returns the
// charge reference when money was captured.
func (s *bookingService) callCollaborators(ctx context.Context, b *entity.Booking, cmd *lifecycle.Command, token string) (string, error) {
	switch cmd.Action {
	case lifecycle.ActionPay:
		if token == "" {
			return "", fmt.Errorf("%w: payment_token is required to pay", lifecycle.ErrInvalidInput)
		}
		return s.capture(ctx, b, cmd, token)

	case lifecycle.ActionVerifyIdentity:
		res, err := s.identity.Verify(ctx, gateway.IdentityRequest{
			BookingID:      b.ID,
			ClientID:       b.ClientID,
			ProfessionalID: b.ProfessionalID,
		})
		if err != nil {
			return "", fmt.Errorf("%w: identity verification: %w", lifecycle.ErrCollaboratorFailure, err)
		}
		cmd.Identity = &lifecycle.IdentityOutcome{
			ClientVerified:       res.ClientVerified,
			ProfessionalVerified: res.ProfessionalVerified,
		}

	case lifecycle.ActionCancel:
		amount := s.machine.Policy().RefundAmount(*b, cmd.At)
		if amount > 0 {
			if err := s.refund(ctx, b, cmd, amount); err != nil {
				return "", err
			}
		}
	}
	return "", nil
}

func (s *bookingService) capture(ctx context.Context, b *entity.Booking, cmd *lifecycle.Command, token string) (string, error) {
	res, err := s.payments.Capture(ctx, gateway.CaptureRequest{
		BookingID: b.ID,
		Amount:    b.TotalAmount,
		Currency:  b.Currency,
		Token:     token,
	})
	if err != nil {
		s.recordAttempt(ctx, b.ID, entity.PaymentKindCapture, b.TotalAmount, entity.PaymentStatusFailed, "", err.Error())
		return "", fmt.Errorf("%w: payment capture: %w", lifecycle.ErrCollaboratorFailure, err)
	}

	cmd.Payment = &lifecycle.PaymentOutcome{Paid: res.Paid, Reference: res.Reference, Reason: res.Reason}
	if !res.Paid {
		s.recordAttempt(ctx, b.ID, entity.PaymentKindCapture, b.TotalAmount, entity.PaymentStatusFailed, res.Reference, res.Reason)
		return "", nil
	}

	s.recordAttempt(ctx, b.ID, entity.PaymentKindCapture, b.TotalAmount, entity.PaymentStatusPaid, res.Reference, "")
	return res.Reference, nil
}

func (s *bookingService) refund(ctx context.Context, b *entity.Booking, cmd *lifecycle.Command, amount int64) error {
	if b.PaymentReference == nil {
		return fmt.Errorf("%w: paid booking has no charge reference", lifecycle.ErrGuardNotSatisfied)
	}

	res, err := s.payments.Refund(ctx, gateway.RefundRequest{
		BookingID: b.ID,
		ChargeID:  *b.PaymentReference,
		Amount:    amount,
	})
	if err != nil {
		s.recordAttempt(ctx, b.ID, entity.PaymentKindRefund, amount, entity.PaymentStatusFailed, "", err.Error())
		return fmt.Errorf("%w: refund: %w", lifecycle.ErrCollaboratorFailure, err)
	}

	status := entity.PaymentStatusRefunded
	if !res.Refunded {
		status = entity.PaymentStatusFailed
	}
	s.recordAttempt(ctx, b.ID, entity.PaymentKindRefund, amount, status, res.Reference, "")

	cmd.Refund = &lifecycle.RefundOutcome{Refunded: res.Refunded, Amount: res.Amount, Reference: res.Reference}
	return nil
}

// compensate returns a capture whose transition was never committed.
func (s *bookingService) compensate(ctx context.Context, b *entity.Booking, chargeID string) {
	ctx = context.WithoutCancel(ctx)

	res, err := s.payments.Refund(ctx, gateway.RefundRequest{BookingID: b.ID, ChargeID: chargeID, Amount: b.TotalAmount})
	if err != nil || !res.Refunded {
		s.recordAttempt(ctx, b.ID, entity.PaymentKindRefund, b.TotalAmount, entity.PaymentStatusFailed, res.Reference, "compensation failed")
		s.log.Error("Failed to refund uncommitted capture",
			zap.Error(err),
			zap.String("booking_id", b.ID.String()),
			zap.String("charge_id", chargeID),
		)
		return
	}

	s.recordAttempt(ctx, b.ID, entity.PaymentKindRefund, b.TotalAmount, entity.PaymentStatusRefunded, res.Reference, "")
	s.log.Warn("Refunded uncommitted capture", zap.String("booking_id", b.ID.String()), zap.String("charge_id", chargeID))
}

// recordAttempt logs a gateway call. A failure to record never fails the action.
func (s *bookingService) recordAttempt(ctx context.Context, bookingID uuid.UUID, kind entity.PaymentKind, amount int64, status entity.PaymentStatus, ref, reason string) {
	attempt := &entity.PaymentAttempt{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: s.clock.Now()},
		BookingID:  bookingID,
		Kind:       kind,
		Amount:     amount,
		Status:     status,
	}
	if ref != "" {
		attempt.Reference = &ref
	}
	if reason != "" {
		attempt.FailureReason = &reason
	}

	if err := s.repo.Payment.Create(ctx, attempt); err != nil {
		s.log.Warn("Failed to record payment attempt", zap.Error(err), zap.String("booking_id", bookingID.String()))
	}
}
