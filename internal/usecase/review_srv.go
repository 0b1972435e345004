package usecase

import (
	"context"
	"errors"
	"fmt"

	"companion-booking/internal/data/repository"
	"companion-booking/internal/dto/request"
	"companion-booking/internal/dto/response"
	"companion-booking/internal/lifecycle"
	"companion-booking/pkg/utils"

	"go.uber.org/zap"
)

type ReviewService interface {
	SubmitReview(ctx context.Context, actor utils.Actor, bookingID string, req *request.SubmitReviewRequest) (*response.ReviewResponse, error)
	ListReviews(ctx context.Context, actor utils.Actor, bookingID string) ([]response.ReviewResponse, error)
}

type reviewService struct {
	*core
}

func newReviewService(c *core, log *zap.Logger) ReviewService {
	scoped := *c
	scoped.log = log.With(zap.String("service", "review"))
	return &reviewService{core: &scoped}
}

func (s *reviewService) SubmitReview(ctx context.Context, actor utils.Actor, bookingID string, req *request.SubmitReviewRequest) (resp *response.ReviewResponse, err error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Submit review validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", lifecycle.ErrInvalidInput, utils.FormatValidationErrors(errs))
	}

	id, err := parseBookingID(bookingID)
	if err != nil {
		return nil, err
	}
	role, err := actorRole(actor)
	if err != nil {
		return nil, err
	}

	ctx, span := s.startSpan(ctx, "review.submit", id)
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	b, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	// a session that ran out its timer completes here and opens the window
	if b, err = s.settle(ctx, b, now); err != nil {
		return nil, err
	}

	existing, err := s.repo.Review.FindByBookingID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load reviews of booking %s: %w", id, err)
	}

	in := lifecycle.ReviewInput{
		ReviewerRole: role,
		ReviewerID:   actor.ID,
		Rating:       req.Rating,
		Aspects:      req.Aspects,
		At:           now,
	}
	if req.Comment != nil {
		in.Comment = *req.Comment
	}
	if err := s.machine.Policy().CheckReview(*b, in, existing); err != nil {
		return nil, err
	}

	review := lifecycle.NewReview(*b, in)
	if err := s.repo.Review.Create(ctx, &review); err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) {
			return nil, fmt.Errorf("%w: %w", lifecycle.ErrReviewAlreadySubmitted, err)
		}
		s.log.Error("Failed to create review",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("reviewer_role", string(role)),
		)
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.log.Info("Review submitted",
		zap.String("booking_id", id.String()),
		zap.String("reviewer_role", string(role)),
		zap.Int("rating", review.Rating),
	)

	res := response.ReviewToResponse(&review)
	return &res, nil
}

func (s *reviewService) ListReviews(ctx context.Context, actor utils.Actor, bookingID string) ([]response.ReviewResponse, error) {
	id, err := parseBookingID(bookingID)
	if err != nil {
		return nil, err
	}
	role, err := actorRole(actor)
	if err != nil {
		return nil, err
	}

	b, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(b, actor, role); err != nil {
		return nil, err
	}

	reviews, err := s.repo.Review.FindByBookingID(ctx, id)
	if err != nil {
		s.log.Error("Failed to get booking reviews", zap.Error(err), zap.String("booking_id", id.String()))
		return nil, fmt.Errorf("get booking reviews: %w", err)
	}

	out := make([]response.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		out = append(out, response.ReviewToResponse(&reviews[i]))
	}
	return out, nil
}
