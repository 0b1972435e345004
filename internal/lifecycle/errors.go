package lifecycle

import "errors"

var (
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrUnauthorizedActor      = errors.New("unauthorized actor")
	ErrGuardNotSatisfied      = errors.New("guard not satisfied")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrReviewWindowExpired    = errors.New("review window expired")
	ErrReviewAlreadySubmitted = errors.New("review already submitted")
	ErrCollaboratorFailure    = errors.New("collaborator failure")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrInvalidInput           = errors.New("invalid input")
)
