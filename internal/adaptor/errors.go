package adaptor

import (
	"errors"
	"net/http"

	"companion-booking/internal/lifecycle"
	"companion-booking/pkg/utils"

	"go.uber.org/zap"
)

// statusFor maps lifecycle errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, lifecycle.ErrUnauthorizedActor):
		return http.StatusForbidden
	case errors.Is(err, lifecycle.ErrBookingNotFound):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrGuardNotSatisfied),
		errors.Is(err, lifecycle.ErrConcurrentModification),
		errors.Is(err, lifecycle.ErrReviewWindowExpired),
		errors.Is(err, lifecycle.ErrReviewAlreadySubmitted):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrCollaboratorFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs err and writes the matching response. On a
// conflict, current (if set) supplies the state the caller should retry from.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string, current func() any) {
	switch statusFor(err) {
	case http.StatusBadRequest:
		log.Warn("Invalid input for "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case http.StatusForbidden:
		log.Warn(operation+" failed - unauthorized actor", zap.Error(err), zap.String("operation", operation))
		utils.ResponseForbidden(w, err.Error())

	case http.StatusNotFound:
		log.Warn(operation+" failed - not found", zap.Error(err), zap.String("operation", operation))
		utils.ResponseNotFound(w, err.Error())

	case http.StatusConflict:
		log.Warn(operation+" failed - conflict", zap.Error(err), zap.String("operation", operation))
		var data any
		if current != nil {
			data = current()
		}
		utils.ResponseConflict(w, err.Error(), data)

	case http.StatusBadGateway:
		log.Error(operation+" failed - provider error", zap.Error(err), zap.String("operation", operation))
		utils.ResponseBadGateway(w, err.Error())

	default:
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
