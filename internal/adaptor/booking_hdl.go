package adaptor

import (
	"context"
	"encoding/json"
	"net/http"

	"companion-booking/internal/dto/request"
	"companion-booking/internal/dto/response"
	"companion-booking/internal/usecase"
	"companion-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// CreateBooking handles POST /api/bookings (client)
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := utils.GetActorFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	// Validate request
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), actor, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "create booking", nil)
		return
	}

	utils.ResponseCreated(w, "success", booking)
}

// ListBookings handles GET /api/bookings
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	actor, ok := utils.GetActorFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	// Parse query parameters
	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	bookings, err := h.service.ListBookings(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, h.log, err, "list bookings", nil)
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// GetBooking handles GET /api/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := utils.GetActorFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	booking, err := h.service.GetBooking(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.log, err, "get booking", nil)
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// Transition handles POST /api/bookings/{id}/transitions
func (h *BookingHandler) Transition(w http.ResponseWriter, r *http.Request) {
	actor, ok := utils.GetActorFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	id := chi.URLParam(r, "id")
	res, err := h.service.Transition(r.Context(), actor, id, &req)
	if err != nil {
		writeServiceError(w, h.log, err, req.Action, h.current(r, actor, id))
		return
	}

	utils.ResponseSuccess(w, "success", res)
}

// ConfirmSession handles POST /api/bookings/{id}/session/confirm
func (h *BookingHandler) ConfirmSession(w http.ResponseWriter, r *http.Request) {
	h.session(w, r, "confirm session", h.service.ConfirmSession)
}

// EndSession handles POST /api/bookings/{id}/session/end
func (h *BookingHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	h.session(w, r, "end session", h.service.EndSession)
}

type sessionCall func(ctx context.Context, actor utils.Actor, bookingID string, req *request.SessionRequest) (*response.TransitionResponse, error)

func (h *BookingHandler) session(w http.ResponseWriter, r *http.Request, operation string, call sessionCall) {
	actor, ok := utils.GetActorFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	id := chi.URLParam(r, "id")
	res, err := call(r.Context(), actor, id, &req)
	if err != nil {
		writeServiceError(w, h.log, err, operation, h.current(r, actor, id))
		return
	}

	utils.ResponseSuccess(w, "success", res)
}

// PreviewRefund handles GET /api/bookings/{id}/refund-preview
func (h *BookingHandler) PreviewRefund(w http.ResponseWriter, r *http.Request) {
	actor, ok := utils.GetActorFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	preview, err := h.service.PreviewRefund(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.log, err, "preview refund", nil)
		return
	}

	utils.ResponseSuccess(w, "success", preview)
}

// ListEvents handles GET /api/bookings/{id}/events
func (h *BookingHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := utils.GetActorFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	events, err := h.service.ListEvents(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.log, err, "list booking events", nil)
		return
	}

	utils.ResponseSuccess(w, "success", events)
}

// current loads the booking as the actor sees it now, for conflict responses.
func (h *BookingHandler) current(r *http.Request, actor utils.Actor, id string) func() any {
	return func() any {
		view, err := h.service.GetBooking(r.Context(), actor, id)
		if err != nil {
			return nil
		}
		return view
	}
}
