package response

import (
	"time"

	"companion-booking/internal/data/entity"
	"companion-booking/internal/lifecycle"
)

// TransitionResponse is returned by every lifecycle action. Changed is
// false when the action repeated one that had already taken effect.
type TransitionResponse struct {
	Booking lifecycle.View  `json:"booking"`
	Changed bool            `json:"changed"`
	Events  []EventResponse `json:"events"`
}

type RefundPreviewResponse struct {
	BookingID          string    `json:"booking_id"`
	Amount             int64     `json:"amount"`
	Percent            int64     `json:"percent"`
	Currency           string    `json:"currency"`
	HoursUntilDeadline float64   `json:"hours_until_deadline"`
	Frozen             bool      `json:"frozen"`
	QuotedAt           time.Time `json:"quoted_at"`
}

type EventResponse struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	From      entity.BookingStatus `json:"from"`
	To        entity.BookingStatus `json:"to"`
	Action    string               `json:"action"`
	ActorRole entity.Role          `json:"actor_role"`
	Version   int64                `json:"version"`
	At        time.Time            `json:"at"`
}

// Helper converters
func EventToResponse(e entity.BookingEvent) EventResponse {
	return EventResponse{
		ID:        e.ID.String(),
		Name:      e.Name,
		From:      e.From,
		To:        e.To,
		Action:    e.Action,
		ActorRole: e.ActorRole,
		Version:   e.Version,
		At:        e.At,
	}
}

func EventsToResponse(events []entity.BookingEvent) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventToResponse(e))
	}
	return out
}

func QuoteToResponse(b *entity.Booking, q lifecycle.Quote, at time.Time) RefundPreviewResponse {
	return RefundPreviewResponse{
		BookingID:          b.ID.String(),
		Amount:             q.Amount,
		Percent:            q.Percent,
		Currency:           b.Currency,
		HoursUntilDeadline: q.UntilDeadline.Hours(),
		Frozen:             q.Frozen,
		QuotedAt:           at,
	}
}
