package notifier

import (
	"context"
	"errors"
	"time"

	"companion-booking/internal/data/entity"

	"go.uber.org/zap"
)

// Sink delivers booking events to some audience, e.g. a broker or a log.
type Sink interface {
	Publish(ctx context.Context, event entity.BookingEvent) error
}

// Message is the wire shape of a status change.
type Message struct {
	EventID   string `json:"event_id"`
	Name      string `json:"name"`
	BookingID string `json:"booking_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Action    string `json:"action"`
	ActorRole string `json:"actor_role"`
	ActorID   string `json:"actor_id,omitempty"`
	Version   int64  `json:"version"`
	At        string `json:"at"`
}

func NewMessage(e entity.BookingEvent) Message {
	m := Message{
		EventID:   e.ID.String(),
		Name:      e.Name,
		BookingID: e.BookingID.String(),
		From:      string(e.From),
		To:        string(e.To),
		Action:    e.Action,
		ActorRole: string(e.ActorRole),
		Version:   e.Version,
		At:        e.At.UTC().Format(time.RFC3339),
	}
	if e.ActorRole != entity.RoleSystem {
		m.ActorID = e.ActorID.String()
	}
	return m
}

// RoutingKey is "booking.<new status>", e.g. booking.cancelled.
func RoutingKey(e entity.BookingEvent) string {
	return "booking." + string(e.To)
}

// Emitter publishes committed events to its sink. Delivery is fire and
// forget: failures are logged and never reach the caller.
type Emitter struct {
	sink    Sink
	timeout time.Duration
	log     *zap.Logger
}

func NewEmitter(sink Sink, log *zap.Logger) *Emitter {
	return &Emitter{
		sink:    sink,
		timeout: 5 * time.Second,
		log:     log.With(zap.String("component", "notifier")),
	}
}

func (e *Emitter) Emit(ctx context.Context, events []entity.BookingEvent) {
	if e == nil || e.sink == nil || len(events) == 0 {
		return
	}

	// the request may be gone by the time we publish
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	for _, ev := range events {
		if err := e.sink.Publish(ctx, ev); err != nil {
			e.log.Warn("Failed to publish booking event",
				zap.Error(err),
				zap.String("booking_id", ev.BookingID.String()),
				zap.String("to", string(ev.To)),
				zap.Int64("version", ev.Version),
			)
		}
	}
}

// MultiSink fans out to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, event entity.BookingEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes each event to the structured log.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.With(zap.String("sink", "log"))}
}

func (s *LogSink) Publish(_ context.Context, e entity.BookingEvent) error {
	s.log.Info("Booking status changed",
		zap.String("booking_id", e.BookingID.String()),
		zap.String("from", string(e.From)),
		zap.String("to", string(e.To)),
		zap.String("action", e.Action),
		zap.String("actor_role", string(e.ActorRole)),
		zap.Int64("version", e.Version),
	)
	return nil
}
