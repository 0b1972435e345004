package notifier

import (
	"context"
	"fmt"

	"companion-booking/internal/data/entity"
)

// JSONPublisher is satisfied by *mq.Publisher.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, key string, messageID string, v any) error
}

// RabbitSink publishes events to the topic exchange, one routing key per
// target status. The event id is the message id so consumers can dedupe.
type RabbitSink struct {
	pub JSONPublisher
}

func NewRabbitSink(pub JSONPublisher) *RabbitSink {
	return &RabbitSink{pub: pub}
}

func (s *RabbitSink) Publish(ctx context.Context, e entity.BookingEvent) error {
	if err := s.pub.PublishJSON(ctx, RoutingKey(e), e.ID.String(), NewMessage(e)); err != nil {
		return fmt.Errorf("publish %s for booking %s: %w", RoutingKey(e), e.BookingID, err)
	}
	return nil
}
