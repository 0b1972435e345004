package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"companion-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSink struct {
	events []entity.BookingEvent
	err    error
}

func (s *recordingSink) Publish(_ context.Context, e entity.BookingEvent) error {
	s.events = append(s.events, e)
	return s.err
}

type recordingPublisher struct {
	key, id string
	body    any
}

func (p *recordingPublisher) PublishJSON(_ context.Context, key, id string, v any) error {
	p.key, p.id, p.body = key, id, v
	return nil
}

func cancelledEvent() entity.BookingEvent {
	return entity.BookingEvent{
		ID:        uuid.New(),
		BookingID: uuid.New(),
		Version:   4,
		Name:      entity.EventBookingStatusChanged,
		From:      entity.BookingStatusConfirmed,
		To:        entity.BookingStatusCancelled,
		Action:    "cancel",
		ActorRole: entity.RoleClient,
		ActorID:   uuid.New(),
		At:        time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC),
	}
}

func TestRabbitSinkRoutesByTargetStatus(t *testing.T) {
	pub := &recordingPublisher{}
	e := cancelledEvent()

	require.NoError(t, NewRabbitSink(pub).Publish(context.Background(), e))

	assert.Equal(t, "booking.cancelled", pub.key)
	assert.Equal(t, e.ID.String(), pub.id)
	msg, ok := pub.body.(Message)
	require.True(t, ok)
	assert.Equal(t, "confirmed", msg.From)
	assert.Equal(t, "2026-03-02T23:00:00Z", msg.At)
	assert.Equal(t, e.ActorID.String(), msg.ActorID)
}

func TestMessageOmitsSystemActor(t *testing.T) {
	e := cancelledEvent()
	e.ActorRole = entity.RoleSystem
	e.ActorID = uuid.Nil

	assert.Empty(t, NewMessage(e).ActorID)
}

func TestEmitterSwallowsSinkFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	sink := &recordingSink{err: errors.New("broker down")}
	em := NewEmitter(sink, zap.New(core))

	events := []entity.BookingEvent{cancelledEvent(), cancelledEvent()}
	em.Emit(context.Background(), events)

	assert.Len(t, sink.events, 2)
	assert.Equal(t, 2, logs.FilterMessage("Failed to publish booking event").Len())
}

func TestEmitterIgnoresCancelledRequestContext(t *testing.T) {
	sink := &recordingSink{}
	em := NewEmitter(sink, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	em.Emit(ctx, []entity.BookingEvent{cancelledEvent()})

	assert.Len(t, sink.events, 1)
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	ok := &recordingSink{}
	bad := &recordingSink{err: errors.New("nope")}

	err := MultiSink{ok, bad, NewLogSink(zap.NewNop())}.Publish(context.Background(), cancelledEvent())

	require.Error(t, err)
	assert.Len(t, ok.events, 1)
	assert.Len(t, bad.events, 1)
}
