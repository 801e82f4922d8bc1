package events

import (
	"context"
	"fmt"

	"turfbook/pkg/kafka"
	"turfbook/pkg/middleware"
	"turfbook/pkg/model"
)

type producer interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	producer producer
	source   string
}

func NewKafkaPublisher(p *kafka.Producer, source string) *KafkaPublisher {
	return &KafkaPublisher{producer: p, source: source}
}

func (k *KafkaPublisher) Publish(ctx context.Context, eventType Type, booking *model.Booking) error {
	msg, err := NewMessage(ctx, eventType, booking, k.source)
	if err != nil {
		return err
	}
	if err := k.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s for booking %s: %w", eventType, booking.ID, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}

// NewMessage encodes a booking event keyed by booking id. The request id on
// ctx, when present, becomes the correlation id.
func NewMessage(ctx context.Context, eventType Type, booking *model.Booking, source string) (kafka.Message, error) {
	correlationID, _ := ctx.Value(middleware.RequestIDKey).(string)
	return kafka.NewMessage().
		WithKey(booking.ID).
		WithValue(NewBookingEvent(eventType, booking)).
		WithEventType(string(eventType)).
		WithSchemaVersion(SchemaVersion).
		WithSource(source).
		WithCorrelationID(correlationID).
		Build()
}
