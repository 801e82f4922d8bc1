package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBuilder(t *testing.T) {
	msg, err := NewMessage().
		WithKey("booking-1").
		WithValue(map[string]string{"status": "pending"}).
		WithEventType("booking.created").
		WithCorrelationID("req-1").
		WithSource("bookings").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "booking-1", msg.Key)
	assert.JSONEq(t, `{"status":"pending"}`, string(msg.Value))
	assert.Equal(t, "booking.created", msg.GetEventType())
	assert.Equal(t, "req-1", msg.GetCorrelationID())
	assert.NotEmpty(t, msg.GetEventID())
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])

	var decoded map[string]string
	require.NoError(t, msg.DecodeValue(&decoded))
	assert.Equal(t, "pending", decoded["status"])
}

func TestMessageBuilder_EncodeError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	require.Error(t, err)
}

func TestRetryCount(t *testing.T) {
	msg := Message{}
	assert.Equal(t, 0, msg.GetRetryCount())
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	assert.Equal(t, 12, msg.GetRetryCount())
	assert.Equal(t, "12", msg.Headers[HeaderRetryCount])
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeUnknown},
		{"tagged transient", NewTransientError("db down", errors.New("x")), ErrorTypeTransient},
		{"tagged permanent", NewPermanentError("bad payload", errors.New("x")), ErrorTypePermanent},
		{"wrapped tagged", fmt.Errorf("outer: %w", NewTransientError("t", nil)), ErrorTypeTransient},
		{"deadline", context.DeadlineExceeded, ErrorTypeTransient},
		{"network text", errors.New("dial tcp: Connection Refused"), ErrorTypeTransient},
		{"unknown", errors.New("boom"), ErrorTypePermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestShouldRetry(t *testing.T) {
	transient := NewTransientError("t", nil)
	assert.True(t, ShouldRetry(transient, 0, 3))
	assert.False(t, ShouldRetry(transient, 3, 3))
	assert.False(t, ShouldRetry(errors.New("boom"), 0, 3))
	assert.False(t, ShouldRetry(nil, 0, 3))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, NewConfig([]string{"localhost:9092"}).Validate())

	cfg := NewConfig(nil)
	cfg.ProducerCompression = "brotli"
	cfg.ConsumerStartOffset = 7
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "At least one Kafka broker is required")
	assert.Contains(t, err.Error(), "ProducerCompression")
	assert.Contains(t, err.Error(), "ConsumerStartOffset")
}

func TestWrapChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) ProducerMiddleware {
		return func(ctx context.Context, msg Message, next MessageHandler) error {
			order = append(order, name)
			return next(ctx, msg)
		}
	}
	handler := wrapChain([]ProducerMiddleware{mw("outer"), mw("inner")}, func(context.Context, Message) error {
		order = append(order, "final")
		return nil
	})
	require.NoError(t, handler(context.Background(), Message{}))
	assert.Equal(t, []string{"outer", "inner", "final"}, order)
}
