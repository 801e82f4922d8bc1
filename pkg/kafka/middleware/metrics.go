package kafka_middleware

import (
	"context"
	"time"

	"turfbook/pkg/kafka"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics counts published and consumed messages by event type and result.
type Metrics struct {
	published       *prometheus.CounterVec
	consumed        *prometheus.CounterVec
	publishDuration prometheus.Histogram
	consumeDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_messages_published_total",
			Help: "Messages published to Kafka.",
		}, []string{"event_type", "result"}),
		consumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Messages consumed from Kafka.",
		}, []string{"event_type", "result"}),
		publishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kafka_publish_duration_seconds",
			Help:    "Time spent publishing a message.",
			Buckets: prometheus.DefBuckets,
		}),
		consumeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kafka_consume_duration_seconds",
			Help:    "Time spent handling a consumed message.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.published, m.consumed, m.publishDuration, m.consumeDuration)
	return m
}

func (m *Metrics) Producer() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.publishDuration.Observe(time.Since(start).Seconds())
		m.published.WithLabelValues(msg.GetEventType(), result(err)).Inc()
		return err
	}
}

func (m *Metrics) Consumer() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.consumeDuration.Observe(time.Since(start).Seconds())
		m.consumed.WithLabelValues(msg.GetEventType(), result(err)).Inc()
		return err
	}
}

func result(err error) string {
	if err != nil {
		return resultFailure
	}
	return resultSuccess
}
