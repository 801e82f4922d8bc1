// Package bookings assembles the reservation core from configuration so every
// binary that touches bookings wires it the same way.
package bookings

import (
	"turfbook/internal/bookings/repository"
	"turfbook/internal/bookings/service"
	"turfbook/internal/bookings/validator"
	"turfbook/internal/events"
	"turfbook/internal/metrics"
	slotrepo "turfbook/internal/slots/repository"
	slotsvc "turfbook/internal/slots/service"
	venuerepo "turfbook/internal/venues/repository"
	"turfbook/pkg/config"
	"turfbook/pkg/kafka"
	kafkamw "turfbook/pkg/kafka/middleware"
	"turfbook/pkg/payment"

	"github.com/prometheus/client_golang/prometheus"
)

// NewService builds the booking service on the Mongo repositories. gateway
// may be nil for jobs that never open payment orders.
func NewService(cfg *config.Config, reg prometheus.Registerer, gateway payment.Gateway, publisher events.Publisher) service.BookingService {
	svc := service.NewBookingService(service.Dependencies{
		Bookings:  repository.NewMongoBookingRepository(cfg),
		Venues:    venuerepo.NewMongoVenueRepository(cfg),
		Ledger:    slotsvc.NewLedger(slotrepo.NewMongoSlotRepository(cfg), cfg.Log),
		Gateway:   gateway,
		Signer:    payment.NewSigner(cfg.PaymentKeySecret),
		Publisher: publisher,
		Metrics:   metrics.New(reg),
		Validator: validator.NewBookingValidator(cfg.Log),
	}, cfg)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return svc
}

// NewPublisher returns a Kafka-backed event publisher, or a no-op one when
// no brokers are configured.
func NewPublisher(cfg *config.Config, reg prometheus.Registerer, source string) (events.Publisher, error) {
	if !cfg.EventsEnabled() {
		cfg.Log.Info("Booking events disabled, no Kafka brokers configured")
		return events.Noop{}, nil
	}

	producer, err := kafka.NewProducer(kafka.NewConfig(cfg.KafkaBrokers), cfg.BookingEventsTopic, cfg.Log)
	if err != nil {
		return nil, err
	}
	producer.Use(kafkamw.LoggingProducerMiddleware(cfg.Log))
	producer.Use(kafkamw.NewMetrics(reg).Producer())

	cfg.Log.Info("Booking events enabled", "topic", cfg.BookingEventsTopic, "brokers", cfg.KafkaBrokers)
	return events.NewKafkaPublisher(producer, source), nil
}
