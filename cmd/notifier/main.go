package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"turfbook/internal/events"
	"turfbook/internal/metrics"
	"turfbook/pkg/config"
	"turfbook/pkg/kafka"
	kafkamw "turfbook/pkg/kafka/middleware"
)

const ServiceName = "booking-notifier"

func main() {
	cfg := config.Load(ServiceName)
	if !cfg.EventsEnabled() {
		cfg.Log.Fatal("Notifier requires KAFKA_BROKERS")
	}

	registry := metrics.NewRegistry()
	notifier := events.NewNotifier(cfg.Log)

	consumer, err := kafka.NewConsumer(kafka.NewConfig(cfg.KafkaBrokers), cfg.BookingEventsTopic, cfg.BookingEventsGroup, notifier.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafkamw.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(kafkamw.NewMetrics(registry).Consumer())

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           metrics.Handler(registry),
		ReadHeaderTimeout: cfg.ReadTimeout,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Log.Error("Metrics server failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting booking notifier", "topic", cfg.BookingEventsTopic, "group", cfg.BookingEventsGroup)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		cfg.Log.Error("Metrics server shutdown failed", "error", err)
	}
	cfg.Log.Info("Booking notifier stopped")
}
