package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"turfbook/internal/bookings"
	"turfbook/internal/bookings/sweeper"
	"turfbook/internal/metrics"
	"turfbook/pkg/config"
)

const JobName = "booking-sweeper"

func main() {
	cfg := config.Load(JobName)
	if cfg.PendingBookingTTL <= 0 {
		cfg.Log.Info("Pending booking expiry disabled, set PENDING_BOOKING_TTL to enable")
		return
	}
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	registry := metrics.NewRegistry()
	publisher, err := bookings.NewPublisher(cfg, registry, JobName)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize event publisher", "error", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}()

	bookingService := bookings.NewService(cfg, registry, nil, publisher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sweeper.New(bookingService, cfg.PendingBookingTTL, cfg.SweepInterval, cfg.Log).Run(ctx); err != nil {
		cfg.Log.Error("Sweeper exited with error", "error", err)
	}
}
