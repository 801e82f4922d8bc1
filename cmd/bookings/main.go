package main

import (
	"context"

	"turfbook/internal/bookings"
	"turfbook/internal/bookings/handler"
	"turfbook/internal/metrics"
	"turfbook/pkg/app"
	"turfbook/pkg/auth"
	"turfbook/pkg/config"
	"turfbook/pkg/payment"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	if err := cfg.RequireSecrets(); err != nil {
		cfg.Log.Fatal("Missing credentials", "error", err)
	}
	cfg.SetMongo()

	cfg.Log.Info("Starting Bookings service")
	registry := metrics.NewRegistry()

	publisher, err := bookings.NewPublisher(cfg, registry, ServiceName)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize event publisher", "error", err)
	}

	gateway := payment.NewRazorpayClient(cfg.PaymentAPIURL, cfg.PaymentKeyID, cfg.PaymentKeySecret, cfg.PaymentAPITimeout)
	bookingService := bookings.NewService(cfg, registry, gateway, publisher)

	var webhookSigner *payment.Signer
	if cfg.PaymentWebhookSecret != "" {
		webhookSigner = payment.NewSigner(cfg.PaymentWebhookSecret)
		cfg.Log.Info("Payment webhook enabled")
	} else {
		cfg.Log.Warn("Payment webhook disabled, no webhook secret configured")
	}

	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown(publisher.Close)
	serverApp.SetApp(handler.NewBookingHandler(bookingService, webhookSigner, cfg.Log), app.Routes{
		Authenticator: auth.NewAuthenticator(cfg.JWTSecret),
		Readiness: map[string]handler.ReadinessCheck{
			"mongo": func(ctx context.Context) error {
				return cfg.Client.Mongo.Ping(ctx, nil)
			},
		},
		Metrics: metrics.Handler(registry),
	})
	serverApp.Run()
}
