package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "turfbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaymentAPIURL     = "https://api.razorpay.com"
	DefaultPaymentCurrency   = "INR"
	DefaultPaymentAPITimeout = 10 * time.Second

	DefaultAdvancePercent    = 25
	DefaultOpenTime          = "06:00"
	DefaultCloseTime         = "22:00"
	DefaultPendingBookingTTL = 0 * time.Minute
	DefaultSweepInterval     = 5 * time.Minute

	DefaultBookingEventsTopic = "booking-events"
	DefaultBookingEventsGroup = "turfbook-notifier"

	DefaultPaginationLimit = 100
	DefaultPageSize        = 10
)
