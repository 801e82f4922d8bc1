package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTSecret = "JWT_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvPaymentKeyID         = "PAYMENT_KEY_ID"
	EnvPaymentKeySecret     = "PAYMENT_KEY_SECRET"
	EnvPaymentWebhookSecret = "PAYMENT_WEBHOOK_SECRET"
	EnvPaymentAPIURL        = "PAYMENT_API_URL"
	EnvPaymentCurrency      = "PAYMENT_CURRENCY"
	EnvPaymentAPITimeout    = "PAYMENT_API_TIMEOUT"

	EnvAdvancePercent    = "ADVANCE_PERCENT"
	EnvDefaultOpenTime   = "DEFAULT_OPEN_TIME"
	EnvDefaultCloseTime  = "DEFAULT_CLOSE_TIME"
	EnvPendingBookingTTL = "PENDING_BOOKING_TTL"
	EnvSweepInterval     = "SWEEP_INTERVAL"

	EnvKafkaBrokers       = "KAFKA_BROKERS"
	EnvBookingEventsTopic = "BOOKING_EVENTS_TOPIC"
	EnvBookingEventsGroup = "BOOKING_EVENTS_GROUP"
)
