package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		MongoURI:          DefaultMongoURI,
		MongoDatabaseName: DefaultMongoDatabaseName,
		MongoConnTimeout:  DefaultMongoConnTimeout,
		Port:              DefaultPort,
		JWTSecret:         "jwt-secret",
		RateLimitRequests: DefaultRateLimitRequests,
		RateLimitWindow:   DefaultRateLimitWindow,
		RequestTimeout:    DefaultRequestTimeout,
		IdempotencyTTL:    DefaultIdempotencyTTL,
		MaxRequestSize:    DefaultMaxRequestSize,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		ShutdownTimeout:   DefaultShutdownTimeout,
		PaymentKeySecret:  "payment-secret",
		PaymentCurrency:   DefaultPaymentCurrency,
		PaymentAPIURL:     DefaultPaymentAPIURL,
		PaymentAPITimeout: DefaultPaymentAPITimeout,
		AdvancePercent:    DefaultAdvancePercent,
		DefaultOpenTime:   DefaultOpenTime,
		DefaultCloseTime:  DefaultCloseTime,
		SweepInterval:     DefaultSweepInterval,
	}
}

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "99999"
	cfg.PaymentCurrency = "RUPEE"
	cfg.AdvancePercent = 0
	cfg.DefaultOpenTime = "6am"
	cfg.PendingBookingTTL = -time.Minute

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "Port must be between 1 and 65535")
	assert.Contains(t, msg, "PaymentCurrency must be an ISO 4217 code")
	assert.Contains(t, msg, "AdvancePercent must be between 1 and 100")
	assert.Contains(t, msg, "DefaultOpenTime must be in HH:MM format")
	assert.Contains(t, msg, "PendingBookingTTL cannot be negative")
}

func TestRequireSecrets(t *testing.T) {
	cfg := validConfig()
	err := cfg.RequireSecrets()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PaymentKeyID cannot be empty")
	assert.NotContains(t, err.Error(), "JWTSecret")

	cfg.PaymentKeyID = "rzp_test"
	require.NoError(t, cfg.RequireSecrets())
}

func TestValidate_CloseMustFollowOpen(t *testing.T) {
	cfg := validConfig()
	cfg.DefaultOpenTime = "22:00"
	cfg.DefaultCloseTime = "06:00"
	require.Error(t, cfg.Validate())
}

func TestValidate_DefaultHoursMustBeOnGrid(t *testing.T) {
	cfg := validConfig()
	cfg.DefaultCloseTime = "22:15"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must form a range on the 30-minute grid")

	cfg.DefaultCloseTime = "22:30"
	require.NoError(t, cfg.Validate())
	hours, err := cfg.DefaultOperatingHours()
	require.NoError(t, err)
	assert.Equal(t, "06:00-22:30", hours.String())
}

func TestValidate_EventsNeedTopic(t *testing.T) {
	cfg := validConfig()
	cfg.KafkaBrokers = []string{"localhost:9092"}
	cfg.BookingEventsTopic = ""
	require.Error(t, cfg.Validate())
	assert.True(t, cfg.EventsEnabled())
}

func TestRedactMongoURI(t *testing.T) {
	assert.Equal(t, "mongodb://***:***@db:27017", redactMongoURI("mongodb://admin:hunter2@db:27017"))
	assert.Equal(t, DefaultMongoURI, redactMongoURI(DefaultMongoURI))
}

func TestGetEnvList(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, " broker-1:9092, ,broker-2:9092 ")
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, getEnvList(EnvKafkaBrokers))
}

func TestNormalizePagination(t *testing.T) {
	assert.Equal(t, DefaultPageSize, NormalizePaginationLimit(0))
	assert.Equal(t, DefaultPaginationLimit, NormalizePaginationLimit(10_000))
	assert.Equal(t, 25, NormalizePaginationLimit(25))
	assert.Equal(t, int64(0), NormalizeOffset(-5))
}
