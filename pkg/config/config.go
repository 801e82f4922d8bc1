package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"turfbook/pkg/calendar"
	"turfbook/pkg/client"
	"turfbook/pkg/logger"
)

var (
	timeOfDayRegex  = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	mongoURIRegex   = regexp.MustCompile(`^mongodb(\+srv)?://`)
	credentialRegex = regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	JWTSecret string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	PaymentKeyID         string
	PaymentKeySecret     string
	PaymentWebhookSecret string
	PaymentAPIURL        string
	PaymentCurrency      string
	PaymentAPITimeout    time.Duration

	AdvancePercent    int
	DefaultOpenTime   string
	DefaultCloseTime  string
	PendingBookingTTL time.Duration
	SweepInterval     time.Duration

	KafkaBrokers       []string
	BookingEventsTopic string
	BookingEventsGroup string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		PaymentKeyID:         getEnvStr(EnvPaymentKeyID, ""),
		PaymentKeySecret:     getEnvStr(EnvPaymentKeySecret, ""),
		PaymentWebhookSecret: getEnvStr(EnvPaymentWebhookSecret, ""),
		PaymentAPIURL:        getEnvStr(EnvPaymentAPIURL, DefaultPaymentAPIURL),
		PaymentCurrency:      getEnvStr(EnvPaymentCurrency, DefaultPaymentCurrency),
		PaymentAPITimeout:    getEnvDuration(EnvPaymentAPITimeout, DefaultPaymentAPITimeout),

		AdvancePercent:    getEnvNum(EnvAdvancePercent, DefaultAdvancePercent),
		DefaultOpenTime:   getEnvStr(EnvDefaultOpenTime, DefaultOpenTime),
		DefaultCloseTime:  getEnvStr(EnvDefaultCloseTime, DefaultCloseTime),
		PendingBookingTTL: getEnvDuration(EnvPendingBookingTTL, DefaultPendingBookingTTL),
		SweepInterval:     getEnvDuration(EnvSweepInterval, DefaultSweepInterval),

		KafkaBrokers:       getEnvList(EnvKafkaBrokers),
		BookingEventsTopic: getEnvStr(EnvBookingEventsTopic, DefaultBookingEventsTopic),
		BookingEventsGroup: getEnvStr(EnvBookingEventsGroup, DefaultBookingEventsGroup),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// DefaultOperatingHours is the bookable window for venues that publish no
// hours of their own.
func (cfg *Config) DefaultOperatingHours() (calendar.Range, error) {
	return calendar.NewRange(cfg.DefaultOpenTime, cfg.DefaultCloseTime)
}

// EventsEnabled reports whether booking lifecycle events are published.
func (cfg *Config) EventsEnabled() bool {
	return len(cfg.KafkaBrokers) > 0
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !mongoURIRegex.MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"PaymentAPITimeout", cfg.PaymentAPITimeout},
		{"SweepInterval", cfg.SweepInterval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}
	if cfg.PendingBookingTTL < 0 {
		errors = append(errors, fmt.Sprintf("PendingBookingTTL cannot be negative, got: %s", cfg.PendingBookingTTL))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if len(cfg.PaymentCurrency) != 3 {
		errors = append(errors, fmt.Sprintf("PaymentCurrency must be an ISO 4217 code, got: %s", cfg.PaymentCurrency))
	}

	if cfg.AdvancePercent <= 0 || cfg.AdvancePercent > 100 {
		errors = append(errors, fmt.Sprintf("AdvancePercent must be between 1 and 100, got: %d", cfg.AdvancePercent))
	}
	openOK := timeOfDayRegex.MatchString(cfg.DefaultOpenTime)
	closeOK := timeOfDayRegex.MatchString(cfg.DefaultCloseTime)
	if !openOK {
		errors = append(errors, fmt.Sprintf("DefaultOpenTime must be in HH:MM format (00:00-23:59), got: %s", cfg.DefaultOpenTime))
	}
	if !closeOK {
		errors = append(errors, fmt.Sprintf("DefaultCloseTime must be in HH:MM format (00:00-23:59), got: %s", cfg.DefaultCloseTime))
	}
	if openOK && closeOK {
		if _, err := cfg.DefaultOperatingHours(); err != nil {
			errors = append(errors, fmt.Sprintf("DefaultOpenTime and DefaultCloseTime must form a range on the 30-minute grid, got: %s-%s (%v)",
				cfg.DefaultOpenTime, cfg.DefaultCloseTime, err))
		}
	}

	if cfg.EventsEnabled() && cfg.BookingEventsTopic == "" {
		errors = append(errors, "BookingEventsTopic cannot be empty when Kafka brokers are configured")
	}

	return joinProblems(errors)
}

// RequireSecrets checks the credentials only the HTTP service needs. Jobs that
// never authenticate callers or sign payments skip it.
func (cfg *Config) RequireSecrets() error {
	var errors []string
	if cfg.JWTSecret == "" {
		errors = append(errors, "JWTSecret cannot be empty")
	}
	if cfg.PaymentKeyID == "" {
		errors = append(errors, "PaymentKeyID cannot be empty")
	}
	if cfg.PaymentKeySecret == "" {
		errors = append(errors, "PaymentKeySecret cannot be empty")
	}
	return joinProblems(errors)
}

func joinProblems(errors []string) error {
	if len(errors) == 0 {
		return nil
	}
	errMsg := "Configuration validation failed:\n"
	for i, err := range errors {
		errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
	}
	return fmt.Errorf("%s", errMsg)
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"payment_api_url", cfg.PaymentAPIURL,
		"payment_key_id", cfg.PaymentKeyID,
		"payment_secret_set", cfg.PaymentKeySecret != "",
		"payment_webhook_secret_set", cfg.PaymentWebhookSecret != "",
		"payment_currency", cfg.PaymentCurrency,
		"advance_percent", cfg.AdvancePercent,
		"default_open_time", cfg.DefaultOpenTime,
		"default_close_time", cfg.DefaultCloseTime,
		"pending_booking_ttl", cfg.PendingBookingTTL,
		"sweep_interval", cfg.SweepInterval,
		"kafka_brokers", strings.Join(cfg.KafkaBrokers, ","),
		"booking_events_topic", cfg.BookingEventsTopic,
	)
}

func redactMongoURI(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = DefaultPageSize
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
