package kafka

import (
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
)

const (
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerCompression  = "snappy"

	DefaultConsumerMinBytes       = 1
	DefaultConsumerMaxBytes       = 10 * 1024 * 1024 // 10MB
	DefaultConsumerMaxWait        = 500 * time.Millisecond
	DefaultConsumerCommitInterval = 1 * time.Second
	DefaultConsumerMaxRetries     = 3
	DefaultConsumerRetryBackoff   = 200 * time.Millisecond
)

// Config holds the broker and client settings shared by producers and consumers.
type Config struct {
	Brokers []string

	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration
	ProducerCompression  string // "none", "gzip", "snappy", "lz4", "zstd"

	ConsumerStartOffset    int64 // kafka.FirstOffset or kafka.LastOffset
	ConsumerMinBytes       int
	ConsumerMaxBytes       int
	ConsumerMaxWait        time.Duration
	ConsumerCommitInterval time.Duration
	ConsumerMaxRetries     int
	ConsumerRetryBackoff   time.Duration
}

// NewConfig returns a Config for the given brokers with defaults for every
// other setting.
func NewConfig(brokers []string) *Config {
	return &Config{
		Brokers:                brokers,
		ProducerMaxAttempts:    DefaultProducerMaxAttempts,
		ProducerBatchTimeout:   DefaultProducerBatchTimeout,
		ProducerCompression:    DefaultProducerCompression,
		ConsumerStartOffset:    kafka.LastOffset,
		ConsumerMinBytes:       DefaultConsumerMinBytes,
		ConsumerMaxBytes:       DefaultConsumerMaxBytes,
		ConsumerMaxWait:        DefaultConsumerMaxWait,
		ConsumerCommitInterval: DefaultConsumerCommitInterval,
		ConsumerMaxRetries:     DefaultConsumerMaxRetries,
		ConsumerRetryBackoff:   DefaultConsumerRetryBackoff,
	}
}

func (cfg *Config) Validate() error {
	var errors []string

	if len(cfg.Brokers) == 0 {
		errors = append(errors, "At least one Kafka broker is required")
	}
	for i, broker := range cfg.Brokers {
		if broker == "" {
			errors = append(errors, fmt.Sprintf("Broker %d cannot be empty", i))
		}
	}
	if cfg.ProducerMaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("ProducerMaxAttempts must be positive, got: %d", cfg.ProducerMaxAttempts))
	}
	if _, ok := compressionCodecs[cfg.ProducerCompression]; !ok {
		errors = append(errors, fmt.Sprintf("ProducerCompression must be one of [none, gzip, snappy, lz4, zstd], got: %s", cfg.ProducerCompression))
	}
	if cfg.ConsumerStartOffset != kafka.FirstOffset && cfg.ConsumerStartOffset != kafka.LastOffset {
		errors = append(errors, fmt.Sprintf("ConsumerStartOffset must be -1 (newest) or -2 (oldest), got: %d", cfg.ConsumerStartOffset))
	}
	if cfg.ConsumerMaxBytes < cfg.ConsumerMinBytes {
		errors = append(errors, fmt.Sprintf("ConsumerMaxBytes (%d) must not be below ConsumerMinBytes (%d)", cfg.ConsumerMaxBytes, cfg.ConsumerMinBytes))
	}
	if cfg.ConsumerMaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("ConsumerMaxRetries cannot be negative, got: %d", cfg.ConsumerMaxRetries))
	}

	if len(errors) == 0 {
		return nil
	}
	errMsg := "Kafka configuration validation failed:\n"
	for i, err := range errors {
		errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
	}
	return fmt.Errorf("%s", errMsg)
}

var compressionCodecs = map[string]compress.Compression{
	"none":   0,
	"gzip":   compress.Gzip,
	"snappy": compress.Snappy,
	"lz4":    compress.Lz4,
	"zstd":   compress.Zstd,
}

func (cfg *Config) compression() compress.Compression {
	if c, ok := compressionCodecs[cfg.ProducerCompression]; ok {
		return c
	}
	return compress.Snappy
}
