package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// USGS feed configuration.
	USGSEndpoint       string
	USGSQuery          domain.Query
	USGSConnectTimeout time.Duration
	USGSReadTimeout    time.Duration
	PollInterval       time.Duration
	DisplayLocation    *time.Location

	// Kafka publishing configuration.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	connectTimeout, err := parsePositiveDuration("USGS_CONNECT_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	readTimeout, err := parsePositiveDuration("USGS_READ_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	pollInterval, err := parsePositiveDuration("POLL_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	query, err := parseQuery()
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(sharedcfg.EnvOrDefault("DISPLAY_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE: %w", err)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		USGSEndpoint:       sharedcfg.EnvOrDefault("USGS_ENDPOINT", "https://earthquake.usgs.gov/fdsnws/event/1/query"),
		USGSQuery:          query,
		USGSConnectTimeout: connectTimeout,
		USGSReadTimeout:    readTimeout,
		PollInterval:       pollInterval,
		DisplayLocation:    loc,

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "earthquakes"),
	}

	if cfg.USGSEndpoint == "" {
		return nil, errors.New("USGS_ENDPOINT is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

func parseQuery() (domain.Query, error) {
	minMag, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("USGS_MIN_MAGNITUDE", "6"), 64)
	if err != nil || minMag < 0 {
		return domain.Query{}, errors.New("invalid USGS_MIN_MAGNITUDE")
	}

	limit, err := strconv.Atoi(sharedcfg.EnvOrDefault("USGS_LIMIT", "10"))
	if err != nil || limit < 1 || limit > 20000 {
		return domain.Query{}, errors.New("invalid USGS_LIMIT: must be between 1 and 20000")
	}

	orderBy, err := domain.ParseOrdering(sharedcfg.EnvOrDefault("USGS_ORDER_BY", "time"))
	if err != nil {
		return domain.Query{}, fmt.Errorf("invalid USGS_ORDER_BY: %w", err)
	}

	return domain.Query{MinMagnitude: minMag, Limit: limit, OrderBy: orderBy}, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
