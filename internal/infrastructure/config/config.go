package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/jmanzanog/portfolio-valuator/internal/application"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverOracle   = "oracle"
)

const (
	_portfolioFileDefault   = "portfolio.yaml"
	_refreshIntervalDefault = "30s"
	_fetchTimeoutDefault    = "10s"
	_userAgentDefault       = "portfolio-valuator/1.0"
)

type Config struct {
	PortfolioFile      string
	RefreshInterval    time.Duration
	FetchTimeout       time.Duration
	FetchRatePerSecond int
	MaxConcurrency     int
	OverlapPolicy      application.OverlapPolicy
	UserAgent          string
	LogLevel           string
	HTTPEnabled        bool
	ServerHost         string
	ServerPort         string
	StoreDriver        string
	StoreDSN           string
}

func Load() (*Config, error) {
	refreshInterval, err := positiveDuration("REFRESH_INTERVAL", _refreshIntervalDefault)
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := positiveDuration("FETCH_TIMEOUT", _fetchTimeoutDefault)
	if err != nil {
		return nil, err
	}

	rate, err := nonNegativeInt("FETCH_RATE_PER_SECOND")
	if err != nil {
		return nil, err
	}

	maxConcurrency, err := nonNegativeInt("MAX_CONCURRENCY")
	if err != nil {
		return nil, err
	}

	overlap, err := application.ParseOverlapPolicy(getEnvOrDefault("OVERLAP_POLICY", string(application.OverlapSkip)))
	if err != nil {
		return nil, fmt.Errorf("unsupported OVERLAP_POLICY: %w", err)
	}

	logLevel := getEnvOrDefault("LOG_LEVEL", "info")
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	httpEnabled, err := strconv.ParseBool(getEnvOrDefault("HTTP_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_ENABLED: %w", err)
	}

	storeDriver := os.Getenv("STORE_DRIVER")
	storeDSN := os.Getenv("STORE_DSN")
	switch storeDriver {
	case "":
	case StoreDriverPostgres, StoreDriverOracle:
		if storeDSN == "" {
			return nil, fmt.Errorf("STORE_DSN environment variable is required for %s store", storeDriver)
		}
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER: %s", storeDriver)
	}

	return &Config{
		PortfolioFile:      getEnvOrDefault("PORTFOLIO_FILE", _portfolioFileDefault),
		RefreshInterval:    refreshInterval,
		FetchTimeout:       fetchTimeout,
		FetchRatePerSecond: rate,
		MaxConcurrency:     maxConcurrency,
		OverlapPolicy:      overlap,
		UserAgent:          getEnvOrDefault("USER_AGENT", _userAgentDefault),
		LogLevel:           logLevel,
		HTTPEnabled:        httpEnabled,
		ServerHost:         getEnvOrDefault("SERVER_HOST", "localhost"),
		ServerPort:         getEnvOrDefault("SERVER_PORT", "8080"),
		StoreDriver:        storeDriver,
		StoreDSN:           storeDSN,
	}, nil
}

// SlogLevel returns the configured level; Load has already validated it.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// StoreEnabled reports whether results are pushed to a SQL store.
func (c *Config) StoreEnabled() bool {
	return c.StoreDriver != ""
}

func positiveDuration(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnvOrDefault(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %s", key, d)
	}
	return d, nil
}

func nonNegativeInt(key string) (int, error) {
	n, err := strconv.Atoi(getEnvOrDefault(key, "0"))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative, got %d", key, n)
	}
	return n, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
