package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Remote API the dashboard syncs against.
	APIBaseURL  string
	BearerToken string

	// Fallback when the bearer token carries no restaurant claim.
	RestaurantID int64

	PollInterval      time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration

	// Whether the preparing bucket is a visible intermediate state.
	PreparingEnabled bool

	// Gates the tagged system-notification channel, never the chime.
	SystemNotifications bool

	// Device or file the chime WAV is written to; empty disables audio.
	ChimeSink string

	// Local read-only API for the thin browser client.
	ListenAddr     string
	FrontendOrigin string
}

func Load() (*Config, error) {
	// Optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:5000"),
		BearerToken:    os.Getenv("KITCHEN_TOKEN"),
		ChimeSink:      os.Getenv("CHIME_SINK"),
		ListenAddr:     getEnv("LISTEN_ADDR", ":8090"),
		FrontendOrigin: getEnv("FRONTEND_ORIGIN", "http://localhost:3000"),
	}

	if cfg.BearerToken == "" {
		return nil, fmt.Errorf("KITCHEN_TOKEN is required")
	}

	var err error
	if cfg.RestaurantID, err = getEnvInt64("RESTAURANT_ID", 0); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getEnvDuration("POLL_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	// The poll ticker panics on a non-positive period.
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive, got %s", cfg.PollInterval)
	}
	if cfg.ReconnectAttempts, err = getEnvInt("WS_RECONNECT_ATTEMPTS", 10); err != nil {
		return nil, err
	}
	if cfg.ReconnectDelay, err = getEnvDuration("WS_RECONNECT_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.ReconnectDelay <= 0 {
		return nil, fmt.Errorf("WS_RECONNECT_DELAY must be positive, got %s", cfg.ReconnectDelay)
	}
	if cfg.PreparingEnabled, err = getEnvBool("PREPARING_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.SystemNotifications, err = getEnvBool("SYSTEM_NOTIFICATIONS", true); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
