package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer       string // Issuer label shown in authenticator apps (default: accountd)
	DatabaseFile string // Path to SQLite database file (default: ./accountd.db)
	PepperFile   string // Path to the password-hashing pepper file (default: ./pepper)

	SessionTTL   time.Duration // Session lifetime (default: 720h)
	ChallengeTTL time.Duration // Two-factor sign-in challenge lifetime (default: 5m)
	SetupTTL     time.Duration // Unconfirmed TOTP secret lifetime (default: 1h)

	// RequireTwoFactor forces every user to enroll before using the API.
	RequireTwoFactor bool

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Issuer:       getEnvOrDefault("ACCOUNTD_ISSUER", "accountd"),
		DatabaseFile: getEnvOrDefault("ACCOUNTD_DATABASE_FILE", "accountd.db"),
		PepperFile:   getEnvOrDefault("ACCOUNTD_PEPPER_FILE", "pepper"),

		SessionTTL:   getEnvDurationOrDefault("ACCOUNTD_SESSION_TTL", 30*24*time.Hour),
		ChallengeTTL: getEnvDurationOrDefault("ACCOUNTD_CHALLENGE_TTL", 5*time.Minute),
		SetupTTL:     getEnvDurationOrDefault("ACCOUNTD_SETUP_TTL", time.Hour),

		RequireTwoFactor: getEnvBoolOrDefault("ACCOUNTD_REQUIRE_TWO_FACTOR", false),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Integer values are taken as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
