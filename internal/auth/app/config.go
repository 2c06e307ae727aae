package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	PublicURL  string // Optional: base URL tenant issuers default to (default: http://localhost:8080)
	AdminToken string // Optional: bearer token for /admin endpoints, unset disables them

	Algorithm      string        // Optional: JWT signing algorithm (RS256, ES256, EdDSA) (default: ES256)
	RSABits        int           // Optional: RSA key size for RS256 (default: 4096)
	NumKeys        int           // Optional: number of signing keys to generate (default: 3, min: 1, max: 10)
	KeyStorageMode string        // Optional: key storage mode (ephemeral, persistent) (default: ephemeral)
	KeyGracePeriod time.Duration // Optional: grace period for retired keys (default: 30 days)
	MasterKeyPath  string        // Optional: path to master encryption key file (for persistent keys)

	DatabaseFile     string // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile       string // Optional: path to file containing pepper for secret hashing (default: ./pepper)
	SeedFile         string // Optional: YAML file declaring tenants, clients and users
	RedisURL         string // Optional: keep authorization requests in Redis (redis://host:port/db)
	ClientCertHeader string // Optional: header a TLS terminating proxy forwards the client certificate in

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

const (
	KeyStorageEphemeral  = "ephemeral"
	KeyStoragePersistent = "persistent"
)

func LoadConfig() Config {
	return Config{
		PublicURL:            getEnvOrDefault("AUTH_PUBLIC_URL", "http://localhost:8080"),
		AdminToken:           os.Getenv("AUTH_ADMIN_TOKEN"),
		Algorithm:            getEnvOrDefault("AUTH_ALGORITHM", "ES256"),
		RSABits:              getEnvIntOrDefault("AUTH_RSA_BITS", 0),
		NumKeys:              getEnvIntOrDefault("AUTH_NUM_KEYS", 0),
		KeyStorageMode:       getEnvOrDefault("AUTH_KEY_STORAGE_MODE", KeyStorageEphemeral),
		KeyGracePeriod:       getEnvDurationOrDefault("AUTH_KEY_GRACE_PERIOD", 30*24*time.Hour),
		MasterKeyPath:        os.Getenv("AUTH_MASTER_KEY_PATH"),
		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:           getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		SeedFile:             os.Getenv("AUTH_SEED_FILE"),
		RedisURL:             os.Getenv("AUTH_REDIS_URL"),
		ClientCertHeader:     os.Getenv("AUTH_CLIENT_CERT_HEADER"),
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

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
