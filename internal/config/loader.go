package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers accepted by LABINV_STORAGE_DRIVER.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config captures environment driven configuration values for the lab inventory service.
type Config struct {
	HTTPPort        int
	StorageDriver   string
	SQLitePath      string
	LogLevel        string
	LogFormat       string
	CORSOrigins     []string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	LockTTL         time.Duration
	AMQPURL         string
	AMQPExchange    string
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file from the working directory and then parses
// configuration from the process environment. Variables already set in the
// environment win over the file.
func Load() (Config, error) {
	return LoadWithEnvFile(".env")
}

// LoadWithEnvFile behaves like Load but reads the given env file. A missing file
// is not an error.
func LoadWithEnvFile(path string) (Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read env file %s: %w", path, err)
		}
	}
	return FromEnvironment()
}

// FromEnvironment parses configuration values from the current process environment.
//
// The loader applies defaults for optional fields and reports every invalid entry
// in a single error.
func FromEnvironment() (Config, error) {
	cfg := Config{
		HTTPPort:        3001,
		StorageDriver:   StorageSQLite,
		SQLitePath:      "labinventory.db",
		LogLevel:        "info",
		LogFormat:       "json",
		CORSOrigins:     []string{"*"},
		LockTTL:         10 * time.Second,
		AMQPExchange:    "labinventory.reservations",
		ShutdownTimeout: 10 * time.Second,
	}

	invalid := make([]string, 0, 4)

	portValue := env("LABINV_HTTP_PORT")
	portKey := "LABINV_HTTP_PORT"
	if portValue == "" {
		portValue = env("PORT")
		portKey = "PORT"
	}
	if portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, portKey)
		} else {
			cfg.HTTPPort = port
		}
	}

	if driver := strings.ToLower(env("LABINV_STORAGE_DRIVER")); driver != "" {
		switch driver {
		case StorageSQLite, StorageMemory:
			cfg.StorageDriver = driver
		default:
			invalid = append(invalid, "LABINV_STORAGE_DRIVER")
		}
	}

	if path := env("LABINV_SQLITE_PATH"); path != "" {
		cfg.SQLitePath = path
	}

	if level := strings.ToLower(env("LABINV_LOG_LEVEL")); level != "" {
		switch level {
		case "debug", "info", "warn", "warning", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, "LABINV_LOG_LEVEL")
		}
	}

	if format := strings.ToLower(env("LABINV_LOG_FORMAT")); format != "" {
		switch format {
		case "json", "text":
			cfg.LogFormat = format
		default:
			invalid = append(invalid, "LABINV_LOG_FORMAT")
		}
	}

	if origins := env("LABINV_CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	cfg.RedisAddr = env("LABINV_REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("LABINV_REDIS_PASSWORD")
	if dbValue := env("LABINV_REDIS_DB"); dbValue != "" {
		db, err := strconv.Atoi(dbValue)
		if err != nil || db < 0 {
			invalid = append(invalid, "LABINV_REDIS_DB")
		} else {
			cfg.RedisDB = db
		}
	}

	if ttlValue := env("LABINV_LOCK_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "LABINV_LOCK_TTL")
		} else {
			cfg.LockTTL = ttl
		}
	}

	cfg.AMQPURL = env("LABINV_AMQP_URL")
	if exchange := env("LABINV_AMQP_EXCHANGE"); exchange != "" {
		cfg.AMQPExchange = exchange
	}

	if timeoutValue := env("LABINV_SHUTDOWN_TIMEOUT"); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "LABINV_SHUTDOWN_TIMEOUT")
		} else {
			cfg.ShutdownTimeout = timeout
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
