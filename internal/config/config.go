package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/eldtechnologies/ledgerchat/internal/address"
)

// Ledger drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// DefaultProgramID is the program identity used when PROGRAM_ID is unset.
const DefaultProgramID = "AhqDVkiKVxijhJy3vU9hXFYjcwxaHAkyXsViMa4mEJc7"

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	// Ledger
	Driver      string
	SQLitePath  string
	DatabaseURL string
	RedisURL    string // also backs the replay-nonce cache when set

	// Program
	ProgramID                 address.Address
	MaxMessages               int
	StrictContactRegistration bool
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// It panics on invalid values, and in production on a missing URL for the
// selected driver.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		Driver:      getEnv("LEDGER_DRIVER", DriverSQLite),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/ledgerchat.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		StrictContactRegistration: getEnv("STRICT_CONTACT_REGISTRATION", "false") == "true",
	}

	programID, err := address.Parse(getEnv("PROGRAM_ID", DefaultProgramID))
	if err != nil {
		panic(fmt.Sprintf("PROGRAM_ID: %v", err))
	}
	cfg.ProgramID = programID

	maxMessages, err := strconv.Atoi(getEnv("MAX_MESSAGES", "256"))
	if err != nil || maxMessages <= 0 {
		panic("MAX_MESSAGES must be a positive integer")
	}
	cfg.MaxMessages = maxMessages

	switch cfg.Driver {
	case DriverSQLite, DriverPostgres, DriverRedis, DriverMemory:
	default:
		panic(fmt.Sprintf("unknown LEDGER_DRIVER %q", cfg.Driver))
	}

	// In production, require the selected driver's URL
	if cfg.Env == "production" {
		if cfg.Driver == DriverPostgres && cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.Driver == DriverRedis && cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
