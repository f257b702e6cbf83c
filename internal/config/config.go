package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/niyoseris/curling/internal/curling"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	MigrateOnStart bool
	MigrationsDir  string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Match Settings
	TotalEnds       int
	StonesPerTeam   int
	TickIntervalMs  int
	AIThinkDelayMs  int
	MaxSimTicks     int
	MatchTTLMinutes int

	// Idle tracking
	IdleForfeitSeconds     int
	IdleWorkerPollInterval int

	// Sheet overrides; zero keeps the default sheet value
	SheetFriction    *float64 // nil keeps the default sheet value
	SheetRestitution *float64

	// Security
	JWTSecret         string
	SessionTimeoutMin int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/curling?sslmode=disable"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),
		MigrationsDir:  getEnv("MIGRATIONS_DIR", "migrations"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Match Settings
		TotalEnds:       getEnvInt("TOTAL_ENDS", 4),
		StonesPerTeam:   getEnvInt("STONES_PER_TEAM", 5),
		TickIntervalMs:  getEnvInt("TICK_INTERVAL_MS", 16),
		AIThinkDelayMs:  getEnvInt("AI_THINK_DELAY_MS", 800),
		MaxSimTicks:     getEnvInt("MAX_SIM_TICKS", 5000),
		MatchTTLMinutes: getEnvInt("MATCH_TTL_MINUTES", 60),

		IdleForfeitSeconds:     getEnvInt("IDLE_FORFEIT_SECONDS", 300),
		IdleWorkerPollInterval: getEnvInt("IDLE_WORKER_POLL_SECONDS", 5),

		SheetFriction:    getEnvFloatPtr("SHEET_FRICTION"),
		SheetRestitution: getEnvFloatPtr("SHEET_RESTITUTION"),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTimeoutMin: getEnvInt("SESSION_TIMEOUT_MINUTES", 30),
	}
}

// Sheet returns the default sheet with any configured overrides applied.
func (c *Config) Sheet() (curling.Config, error) {
	sheet := curling.DefaultConfig()
	if c.SheetFriction != nil {
		sheet.Friction = *c.SheetFriction
	}
	if c.SheetRestitution != nil {
		sheet.Restitution = *c.SheetRestitution
	}
	if err := sheet.Validate(); err != nil {
		return curling.Config{}, fmt.Errorf("sheet overrides: %w", err)
	}
	return sheet, nil
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

func (c *Config) AIThinkDelay() time.Duration {
	return time.Duration(c.AIThinkDelayMs) * time.Millisecond
}

func (c *Config) MatchTTL() time.Duration {
	return time.Duration(c.MatchTTLMinutes) * time.Minute
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloatPtr returns nil when key is unset or not a number.
func getEnvFloatPtr(key string) *float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return &f
		}
	}
	return nil
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
