package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Workflow WorkflowConfig
	Handoff  HandoffConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	// AttemptsPerMinute caps login and verify calls per session.
	AttemptsPerMinute     int
}

// PostgresConfig holds DB connection values for the hand-off audit trail.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values used by the single-flight guard.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Service     string
	Development bool
}

// AuthConfig defines session token and code hashing parameters.
type AuthConfig struct {
	JWTSecret           string
	SessionTokenTTLMins int
	BcryptCost          int
	VerificationCode    string
}

// WorkflowConfig tunes the simulated backends and suspension points.
type WorkflowConfig struct {
	VerifyDelayMs           int
	PaymentDelayMs          int
	HandoffDelayMs          int
	OperationTimeoutSeconds int
	SessionTTLMinutes       int
	GuardTTLSeconds         int
}

// HandoffConfig selects how deep links reach the host platform.
type HandoffConfig struct {
	Mode        string
	Command     string
	RelayURL    string
	AdminPhone  string
	CountryCode string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 5))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "semillero-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			AttemptsPerMinute:     getEnvAsInt("HTTP_ATTEMPTS_PER_MINUTE", 10),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Service:     getEnv("APP_NAME", "semillero-service"),
			Development: getEnv("APP_ENV", "development") == "development",
		},
		Auth: AuthConfig{
			JWTSecret:           getEnv("AUTH_JWT_SECRET", "dev-secret"),
			SessionTokenTTLMins: getEnvAsInt("AUTH_SESSION_TOKEN_TTL_MINUTES", 60),
			BcryptCost:          getEnvAsInt("AUTH_BCRYPT_COST", 10),
			VerificationCode:    getEnv("AUTH_VERIFICATION_CODE", "123456"),
		},
		Workflow: WorkflowConfig{
			VerifyDelayMs:           getEnvAsInt("WORKFLOW_VERIFY_DELAY_MS", 1000),
			PaymentDelayMs:          getEnvAsInt("WORKFLOW_PAYMENT_DELAY_MS", 1000),
			HandoffDelayMs:          getEnvAsInt("WORKFLOW_HANDOFF_DELAY_MS", 1000),
			OperationTimeoutSeconds: getEnvAsInt("WORKFLOW_OPERATION_TIMEOUT_SECONDS", 10),
			SessionTTLMinutes:       getEnvAsInt("WORKFLOW_SESSION_TTL_MINUTES", 30),
			GuardTTLSeconds:         getEnvAsInt("WORKFLOW_GUARD_TTL_SECONDS", 30),
		},
		Handoff: HandoffConfig{
			Mode:        strings.ToLower(getEnv("HANDOFF_MODE", "log")),
			Command:     getEnv("HANDOFF_COMMAND", "xdg-open"),
			RelayURL:    getEnv("HANDOFF_RELAY_URL", ""),
			AdminPhone:  getEnv("HANDOFF_ADMIN_PHONE", "543624200637"),
			CountryCode: getEnv("HANDOFF_COUNTRY_CODE", "54"),
		},
	}

	if cfg.Handoff.Mode == "relay" && cfg.Handoff.RelayURL == "" {
		return nil, fmt.Errorf("HANDOFF_RELAY_URL required when HANDOFF_MODE=relay")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// VerifyDelay is the simulated verification latency.
func (w WorkflowConfig) VerifyDelay() time.Duration {
	return millis(w.VerifyDelayMs)
}

// PaymentDelay is the simulated preference creation latency.
func (w WorkflowConfig) PaymentDelay() time.Duration {
	return millis(w.PaymentDelayMs)
}

// HandoffDelay separates the admin and user messages of an enrollment.
func (w WorkflowConfig) HandoffDelay() time.Duration {
	return millis(w.HandoffDelayMs)
}

// OperationTimeout bounds every suspension point of a triggered action.
func (w WorkflowConfig) OperationTimeout() time.Duration {
	if w.OperationTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(w.OperationTimeoutSeconds) * time.Second
}

// SessionTTL is how long an idle session is kept in memory.
func (w WorkflowConfig) SessionTTL() time.Duration {
	if w.SessionTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(w.SessionTTLMinutes) * time.Minute
}

// GuardTTL caps how long a single-flight lock may be held.
func (w WorkflowConfig) GuardTTL() time.Duration {
	if w.GuardTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(w.GuardTTLSeconds) * time.Second
}

func millis(ms int) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
