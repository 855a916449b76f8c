package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the conformer and the reporting API.
type Config struct {
	App          AppConfig
	Warehouse    PostgresConfig
	Sources      map[string]PostgresConfig
	Redis        RedisConfig
	Pipeline     PipelineConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Metrics      MetricsConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables the
// cross-process dimension write lock.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PipelineConfig tunes the conformance pipeline.
type PipelineConfig struct {
	LockKey         string
	LockTTLSeconds  int
	LockRetryMillis int
	VocabularyDir   string
	CalendarLocale  string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig protects the reporting API. An empty secret leaves it open.
type AuthConfig struct {
	JWTSecret string
}

// MetricsConfig configures the Prometheus pushgateway used after batch runs.
type MetricsConfig struct {
	PushgatewayURL string
	Job            string
}

// NotificationConfig holds the run notification endpoint.
type NotificationConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-warehouse"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Warehouse: PostgresConfig{
			DSN:            os.Getenv("WAREHOUSE_DSN"),
			MaxConns:       int32(getEnvAsInt("WAREHOUSE_MAX_CONNS", 4)),
			MinConns:       int32(getEnvAsInt("WAREHOUSE_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("WAREHOUSE_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("WAREHOUSE_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("WAREHOUSE_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Sources: map[string]PostgresConfig{
			"octa":  sourceConfig("OCTA"),
			"sults": sourceConfig("SULTS"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Pipeline: PipelineConfig{
			LockKey:         getEnv("PIPELINE_LOCK_KEY", "ticket-warehouse:dimension-writes"),
			LockTTLSeconds:  getEnvAsInt("PIPELINE_LOCK_TTL_SECONDS", 900),
			LockRetryMillis: getEnvAsInt("PIPELINE_LOCK_RETRY_MILLIS", 1000),
			VocabularyDir:   os.Getenv("PIPELINE_VOCABULARY_DIR"),
			CalendarLocale:  getEnv("PIPELINE_CALENDAR_LOCALE", "en"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: os.Getenv("METRICS_PUSHGATEWAY_URL"),
			Job:            getEnv("METRICS_JOB", "ticket_conformer"),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Source returns the connection settings for a source system by name, case-insensitively.
func (c *Config) Source(name string) (PostgresConfig, bool) {
	src, ok := c.Sources[strings.ToLower(name)]
	return src, ok
}

// SourceNames lists the configured source systems in pipeline order.
func (c *Config) SourceNames() []string {
	return []string{"octa", "sults"}
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

// LockTTL returns how long the dimension write lock is held before it expires on its own.
func (p PipelineConfig) LockTTL() time.Duration {
	if p.LockTTLSeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(p.LockTTLSeconds) * time.Second
}

// LockRetry returns the polling interval while waiting for the lock.
func (p PipelineConfig) LockRetry() time.Duration {
	if p.LockRetryMillis <= 0 {
		return time.Second
	}
	return time.Duration(p.LockRetryMillis) * time.Millisecond
}

func sourceConfig(prefix string) PostgresConfig {
	return PostgresConfig{
		DSN:            os.Getenv(prefix + "_DSN"),
		MaxConns:       int32(getEnvAsInt(prefix+"_MAX_CONNS", 2)),
		MinConns:       1,
		ConnMaxIdleSec: 30,
		ConnMaxLifeSec: 300,
	}
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
