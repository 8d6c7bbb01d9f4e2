package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	LogLevel  string
	LogFormat string

	OtelEnabled       bool
	OTLPEndpoint      string
	OTLPProtocol      string
	OtelSamplingRatio float64

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBRunMigrations   bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitMQURL            string
	EventsExchange         string
	OutboxDispatchSchedule string
	StripeSecretKey        string
	FeeScheduleFile        string
	FinalizeLockTTLS       int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:                getenv("APP_SERVICE", "feeengine"),
		AppVersion:             getenv("SERVICE_VERSION", getenv("APP_VERSION", "0.1.0")),
		Environment:            getenv("DEPLOYMENT_ENV", getenv("ENVIRONMENT", "development")),
		HTTPAddr:               getenv("HTTP_ADDR", ":8080"),
		LogLevel:               strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		LogFormat:              strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
		OtelEnabled:            getenvBool("OTEL_ENABLED", true),
		OTLPEndpoint:           getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),
		OTLPProtocol:           strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")))),
		OtelSamplingRatio:      getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		DBType:                 getenv("DATABASE_TYPE", "postgres"),
		DBHost:                 getenv("DATABASE_HOST", "localhost"),
		DBPort:                 getenv("DATABASE_PORT", "5432"),
		DBName:                 getenv("DATABASE_NAME", "postgres"),
		DBUser:                 getenv("DATABASE_USER", "postgres"),
		DBPassword:             getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:              getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:          getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:          getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime:      getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime:      getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBRunMigrations:        getenvBool("DATABASE_RUN_MIGRATIONS", true),
		RedisAddr:              strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:          getenv("REDIS_PASSWORD", ""),
		RedisDB:                getenvInt("REDIS_DB", 0),
		RabbitMQURL:            strings.TrimSpace(getenv("RABBITMQ_URL", "")),
		EventsExchange:         getenv("EVENTS_EXCHANGE", "billing.events"),
		OutboxDispatchSchedule: strings.TrimSpace(getenv("OUTBOX_DISPATCH_SCHEDULE", "@every 5s")),
		StripeSecretKey:        strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
		FeeScheduleFile:        strings.TrimSpace(getenv("FEE_SCHEDULE_FILE", "")),
		FinalizeLockTTLS:       getenvInt("FINALIZE_LOCK_TTL_SECONDS", 30),
	}

	return cfg
}

// IsProduction reports whether the service runs against live money movement.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
