/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables (and an optional
 * .env file), providing a centralized way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 * - github.com/rs/zerolog: Warnings about coerced values.
 */

package config

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	ConsistencyModeTransaction = "transaction"
	ConsistencyModeSaga        = "saga"

	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds all the configuration variables for the ledger service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort    string `mapstructure:"SERVER_PORT"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFormat     string `mapstructure:"LOG_FORMAT"`
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32  `mapstructure:"DB_MIN_CONNS"`
	RunMigrations bool   `mapstructure:"RUN_MIGRATIONS"`

	RedisURL                   string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix       string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	TransferRateLimitPerMinute int    `mapstructure:"TRANSFER_RATE_LIMIT_PER_MINUTE"`

	RabbitMQURL      string `mapstructure:"RABBITMQ_URL"`
	EventExchange    string `mapstructure:"EVENT_EXCHANGE"`
	BillPaymentQueue string `mapstructure:"BILL_PAYMENT_QUEUE"`

	AuthJWKSURL   string `mapstructure:"AUTH_JWKS_URL"`
	AuthJWTSecret string `mapstructure:"AUTH_JWT_SECRET"`
	AuthAudience  string `mapstructure:"AUTH_AUDIENCE"`
	AuthIssuer    string `mapstructure:"AUTH_ISSUER"`

	InternalAPIKey        string   `mapstructure:"INTERNAL_API_KEY"`
	CORSAllowedOriginsRaw string   `mapstructure:"CORS_ALLOWED_ORIGINS"`
	CORSAllowedOrigins    []string `mapstructure:"-"`

	ConsistencyMode            string `mapstructure:"LEDGER_CONSISTENCY_MODE"`
	TransferMaxConflictRetries int    `mapstructure:"TRANSFER_MAX_CONFLICT_RETRIES"`
	TransferRetryBaseDelayMS   int    `mapstructure:"TRANSFER_RETRY_BASE_DELAY_MS"`

	BillPaymentClearingAccountID string `mapstructure:"BILL_PAYMENT_CLEARING_ACCOUNT_ID"`
	BillPaymentDispatchSchedule  string `mapstructure:"BILL_PAYMENT_DISPATCH_SCHEDULE"`
	BillPaymentBatchSize         int    `mapstructure:"BILL_PAYMENT_BATCH_SIZE"`
	BillPaymentStaleAfterMinutes int    `mapstructure:"BILL_PAYMENT_STALE_AFTER_MINUTES"`

	IdempotencyPurgeSchedule string `mapstructure:"IDEMPOTENCY_PURGE_SCHEDULE"`
	IdempotencyKeyTTLHours   int    `mapstructure:"IDEMPOTENCY_KEY_TTL_HOURS"`

	SMTPHost        string   `mapstructure:"SMTP_HOST"`
	SMTPPort        int      `mapstructure:"SMTP_PORT"`
	SMTPUsername    string   `mapstructure:"SMTP_USERNAME"`
	SMTPPassword    string   `mapstructure:"SMTP_PASSWORD"`
	AlertEmailFrom  string   `mapstructure:"ALERT_EMAIL_FROM"`
	AlertEmailToRaw string   `mapstructure:"ALERT_EMAIL_TO"`
	AlertEmailTo    []string `mapstructure:"-"`
}

// TransferRetryBaseDelay is the first conflict backoff step.
func (c Config) TransferRetryBaseDelay() time.Duration {
	return time.Duration(c.TransferRetryBaseDelayMS) * time.Millisecond
}

// BillPaymentStaleAfter is how long a processing bill payment may sit before it is reclaimed.
func (c Config) BillPaymentStaleAfter() time.Duration {
	return time.Duration(c.BillPaymentStaleAfterMinutes) * time.Minute
}

// IdempotencyKeyTTL is how long completed idempotency keys are kept.
func (c Config) IdempotencyKeyTTL() time.Duration {
	return time.Duration(c.IdempotencyKeyTTLHours) * time.Hour
}

// LoadConfig reads configuration from environment variables and the optional
// .env file in path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("STORAGE_DRIVER", StorageDriverPostgres)
	viper.SetDefault("DB_MAX_CONNS", 100)
	viper.SetDefault("DB_MIN_CONNS", 20)
	viper.SetDefault("RUN_MIGRATIONS", false)
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "ledger:rate_limit")
	viper.SetDefault("TRANSFER_RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("EVENT_EXCHANGE", "ledger.events")
	viper.SetDefault("BILL_PAYMENT_QUEUE", "ledger_service.bill_payments_due")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("LEDGER_CONSISTENCY_MODE", ConsistencyModeTransaction)
	viper.SetDefault("TRANSFER_MAX_CONFLICT_RETRIES", 3)
	viper.SetDefault("TRANSFER_RETRY_BASE_DELAY_MS", 25)
	viper.SetDefault("BILL_PAYMENT_DISPATCH_SCHEDULE", "@every 1m")
	viper.SetDefault("BILL_PAYMENT_BATCH_SIZE", 100)
	viper.SetDefault("BILL_PAYMENT_STALE_AFTER_MINUTES", 15)
	viper.SetDefault("IDEMPOTENCY_PURGE_SCHEDULE", "@hourly")
	viper.SetDefault("IDEMPOTENCY_KEY_TTL_HOURS", 24)
	viper.SetDefault("SMTP_PORT", 587)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("LOG_LEVEL")
	_ = viper.BindEnv("LOG_FORMAT")
	_ = viper.BindEnv("STORAGE_DRIVER")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("DB_MAX_CONNS")
	_ = viper.BindEnv("DB_MIN_CONNS")
	_ = viper.BindEnv("RUN_MIGRATIONS")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "LEDGER_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("TRANSFER_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENT_EXCHANGE")
	_ = viper.BindEnv("BILL_PAYMENT_QUEUE")
	_ = viper.BindEnv("AUTH_JWKS_URL")
	_ = viper.BindEnv("AUTH_JWT_SECRET", "AUTH_JWT_SECRET", "SUPABASE_JWT_SECRET")
	_ = viper.BindEnv("AUTH_AUDIENCE")
	_ = viper.BindEnv("AUTH_ISSUER")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "LEDGER_INTERNAL_API_KEY")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("LEDGER_CONSISTENCY_MODE")
	_ = viper.BindEnv("TRANSFER_MAX_CONFLICT_RETRIES")
	_ = viper.BindEnv("TRANSFER_RETRY_BASE_DELAY_MS")
	_ = viper.BindEnv("BILL_PAYMENT_CLEARING_ACCOUNT_ID")
	_ = viper.BindEnv("BILL_PAYMENT_DISPATCH_SCHEDULE")
	_ = viper.BindEnv("BILL_PAYMENT_BATCH_SIZE")
	_ = viper.BindEnv("BILL_PAYMENT_STALE_AFTER_MINUTES")
	_ = viper.BindEnv("IDEMPOTENCY_PURGE_SCHEDULE")
	_ = viper.BindEnv("IDEMPOTENCY_KEY_TTL_HOURS")
	_ = viper.BindEnv("SMTP_HOST")
	_ = viper.BindEnv("SMTP_PORT")
	_ = viper.BindEnv("SMTP_USERNAME")
	_ = viper.BindEnv("SMTP_PASSWORD")
	_ = viper.BindEnv("ALERT_EMAIL_FROM")
	_ = viper.BindEnv("ALERT_EMAIL_TO")

	// It's okay if the config file doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn().Str("component", "config").Err(err).Msg("failed to read config file; using environment values")
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	normalize(&config)
	return
}

func normalize(config *Config) {
	config.StorageDriver = strings.ToLower(strings.TrimSpace(config.StorageDriver))
	if config.StorageDriver != StorageDriverMemory {
		config.StorageDriver = StorageDriverPostgres
	}

	config.ConsistencyMode = strings.ToLower(strings.TrimSpace(config.ConsistencyMode))
	switch config.ConsistencyMode {
	case ConsistencyModeTransaction, ConsistencyModeSaga:
	default:
		log.Warn().Str("component", "config").Str("value", config.ConsistencyMode).Msg("unknown consistency mode; using transaction")
		config.ConsistencyMode = ConsistencyModeTransaction
	}

	config.InternalAPIKey = strings.TrimSpace(config.InternalAPIKey)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "ledger:rate_limit"
	}
	config.BillPaymentClearingAccountID = strings.TrimSpace(config.BillPaymentClearingAccountID)

	if config.DBMaxConns <= 0 {
		config.DBMaxConns = 100
	}
	if config.DBMinConns < 0 || config.DBMinConns > config.DBMaxConns {
		config.DBMinConns = config.DBMaxConns / 5
	}
	if config.TransferRateLimitPerMinute < 0 {
		config.TransferRateLimitPerMinute = 0
	}
	if config.TransferMaxConflictRetries < 0 {
		log.Warn().Str("component", "config").Int("value", config.TransferMaxConflictRetries).Msg("negative conflict retries configured; coercing to zero")
		config.TransferMaxConflictRetries = 0
	}
	if config.TransferMaxConflictRetries > 10 {
		log.Warn().Str("component", "config").Int("value", config.TransferMaxConflictRetries).Msg("conflict retries too high; capping at 10")
		config.TransferMaxConflictRetries = 10
	}
	if config.TransferRetryBaseDelayMS <= 0 {
		config.TransferRetryBaseDelayMS = 25
	}
	if config.BillPaymentBatchSize <= 0 {
		config.BillPaymentBatchSize = 100
	}
	if config.BillPaymentStaleAfterMinutes <= 0 {
		config.BillPaymentStaleAfterMinutes = 15
	}
	if config.IdempotencyKeyTTLHours <= 0 {
		config.IdempotencyKeyTTLHours = 24
	}

	config.CORSAllowedOrigins = splitList(config.CORSAllowedOriginsRaw)
	if len(config.CORSAllowedOrigins) == 0 {
		config.CORSAllowedOrigins = []string{"*"}
	}
	config.AlertEmailTo = splitList(config.AlertEmailToRaw)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
