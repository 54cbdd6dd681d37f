package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Wallet   WalletConfig
	Payment  PaymentConfig
	Webhook  WebhookConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode + "&prepare_threshold=0"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	Password string
	Enabled  bool
}

// WalletConfig holds receiving address configuration. When an extended
// public key is set, a fresh child address is derived per invoice;
// otherwise FallbackAddress receives every payment.
type WalletConfig struct {
	ExtendedPublicKey string
	FallbackAddress   string
}

// PaymentConfig holds the temporal and tolerance knobs of the
// verification pipeline.
type PaymentConfig struct {
	Tolerance       float64       // accepted underpayment fraction
	InvoiceExpiry   time.Duration // nominal invoice lifetime
	CheckBaseDelay  time.Duration // polling base delay
	CheckJitter     time.Duration // uniform jitter added to the base delay
	ReminderDelay   time.Duration // one-shot reminder
	HardStop        time.Duration // give up watching after this long
	ProviderTimeout time.Duration // per provider HTTP call
	PriceCacheTTL   time.Duration // redis spot price cache
}

// WebhookConfig holds the shared secret guarding the tx webhook
type WebhookConfig struct {
	Secret string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "paywatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},
		Wallet: WalletConfig{
			ExtendedPublicKey: getEnv("BTC_XPUB", ""),
			FallbackAddress:   getEnv("BTC_WALLET_ADDRESS", ""),
		},
		Payment: PaymentConfig{
			Tolerance:       getEnvAsFloat("PAYMENT_TOLERANCE", 0.1),
			InvoiceExpiry:   getEnvAsDuration("INVOICE_EXPIRY", time.Hour),
			CheckBaseDelay:  getEnvAsDuration("CHECK_BASE_DELAY", 15*time.Minute),
			CheckJitter:     getEnvAsDuration("CHECK_JITTER", 15*time.Minute),
			ReminderDelay:   getEnvAsDuration("REMINDER_DELAY", 45*time.Minute),
			HardStop:        getEnvAsDuration("CHECK_HARD_STOP", 24*time.Hour),
			ProviderTimeout: getEnvAsDuration("PROVIDER_TIMEOUT", 15*time.Second),
			PriceCacheTTL:   getEnvAsDuration("PRICE_CACHE_TTL", time.Minute),
		},
		Webhook: WebhookConfig{
			Secret: getEnv("WEBHOOK_SECRET", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
