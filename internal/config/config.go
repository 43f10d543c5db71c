package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env                 string
	HTTPAddr            string
	DatabaseURL         string
	JWTSecret           string
	JWTExpirySeconds    int64
	CartTokenSecret     string
	RabbitMQURL         string
	RabbitMQWorkerMode  string
	CorsAllowedOrigins  []string
	WSHeartbeatInterval time.Duration

	RestaurantID       string
	Timezone           string
	Currency           string
	PhoneCountryCode   string
	OrderWebhookURL    string
	OrderMirrorTimeout time.Duration
	PasswordResetURL   string
	PasswordResetTTL   time.Duration

	CartPersistDelay    time.Duration
	CartPersistMaxDelay time.Duration
	CartTransferTTL     time.Duration
	CartIdleTimeout     time.Duration

	ObjectStoreEndpoint        string
	ObjectStoreRegion          string
	ObjectStoreAccessKeyID     string
	ObjectStoreSecretAccessKey string
	ObjectStoreBucket          string
	ObjectStorePublicBaseURL   string
	ObjectStoreStorageClass    string
}

func Load() Config {
	cfg := Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPAddr:            getEnvFirst([]string{"HTTP_ADDR", "PORT"}, ":4000"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		JWTSecret:           getEnv("JWT_SECRET", "development-secret"),
		JWTExpirySeconds:    getEnvInt64("JWT_EXPIRY", 7*24*3600),
		CartTokenSecret:     getEnv("CART_TOKEN_SECRET", "dev-insecure-cart-secret"),
		RabbitMQURL:         getEnv("RABBITMQ_URL", ""),
		RabbitMQWorkerMode:  getEnv("RABBITMQ_WORKER_MODE", "daemon"),
		CorsAllowedOrigins:  splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		WSHeartbeatInterval: getEnvDuration("WS_HEARTBEAT_INTERVAL", 30*time.Second),

		RestaurantID:       getEnv("RESTAURANT_ID", ""),
		Timezone:           getEnv("TIMEZONE", "Africa/Cairo"),
		Currency:           getEnv("CURRENCY", "EGP"),
		PhoneCountryCode:   getEnv("PHONE_COUNTRY_CODE", "+20"),
		OrderWebhookURL:    getEnv("ORDER_WEBHOOK_URL", ""),
		OrderMirrorTimeout: getEnvDuration("ORDER_MIRROR_TIMEOUT", 5*time.Second),
		PasswordResetURL:   getEnv("RESET_PASSWORD_URL", "http://localhost:4000/reset-password"),
		PasswordResetTTL:   getEnvDuration("RESET_PASSWORD_TTL", time.Hour),

		CartPersistDelay:    getEnvDuration("CART_PERSIST_DELAY", 120*time.Millisecond),
		CartPersistMaxDelay: getEnvDuration("CART_PERSIST_MAX_DELAY", 250*time.Millisecond),
		CartTransferTTL:     getEnvDuration("CART_TRANSFER_TTL", 30*time.Minute),
		CartIdleTimeout:     getEnvDuration("CART_IDLE_TIMEOUT", 15*time.Minute),

		// Object store (S3-compatible), used for order archives
		ObjectStoreEndpoint:        getEnv("OBJECT_STORE_ENDPOINT", ""),
		ObjectStoreRegion:          getEnv("OBJECT_STORE_REGION", "auto"),
		ObjectStoreAccessKeyID:     getEnv("OBJECT_STORE_ACCESS_KEY_ID", ""),
		ObjectStoreSecretAccessKey: getEnv("OBJECT_STORE_SECRET_ACCESS_KEY", ""),
		ObjectStoreBucket:          getEnv("OBJECT_STORE_BUCKET", ""),
		ObjectStorePublicBaseURL:   getEnv("OBJECT_STORE_PUBLIC_BASE_URL", ""),
		ObjectStoreStorageClass:    getEnv("OBJECT_STORE_STORAGE_CLASS", "STANDARD"),
	}

	// PORT=4000 style values carry no colon.
	if cfg.HTTPAddr != "" && !strings.Contains(cfg.HTTPAddr, ":") {
		cfg.HTTPAddr = ":" + cfg.HTTPAddr
	}
	if cfg.JWTExpirySeconds <= 0 {
		cfg.JWTExpirySeconds = 7 * 24 * 3600
	}
	if cfg.CartPersistMaxDelay < cfg.CartPersistDelay {
		cfg.CartPersistMaxDelay = cfg.CartPersistDelay
	}

	return cfg
}

// ObjectStoreEnabled reports whether order archiving has enough settings to run.
func (c Config) ObjectStoreEnabled() bool {
	return c.ObjectStoreEndpoint != "" && c.ObjectStoreBucket != ""
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvFirst(keys []string, fallback string) string {
	for _, k := range keys {
		value := strings.TrimSpace(os.Getenv(k))
		if value != "" {
			return value
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
