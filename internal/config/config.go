package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// Server
	Port string
	Env  string // "development", "production"

	// Databases
	DatabaseURL          string // product store
	ReferenceDatabaseURL string // competitor price comparison store

	// Watched site
	BaseURL   string
	BasketURL string // shared basket page carrying the watched products

	// Scrape cycle
	ScrapeEnabled  bool
	ScrapeSchedule string        // Cron expression (e.g., "*/5 * * * *")
	ScrapeTimeout  time.Duration // Timeout for a complete scrape cycle

	// Persistence batcher
	BatchSize     int
	FlushInterval time.Duration

	// Alerting
	AlertThreshold decimal.Decimal // negative; fire when price - reference <= threshold

	// Proxies
	ProxyList             []string
	ProxyProbeTimeout     time.Duration
	ProxyProbeConcurrency int

	// Chat transport
	TelegramTokens []string
	TelegramChatID int64

	// Message bus
	BusURL     string
	BusSubject string

	// Preview image cache
	ImageCacheDir string
}

func Load() *Config {
	return &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Databases
		DatabaseURL:          getEnv("DATABASE_URL", "postgres://localhost:5432/pricewatch?sslmode=disable"),
		ReferenceDatabaseURL: getEnv("REFERENCE_DATABASE_URL", "postgres://localhost:5432/akakce?sslmode=disable"),

		// Watched site
		BaseURL:   getEnv("BASE_URL", "https://www.mediamarkt.com.tr"),
		BasketURL: getEnv("BASKET_URL", "https://www.mediamarkt.com.tr/tr/basket"),

		// Scrape cycle
		ScrapeEnabled:  getBoolEnv("SCRAPE_ENABLED", true),
		ScrapeSchedule: getEnv("SCRAPE_SCHEDULE", "*/5 * * * *"),
		ScrapeTimeout:  getDurationEnv("SCRAPE_TIMEOUT", 5*time.Minute),

		// Persistence batcher
		BatchSize:     getIntEnv("BATCH_SIZE", 100),
		FlushInterval: getDurationEnv("FLUSH_INTERVAL", time.Second),

		// Alerting
		AlertThreshold: getDecimalEnv("ALERT_THRESHOLD", decimal.NewFromInt(-1000)),

		// Proxies
		ProxyList:             getListEnv("PROXY_LIST"),
		ProxyProbeTimeout:     getDurationEnv("PROXY_PROBE_TIMEOUT", 5*time.Second),
		ProxyProbeConcurrency: getIntEnv("PROXY_PROBE_CONCURRENCY", 8),

		// Chat transport
		TelegramTokens: getListEnv("TELEGRAM_TOKENS"),
		TelegramChatID: getInt64Env("TELEGRAM_CHAT_ID", 0),

		// Message bus
		BusURL:     getEnv("BUS_URL", "nats://127.0.0.1:4222"),
		BusSubject: getEnv("BUS_SUBJECT", "pricewatch.alerts"),

		// Preview image cache
		ImageCacheDir: getEnv("IMAGE_CACHE_DIR", "image_cache"),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getDecimalEnv(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getListEnv parses a comma-separated environment value, dropping empty
// entries.
func getListEnv(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
