package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	BaseURL  string
	BasePath string
	LogLevel string

	// Browser-facing
	SecureCookies  bool
	AllowedOrigins []string

	// Presentation
	Locale                  string
	Currency                string
	ProductGridMax          int
	ProductPlaceholderImage string

	// Assistant webhook
	AssistantWebhookURL     string
	AssistantTimeout        time.Duration
	AssistantSource         string
	AssistantContentType    string
	AssistantConcurrentReqs int
	AssistantPriceSuffix    string

	// Sessions
	SessionStore string
	SessionTTL   time.Duration

	// Hand-off between hero and answer pages
	HandoffSecret string
	HandoffTTL    time.Duration

	// Conversations
	ConversationIdleTTL time.Duration
	RateLimitPerMinute  int

	// Optional infrastructure
	RedisURL    string
	DatabaseURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:     getEnvOrDefault("PORT", "8080"),
		Env:      getEnvOrDefault("ENV", "development"),
		BaseURL:  strings.TrimRight(getEnvOrDefault("BASE_URL", "http://localhost:8080"), "/"),
		BasePath: normalizeBasePath(getEnvOrDefault("BASE_PATH", "/")),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),

		SecureCookies:  getEnvAsBoolOrDefault("SECURE_COOKIES", false),
		AllowedOrigins: getEnvAsListOrDefault("ALLOWED_ORIGINS", nil),

		Locale:                  getEnvOrDefault("LOCALE", "es-ES"),
		Currency:                getEnvOrDefault("CURRENCY", "EUR"),
		ProductGridMax:          getEnvAsIntOrDefault("PRODUCT_GRID_MAX", 4),
		ProductPlaceholderImage: getEnvOrDefault("PRODUCT_PLACEHOLDER_IMAGE", "/static/img/placeholder.svg"),

		AssistantWebhookURL:     mustGetEnv("ASSISTANT_WEBHOOK_URL"),
		AssistantTimeout:        getEnvAsDurationOrDefault("ASSISTANT_TIMEOUT", 10*time.Second),
		AssistantSource:         getEnvOrDefault("ASSISTANT_SOURCE", "arcos-webchat"),
		AssistantContentType:    getEnvOrDefault("ASSISTANT_CONTENT_TYPE", "markdown"),
		AssistantConcurrentReqs: getEnvAsIntOrDefault("ASSISTANT_CONCURRENT_REQUESTS", 8),
		AssistantPriceSuffix:    getEnvOrDefault("ASSISTANT_PRICE_SUFFIX", "€"),

		SessionStore: getEnvOrDefault("SESSION_STORE", "memory"),
		SessionTTL:   getEnvAsDurationOrDefault("SESSION_TTL", 24*time.Hour),

		HandoffSecret: mustGetEnv("HANDOFF_SECRET"),
		HandoffTTL:    getEnvAsDurationOrDefault("HANDOFF_TTL", 2*time.Minute),

		ConversationIdleTTL: getEnvAsDurationOrDefault("CONVERSATION_IDLE_TTL", 30*time.Minute),
		RateLimitPerMinute:  getEnvAsIntOrDefault("RATE_LIMIT_PER_MINUTE", 20),

		RedisURL:    getEnvOrDefault("REDIS_URL", ""),
		DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
	}

	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvAsListOrDefault splits a comma separated value, dropping blanks.
func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// normalizeBasePath returns the static hosting prefix with leading and
// trailing slashes, e.g. "arcos-chat" -> "/arcos-chat/".
func normalizeBasePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return "/"
	}
	return "/" + p + "/"
}
