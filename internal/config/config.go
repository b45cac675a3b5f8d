package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"guardian-backend/internal/models"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database. Empty means the in-memory row store (local development).
	DatabaseURL string

	// Redis. Empty means the in-process debounce guard.
	RedisURL string

	// Webhook signature secret shared with the chat platform.
	ChannelSecret string

	// Admin allow-list, comma separated user ids.
	AdminUserIDs []string

	// Shop catalog file.
	CatalogPath string

	// Household timezone for session timestamps.
	Timezone string

	// Timeout sweep
	SessionLimitMinutes int
	SweepIntervalMin    int

	LogLevel string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                getEnvOrDefault("PORT", "8080"),
		Env:                 getEnvOrDefault("ENV", "development"),
		DatabaseURL:         getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:            getEnvOrDefault("REDIS_URL", ""),
		ChannelSecret:       mustGetEnv("CHANNEL_SECRET"),
		AdminUserIDs:        splitList(mustGetEnv("ADMIN_USER_IDS")),
		CatalogPath:         getEnvOrDefault("SHOP_CATALOG_PATH", "catalog.json"),
		Timezone:            getEnvOrDefault("TIMEZONE", "Asia/Tokyo"),
		SessionLimitMinutes: getEnvAsIntOrDefault("SESSION_LIMIT_MINUTES", 90),
		SweepIntervalMin:    getEnvAsIntOrDefault("SWEEP_INTERVAL_MINUTES", 5),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
	}

	return cfg
}

// LoadCatalog reads and validates the static shop catalog. An invalid entry
// aborts startup rather than surfacing later as a broken purchase.
func LoadCatalog(path string) ([]models.ShopItem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shop catalog: %w", err)
	}

	var items []models.ShopItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to parse shop catalog: %w", err)
	}

	validate := validator.New()
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if err := validate.Struct(item); err != nil {
			return nil, fmt.Errorf("invalid catalog entry %d (%q): %w", i, item.Key, err)
		}
		if _, dup := seen[item.Key]; dup {
			return nil, fmt.Errorf("duplicate catalog key %q", item.Key)
		}
		seen[item.Key] = struct{}{}
	}

	return items, nil
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
