package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type APIConfig struct {
	Addr        string
	Store       string
	DatabaseURL string
	SQLitePath  string
	CatalogFile string

	InactiveHungerMultiplier float64
	DayStartHour             int
	DayEndHour               int
	WorldWidth               float64
	WorldHeight              float64

	CacheTTL  time.Duration
	CacheSize int
	RedisURL  string

	LogLevel slog.Level
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("AQUARIUM_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:        addr,
		Store:       strings.ToLower(envDefault("AQUARIUM_STORE", StoreSQLite)),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:  envDefault("AQUARIUM_SQLITE_PATH", "data/aquarium.db"),
		CatalogFile: strings.TrimSpace(os.Getenv("AQUARIUM_CATALOG_FILE")),

		InactiveHungerMultiplier: envFloatDefault("AQUARIUM_INACTIVE_HUNGER_MULTIPLIER", 0.4),
		DayStartHour:             envIntDefault("AQUARIUM_DAY_START_HOUR", 6),
		DayEndHour:               envIntDefault("AQUARIUM_DAY_END_HOUR", 20),
		WorldWidth:               envFloatDefault("AQUARIUM_WORLD_WIDTH", 800),
		WorldHeight:              envFloatDefault("AQUARIUM_WORLD_HEIGHT", 600),

		CacheTTL:  envDurationDefault("AQUARIUM_CACHE_TTL", 3*time.Second),
		CacheSize: envIntDefault("AQUARIUM_CACHE_SIZE", 1024),
		RedisURL:  strings.TrimSpace(os.Getenv("REDIS_URL")),

		LogLevel: envLevelDefault("AQUARIUM_LOG_LEVEL", slog.LevelInfo),
	}

	switch cfg.Store {
	case StoreSQLite:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return cfg, fmt.Errorf("DATABASE_URL is required when AQUARIUM_STORE=postgres")
		}
	default:
		return cfg, fmt.Errorf("AQUARIUM_STORE must be %q or %q, got %q", StoreSQLite, StorePostgres, cfg.Store)
	}
	if cfg.InactiveHungerMultiplier < 0.3 || cfg.InactiveHungerMultiplier > 0.5 {
		return cfg, fmt.Errorf("AQUARIUM_INACTIVE_HUNGER_MULTIPLIER must be within [0.3, 0.5]")
	}
	if cfg.DayStartHour < 0 || cfg.DayStartHour > 23 || cfg.DayEndHour < 0 || cfg.DayEndHour > 24 {
		return cfg, fmt.Errorf("day window hours out of range")
	}
	if cfg.WorldWidth <= 0 || cfg.WorldHeight <= 0 {
		return cfg, fmt.Errorf("world dimensions must be positive")
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("AQUARIUM_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envLevelDefault(key string, fallback slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return level
}
