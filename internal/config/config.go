package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-edge/internal/common"
)

const (
	placeholderSupabaseURL = "https://placeholder.supabase.co"
	placeholderAnonKey     = "placeholder"

	DriverSupabase = "supabase"
	DriverSQLite   = "sqlite"
)

type AppConfig struct {
	Port     string
	LogLevel string

	// HTTPTimeout bounds every outbound call.
	HTTPTimeout time.Duration

	KalshiAPIKey  string
	KalshiBaseURL string
	// PriceRevalidate is how long an upstream price response is reused.
	PriceRevalidate time.Duration

	BackendDriver   string
	SupabaseURL     string
	SupabaseAnonKey string
	SQLitePath      string

	// HealthInterval controls how often backend table counts are snapshotted.
	HealthInterval time.Duration

	// In-memory health history retention.
	StoreMaxHistory int           // max number of reports (0 = unlimited)
	StoreMaxAge     time.Duration // max age of reports (0 = unlimited)
}

// fileConfig mirrors the optional YAML file named by CONFIG_FILE.
type fileConfig struct {
	Port            string `yaml:"port"`
	LogLevel        string `yaml:"log_level"`
	HTTPTimeout     string `yaml:"http_timeout"`
	KalshiBaseURL   string `yaml:"kalshi_base_url"`
	PriceRevalidate string `yaml:"price_revalidate"`
	BackendDriver   string `yaml:"backend_driver"`
	SupabaseURL     string `yaml:"supabase_url"`
	SQLitePath      string `yaml:"sqlite_path"`
	HealthInterval  string `yaml:"health_check_interval"`
	StoreMaxHistory *int   `yaml:"store_max_history"`
	StoreMaxAge     string `yaml:"store_max_age"`
}

// Load reads configuration from the environment with sensible defaults.
// Values in an optional YAML file (CONFIG_FILE) sit between the defaults
// and the environment.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}

	fc, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	cfg := &AppConfig{}
	cfg.Port = getenvDefault("PORT", common.FirstNonEmpty(fc.Port, "8080"))
	cfg.LogLevel = getenvDefault("LOG_LEVEL", common.FirstNonEmpty(fc.LogLevel, "info"))

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", common.FirstNonEmpty(fc.HTTPTimeout, "10s")); err != nil {
		return nil, err
	}

	// Secrets are only read from the environment.
	cfg.KalshiAPIKey = os.Getenv("KALSHI_API_KEY")
	cfg.KalshiBaseURL = getenvDefault("KALSHI_BASE_URL", common.FirstNonEmpty(fc.KalshiBaseURL, "https://api.kalshi.com/trade-api/v2"))
	if cfg.PriceRevalidate, err = getenvDuration("PRICE_REVALIDATE", common.FirstNonEmpty(fc.PriceRevalidate, "1s")); err != nil {
		return nil, err
	}

	cfg.BackendDriver = strings.ToLower(getenvDefault("BACKEND_DRIVER", common.FirstNonEmpty(fc.BackendDriver, DriverSupabase)))
	if cfg.BackendDriver != DriverSupabase && cfg.BackendDriver != DriverSQLite {
		return nil, fmt.Errorf("invalid BACKEND_DRIVER: %q", cfg.BackendDriver)
	}

	// Placeholders keep startup non-fatal when the backend is not configured.
	cfg.SupabaseURL = common.FirstNonEmpty(os.Getenv("NEXT_PUBLIC_SUPABASE_URL"), os.Getenv("SUPABASE_URL"), fc.SupabaseURL, placeholderSupabaseURL)
	cfg.SupabaseAnonKey = common.FirstNonEmpty(os.Getenv("NEXT_PUBLIC_SUPABASE_ANON_KEY"), os.Getenv("SUPABASE_ANON_KEY"), placeholderAnonKey)
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", common.FirstNonEmpty(fc.SQLitePath, "data/weather.db"))

	if cfg.HealthInterval, err = getenvDuration("HEALTH_CHECK_INTERVAL", common.FirstNonEmpty(fc.HealthInterval, "15m")); err != nil {
		return nil, err
	}

	maxHistory := 96 // roughly 24h at 15-minute intervals
	if fc.StoreMaxHistory != nil {
		maxHistory = *fc.StoreMaxHistory
	}
	if cfg.StoreMaxHistory, err = getenvInt("STORE_MAX_HISTORY", maxHistory); err != nil {
		return nil, err
	}

	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", common.FirstNonEmpty(fc.StoreMaxAge, "24h")); err != nil {
		return nil, err
	}

	return cfg, nil
}

// UsesPlaceholderBackend reports whether the Supabase settings fell back to
// placeholders.
func (c *AppConfig) UsesPlaceholderBackend() bool {
	return c.SupabaseURL == placeholderSupabaseURL || c.SupabaseAnonKey == placeholderAnonKey
}

func readFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config: %w", err)
	}
	return fc, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	s := getenvDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
