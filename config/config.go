package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Holiday source kinds.
const (
	HolidaySourceAPI = "api" // public feiertage API
	HolidaySourceDB  = "db"  // holidays table in the local store
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	Port         int
	DatabasePath string
	LogLevel     string
	Environment  string

	HolidaySource       string
	HolidayAPIURL       string
	HolidayJurisdiction string
	HolidayTimeout      time.Duration
	HolidayPrewarmCron  string // empty disables prewarming

	CORSOrigins []string
}

// Load reads configuration from a .env file (if present), environment
// variables and finally command-line flags, later sources winning.
func Load(args []string) (*AppConfig, error) {
	// godotenv.Load does not override variables that are already set.
	_ = godotenv.Load()

	cfg := &AppConfig{
		DatabasePath:        envOr("DATABASE_PATH", "./data/oncall.db"),
		LogLevel:            strings.ToLower(envOr("LOG_LEVEL", "info")),
		Environment:         strings.ToLower(envOr("ENVIRONMENT", "development")),
		HolidaySource:       strings.ToLower(envOr("HOLIDAY_SOURCE", HolidaySourceAPI)),
		HolidayAPIURL:       envOr("HOLIDAY_API_URL", "https://feiertage-api.de/api/"),
		HolidayJurisdiction: strings.ToUpper(envOr("HOLIDAY_JURISDICTION", "NW")),
		HolidayPrewarmCron:  envOr("HOLIDAY_PREWARM_CRON", "0 3 * * *"),
		CORSOrigins:         splitList(envOr("CORS_ORIGINS", "*")),
	}

	var err error
	cfg.Port, err = strconv.Atoi(envOr("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	cfg.HolidayTimeout, err = time.ParseDuration(envOr("HOLIDAY_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HOLIDAY_TIMEOUT: %w", err)
	}
	if v, ok := os.LookupEnv("HOLIDAY_PREWARM_CRON"); ok && v == "" {
		cfg.HolidayPrewarmCron = ""
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fs.StringVar(&cfg.DatabasePath, "db", cfg.DatabasePath, "SQLite database path")
	fs.StringVar(&cfg.HolidaySource, "holidays", cfg.HolidaySource, "holiday source: api or db")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *AppConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is not set")
	}
	switch c.HolidaySource {
	case HolidaySourceAPI, HolidaySourceDB:
	default:
		return fmt.Errorf("invalid HOLIDAY_SOURCE %q (want %q or %q)", c.HolidaySource, HolidaySourceAPI, HolidaySourceDB)
	}
	if c.HolidayJurisdiction == "" {
		return fmt.Errorf("HOLIDAY_JURISDICTION is not set")
	}
	if c.HolidayTimeout <= 0 {
		return fmt.Errorf("HOLIDAY_TIMEOUT must be positive, got %s", c.HolidayTimeout)
	}
	return nil
}

// Addr returns the listen address.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
