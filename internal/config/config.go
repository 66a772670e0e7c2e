package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Storage backends
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds the server configuration, read from the environment.
type Config struct {
	GRPCPort  string
	APIToken  string
	Storage   string
	DBConnStr string
	LogLevel  string

	PlansFile string

	TaxWageRate             decimal.Decimal
	TaxLongTermRate         decimal.Decimal
	TaxShortTermRate        decimal.Decimal
	TaxLongTermYears        int
	TaxClampNegativeGains   bool
	RequirePlanConfirmation bool

	PriceCacheTTL       time.Duration
	QuoteProviderURL    string
	QuoteRatePerSecond  float64
	PriceUpdateInterval time.Duration
	VestingEvalInterval time.Duration

	TimelineWorkers  int
	RPCRatePerSecond float64
	RPCBurst         int
}

// Load reads an optional .env file and then the process environment.
// Missing variables fall back to development defaults; malformed ones are errors.
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		GRPCPort:  ":" + getEnv("GRPC_PORT", "8080"),
		APIToken:  getEnv("API_TOKEN", "dev-token"),
		Storage:   strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		DBConnStr: dbConnStr(),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		PlansFile: os.Getenv("PLANS_FILE"),

		QuoteProviderURL: os.Getenv("QUOTE_PROVIDER_URL"),
	}

	var err error
	if cfg.TaxWageRate, err = getDecimal("TAX_WAGE_RATE", "0.65"); err != nil {
		return nil, err
	}
	if cfg.TaxLongTermRate, err = getDecimal("TAX_LONG_TERM_RATE", "0.25"); err != nil {
		return nil, err
	}
	if cfg.TaxShortTermRate, err = getDecimal("TAX_SHORT_TERM_RATE", "0.65"); err != nil {
		return nil, err
	}
	if cfg.TaxLongTermYears, err = getInt("TAX_LONG_TERM_YEARS", 2); err != nil {
		return nil, err
	}
	if cfg.TaxClampNegativeGains, err = getBool("TAX_CLAMP_NEGATIVE_GAINS", false); err != nil {
		return nil, err
	}
	if cfg.RequirePlanConfirmation, err = getBool("REQUIRE_PLAN_CHANGE_CONFIRMATION", true); err != nil {
		return nil, err
	}
	if cfg.PriceCacheTTL, err = getDuration("PRICE_CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.QuoteRatePerSecond, err = getFloat("QUOTE_RATE_PER_SECOND", 2); err != nil {
		return nil, err
	}
	if cfg.PriceUpdateInterval, err = getDuration("PRICE_UPDATE_INTERVAL", 6*time.Hour); err != nil {
		return nil, err
	}
	if cfg.VestingEvalInterval, err = getDuration("VESTING_EVAL_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.TimelineWorkers, err = getInt("TIMELINE_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.RPCRatePerSecond, err = getFloat("RPC_RATE_PER_SECOND", 50); err != nil {
		return nil, err
	}
	if cfg.RPCBurst, err = getInt("RPC_BURST", 100); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the configuration is usable
func (c *Config) Validate() error {
	if c.Storage != StoragePostgres && c.Storage != StorageMemory {
		return fmt.Errorf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Storage)
	}
	if c.TaxLongTermYears <= 0 {
		return fmt.Errorf("TAX_LONG_TERM_YEARS must be positive")
	}
	for name, rate := range map[string]decimal.Decimal{
		"TAX_WAGE_RATE":       c.TaxWageRate,
		"TAX_LONG_TERM_RATE":  c.TaxLongTermRate,
		"TAX_SHORT_TERM_RATE": c.TaxShortTermRate,
	} {
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if c.TimelineWorkers <= 0 {
		return fmt.Errorf("TIMELINE_WORKERS must be positive")
	}
	if c.QuoteRatePerSecond <= 0 || c.RPCRatePerSecond <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	return nil
}

// dbConnStr uses DB_CONN_STR, or builds the string from individual vars (Docker friendly)
func dbConnStr() string {
	if s := os.Getenv("DB_CONN_STR"); s != "" {
		return s
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "vestflow"),
	)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func getDecimal(key, fallback string) (decimal.Decimal, error) {
	s := getEnv(key, fallback)
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}
