package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sheikh-saqib/banking-ledger-core/internal/ledger"
	"github.com/sheikh-saqib/banking-ledger-core/internal/models"
	"github.com/shopspring/decimal"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type Config struct {
	Port     string
	Env      string
	LogLevel slog.Level

	StoreBackend string
	DatabaseURL  string

	KafkaBrokers []string
	KafkaTopic   string

	RedisAddr string

	// AccountNumberStart is the lowest account number registration accepts.
	AccountNumberStart int64

	Policy       ledger.Policy
	AccountTypes []models.AccountType
}

// Load reads a .env file if there is one, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on System Env Variables")
	}
	return FromEnv()
}

// FromEnv builds the config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("ENV", "development"),
		StoreBackend: getEnv("STORE_BACKEND", BackendMemory),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", ledger.DefaultTopic),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	switch cfg.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the %s backend", BackendPostgres)
		}
	default:
		return nil, fmt.Errorf("STORE_BACKEND: unknown backend %q", cfg.StoreBackend)
	}

	var err error
	if cfg.Policy.MinDeposit, err = getDecimal("MINIMUM_DEPOSIT_AMOUNT", "10"); err != nil {
		return nil, err
	}
	if cfg.Policy.MinWithdrawal, err = getDecimal("MINIMUM_WITHDRAWAL_AMOUNT", "10"); err != nil {
		return nil, err
	}
	if cfg.Policy.TransferAppliesWithdrawalRules, err = strconv.ParseBool(getEnv("TRANSFER_APPLIES_WITHDRAWAL_RULES", "true")); err != nil {
		return nil, fmt.Errorf("TRANSFER_APPLIES_WITHDRAWAL_RULES: %w", err)
	}
	if cfg.AccountNumberStart, err = strconv.ParseInt(getEnv("ACCOUNT_NUMBER_START_FROM", strconv.FormatInt(models.DefaultAccountNumberStart, 10)), 10, 64); err != nil {
		return nil, fmt.Errorf("ACCOUNT_NUMBER_START_FROM: %w", err)
	}
	if cfg.AccountNumberStart <= 0 {
		return nil, fmt.Errorf("ACCOUNT_NUMBER_START_FROM: must be positive, got %d", cfg.AccountNumberStart)
	}
	if cfg.AccountTypes, err = parseAccountTypes(getEnv("ACCOUNT_TYPES", "1:savings:50000,2:current:100000")); err != nil {
		return nil, fmt.Errorf("ACCOUNT_TYPES: %w", err)
	}
	return cfg, nil
}

// parseAccountTypes reads "id:name:max,id:name:max".
func parseAccountTypes(s string) ([]models.AccountType, error) {
	var out []models.AccountType
	for _, item := range splitList(s) {
		parts := strings.Split(item, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%q: want id:name:max_withdrawal", item)
		}
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q: id: %w", item, err)
		}
		maxWithdrawal, err := decimal.NewFromString(parts[2])
		if err != nil {
			return nil, fmt.Errorf("%q: max_withdrawal: %w", item, err)
		}
		t, err := models.NewAccountType(id, parts[1], maxWithdrawal)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func getDecimal(key, fallback string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s: must not be negative", key)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
