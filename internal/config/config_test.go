package config

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("MINIMUM_DEPOSIT_AMOUNT", "10")
	t.Setenv("MINIMUM_WITHDRAWAL_AMOUNT", "10")
	t.Setenv("TRANSFER_APPLIES_WITHDRAWAL_RULES", "true")
	t.Setenv("ACCOUNT_TYPES", "1:savings:50000,2:current:100000")
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("ACCOUNT_NUMBER_START_FROM", "1000000000")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StoreBackend != BackendMemory || cfg.Port != "8080" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 0 || cfg.RedisAddr != "" {
		t.Fatalf("optional integrations should be off: %+v", cfg)
	}
	if !cfg.Policy.MinDeposit.Equal(decimal.NewFromInt(10)) || !cfg.Policy.TransferAppliesWithdrawalRules {
		t.Fatalf("unexpected policy: %+v", cfg.Policy)
	}
	if cfg.AccountNumberStart != 1000000000 {
		t.Fatalf("account number start=%d", cfg.AccountNumberStart)
	}
	if len(cfg.AccountTypes) != 2 || cfg.AccountTypes[1].Name != "current" || !cfg.AccountTypes[1].MaxWithdrawal.Equal(decimal.NewFromInt(100000)) {
		t.Fatalf("unexpected account types: %+v", cfg.AccountTypes)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://ledger@localhost/ledger?sslmode=disable")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("MINIMUM_WITHDRAWAL_AMOUNT", "25.50")
	t.Setenv("TRANSFER_APPLIES_WITHDRAWAL_RULES", "false")
	t.Setenv("ACCOUNT_TYPES", "7:premium:250000.00")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ACCOUNT_NUMBER_START_FROM", "5000")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Fatalf("brokers=%v", cfg.KafkaBrokers)
	}
	if !cfg.Policy.MinWithdrawal.Equal(decimal.RequireFromString("25.50")) || cfg.Policy.TransferAppliesWithdrawalRules {
		t.Fatalf("unexpected policy: %+v", cfg.Policy)
	}
	if len(cfg.AccountTypes) != 1 || cfg.AccountTypes[0].ID != 7 {
		t.Fatalf("unexpected account types: %+v", cfg.AccountTypes)
	}
	if cfg.AccountNumberStart != 5000 {
		t.Fatalf("account number start=%d", cfg.AccountNumberStart)
	}
	if cfg.LogLevel.String() != "DEBUG" {
		t.Fatalf("log level=%s", cfg.LogLevel)
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"postgres without url": {"STORE_BACKEND", "postgres"},
		"unknown backend":      {"STORE_BACKEND", "sqlite"},
		"bad minimum":          {"MINIMUM_DEPOSIT_AMOUNT", "ten"},
		"negative minimum":     {"MINIMUM_WITHDRAWAL_AMOUNT", "-1"},
		"bad account type":     {"ACCOUNT_TYPES", "1:savings"},
		"zero maximum":         {"ACCOUNT_TYPES", "1:savings:0"},
		"bad bool":             {"TRANSFER_APPLIES_WITHDRAWAL_RULES", "sometimes"},
		"bad account start":    {"ACCOUNT_NUMBER_START_FROM", "one"},
		"zero account start":   {"ACCOUNT_NUMBER_START_FROM", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			t.Setenv(kv[0], kv[1])
			if _, err := FromEnv(); err == nil {
				t.Fatalf("%s=%q: expected error", kv[0], kv[1])
			}
		})
	}
}
