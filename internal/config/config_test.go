package config

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.IsDev() {
		t.Fatalf("expected development mode")
	}
	if cfg.JWTSecret == "" || cfg.RefreshSecret == "" {
		t.Fatalf("expected development secrets")
	}
	if cfg.TokenName != "LS Engine Bank" || cfg.TokenSymbol != "LSB" {
		t.Fatalf("unexpected token metadata %q %q", cfg.TokenName, cfg.TokenSymbol)
	}
	if cfg.DepositUnit.Uint64() != 10_000_000_000_000_000 {
		t.Fatalf("unexpected deposit unit %s", cfg.DepositUnit.Dec())
	}
	if cfg.RatePerSecond.Uint64() != 31_709_791 {
		t.Fatalf("unexpected rate %s", cfg.RatePerSecond.Dec())
	}
	if cfg.CardLimit.Dec() != "10000000000000000000" {
		t.Fatalf("unexpected card limit %s", cfg.CardLimit.Dec())
	}
	if cfg.Deployer != common.HexToAddress(defaultDeployer) {
		t.Fatalf("unexpected deployer %s", cfg.Deployer.Hex())
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
	if cfg.EmailEnabled() {
		t.Fatalf("email must be off without SMTP settings")
	}
}

func TestLoadProductionRequiresBackends(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "a")
	t.Setenv("REFRESH_SECRET", "b")

	if _, err := Load(); err == nil {
		t.Fatalf("expected missing DATABASE_URL error")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/lsbank")
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing JWT_SECRET error")
	}

	t.Setenv("JWT_SECRET", "a")
	if _, err := Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestLoadDurations(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("IDEMPOTENCY_TTL", "90m")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ShutdownPeriod != 3*time.Second {
		t.Fatalf("unexpected shutdown period %s", cfg.ShutdownPeriod)
	}
	if cfg.IdempotencyTTL != 90*time.Minute {
		t.Fatalf("unexpected idempotency ttl %s", cfg.IdempotencyTTL)
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Fatalf("unexpected access ttl %s", cfg.AccessTokenTTL)
	}

	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected invalid shutdown timeout error")
	}
}

func TestLoadRejectsBadBankSettings(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	t.Setenv("DEPLOYER_ADDRESS", "not-an-address")
	if _, err := Load(); err == nil {
		t.Fatalf("expected invalid deployer error")
	}
	t.Setenv("DEPLOYER_ADDRESS", "")

	t.Setenv("DEPOSIT_UNIT_WEI", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected zero deposit unit error")
	}
	t.Setenv("DEPOSIT_UNIT_WEI", "0.5")
	if _, err := Load(); err == nil {
		t.Fatalf("expected malformed deposit unit error")
	}
	t.Setenv("DEPOSIT_UNIT_WEI", "")

	t.Setenv("INTEREST_RATE_BASE", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected zero rate base error")
	}
}
