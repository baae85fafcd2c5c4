package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ZeroR0R/LSBank/internal/units"
)

const (
	defaultAppName         = "LSBank"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultAccessTTL       = 15 * time.Minute
	defaultRefreshTTL      = 30 * 24 * time.Hour
	defaultDeployer        = "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"
	defaultTokenName       = "LS Engine Bank"
	defaultTokenSymbol     = "LSB"
	defaultDepositUnitWei  = "10000000000000000"
	defaultRatePerSecond   = "31709791"
	defaultRateBase        = "10000000000000000"
	defaultCardLimitWei    = "10000000000000000000"
	defaultReportSchedule  = "@every 1m"
	defaultEventsChannel   = "lsbank:events"
	devJWTSecret           = "lsbank-dev-access-secret"
	devRefreshSecret       = "lsbank-dev-refresh-secret"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	JWTSecret       string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	Deployer       common.Address
	TokenName      string
	TokenSymbol    string
	DepositUnit    *uint256.Int
	RatePerSecond  *uint256.Int
	RateBase       *uint256.Int
	CardLimit      *uint256.Int
	ReportSchedule string
	EventsChannel  string
	SMTPAddr       string
	SMTPFrom       string
	NotifyEmailTo  string
}

// Load reads configuration values from the environment and populates a Config instance.
// Outside development DATABASE_URL, REDIS_URL and both JWT secrets are mandatory.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
		JWTSecret:      os.Getenv("JWT_SECRET"),
		RefreshSecret:  os.Getenv("REFRESH_SECRET"),
		TokenName:      getEnv("TOKEN_NAME", defaultTokenName),
		TokenSymbol:    getEnv("TOKEN_SYMBOL", defaultTokenSymbol),
		ReportSchedule: getEnv("REPORT_SCHEDULE", defaultReportSchedule),
		EventsChannel:  getEnv("EVENTS_CHANNEL", defaultEventsChannel),
		SMTPAddr:       os.Getenv("SMTP_ADDR"),
		SMTPFrom:       os.Getenv("SMTP_FROM"),
		NotifyEmailTo:  os.Getenv("NOTIFY_EMAIL_TO"),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationEnv("", "ACCESS_TOKEN_TTL", defaultAccessTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationEnv("", "REFRESH_TOKEN_TTL", defaultRefreshTTL); err != nil {
		return Config{}, err
	}

	deployer := getEnv("DEPLOYER_ADDRESS", defaultDeployer)
	if !common.IsHexAddress(deployer) {
		return Config{}, fmt.Errorf("invalid DEPLOYER_ADDRESS: %q", deployer)
	}
	cfg.Deployer = common.HexToAddress(deployer)

	if cfg.DepositUnit, err = weiEnv("DEPOSIT_UNIT_WEI", defaultDepositUnitWei); err != nil {
		return Config{}, err
	}
	if cfg.RatePerSecond, err = weiEnv("INTEREST_RATE_PER_SECOND", defaultRatePerSecond); err != nil {
		return Config{}, err
	}
	if cfg.RateBase, err = weiEnv("INTEREST_RATE_BASE", defaultRateBase); err != nil {
		return Config{}, err
	}
	if cfg.CardLimit, err = weiEnv("CARD_LIMIT_WEI", defaultCardLimitWei); err != nil {
		return Config{}, err
	}
	if cfg.DepositUnit.IsZero() {
		return Config{}, fmt.Errorf("DEPOSIT_UNIT_WEI must be positive")
	}
	if cfg.RateBase.IsZero() {
		return Config{}, fmt.Errorf("INTEREST_RATE_BASE must be positive")
	}

	if cfg.IsDev() {
		if cfg.JWTSecret == "" {
			cfg.JWTSecret = devJWTSecret
		}
		if cfg.RefreshSecret == "" {
			cfg.RefreshSecret = devRefreshSecret
		}
		return cfg, nil
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}
	if cfg.JWTSecret == "" || cfg.RefreshSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET and REFRESH_SECRET must be set")
	}

	return cfg, nil
}

// IsDev reports whether the service runs in development mode.
func (c Config) IsDev() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev" || c.AppEnv == "local"
}

// EmailEnabled reports whether SMTP notifications are configured.
func (c Config) EmailEnabled() bool {
	return c.SMTPAddr != "" && c.SMTPFrom != "" && c.NotifyEmailTo != ""
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationEnv prefers an integer seconds variable over a Go duration one.
func durationEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func weiEnv(key, fallback string) (*uint256.Int, error) {
	v, err := units.ParseWei(getEnv(key, fallback))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
