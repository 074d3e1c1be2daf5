package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultAppName          = "ShieldPay"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultNetwork          = "Dolphin"
	defaultWalletBackend    = "extension"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultRefreshInterval  = time.Second
	defaultPreferenceTTL    = 0
	defaultSendRateLimit    = 10
	idemTTLSecondsEnvVar    = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar        = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar   = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar  = "SHUTDOWN_TIMEOUT"
	refreshIntervalEnvVar   = "BALANCE_REFRESH_INTERVAL"
	preferenceTTLEnvVar     = "PREFERENCE_TTL"
	feeEstimateEnvVar       = "FEE_ESTIMATE"
	suggestedMinFeeEnvVar   = "SUGGESTED_MIN_FEE_BALANCE"
	sendRateLimitEnvVar     = "SEND_RATE_LIMIT_PER_MIN"
	defaultFeeEstimate      = "50"
	defaultSuggestedMinFees = "150"
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

	Network          string
	AssetsFile       string
	WalletBackend    string
	MinWalletVersion string
	FeeEstimate      decimal.Decimal
	SuggestedMinFee  decimal.Decimal
	RefreshInterval  time.Duration
	PreferenceTTL    time.Duration
	SendRateLimit    int
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		ShutdownPeriod:   defaultShutdownDelay,
		IdempotencyTTL:   defaultIdempotencyTTL,
		Network:          getEnv("NETWORK_NAME", defaultNetwork),
		AssetsFile:       os.Getenv("ASSETS_FILE"),
		WalletBackend:    strings.ToLower(getEnv("WALLET_BACKEND", defaultWalletBackend)),
		MinWalletVersion: os.Getenv("MIN_WALLET_VERSION"),
		RefreshInterval:  defaultRefreshInterval,
		PreferenceTTL:    defaultPreferenceTTL,
		SendRateLimit:    defaultSendRateLimit,
	}

	var err error
	if cfg.ShutdownPeriod, err = secondsOrDuration(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = secondsOrDuration(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshInterval, err = duration(refreshIntervalEnvVar, cfg.RefreshInterval); err != nil {
		return Config{}, err
	}
	if cfg.PreferenceTTL, err = duration(preferenceTTLEnvVar, cfg.PreferenceTTL); err != nil {
		return Config{}, err
	}
	if cfg.FeeEstimate, err = amount(feeEstimateEnvVar, defaultFeeEstimate); err != nil {
		return Config{}, err
	}
	if cfg.SuggestedMinFee, err = amount(suggestedMinFeeEnvVar, defaultSuggestedMinFees); err != nil {
		return Config{}, err
	}
	if v := os.Getenv(sendRateLimitEnvVar); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", sendRateLimitEnvVar, err)
		}
		cfg.SendRateLimit = n
	}

	if cfg.RefreshInterval <= 0 {
		return Config{}, fmt.Errorf("%s must be positive", refreshIntervalEnvVar)
	}
	if cfg.WalletBackend != "extension" && cfg.WalletBackend != "managed" {
		return Config{}, fmt.Errorf("WALLET_BACKEND must be extension or managed, got %q", cfg.WalletBackend)
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
	}

	return cfg, nil
}

// IsDev reports whether the service may run without Postgres and Redis.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
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

func secondsOrDuration(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	return duration(durationKey, fallback)
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func amount(key, fallback string) (decimal.Decimal, error) {
	v := getEnv(key, fallback)
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
