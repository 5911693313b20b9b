package config

import (
	"os"
	"strconv"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
}

type CreditsConfig struct {
	// Credits consumed when one member is approved. Policy constant,
	// independent of plan pricing.
	PerMember int64
	// Warning threshold applied to newly created accounts.
	LowCreditThreshold int64
}

type TrialConfig struct {
	// Global switch for the one-time free trial.
	Enabled      bool
	DurationDays int
	Credits      int64
}

type QRConfig struct {
	// HMAC-SHA256 signing secret, injected, never a code constant.
	SigningSecret string
	ImageSize     int
}

type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string

	R2      R2Config
	Credits CreditsConfig
	Trial   TrialConfig
	QR      QRConfig

	StripeSecretKey     string
	StripeWebhookSecret string
}

func LoadConfig() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
	}

	cfg.R2.AccountID = os.Getenv("R2_ACCOUNT_ID")
	cfg.R2.AccessKeyID = os.Getenv("R2_ACCESS_KEY_ID")
	cfg.R2.SecretAccessKey = os.Getenv("R2_SECRET_ACCESS_KEY")
	cfg.R2.Bucket = os.Getenv("R2_BUCKET")
	cfg.R2.PublicURL = os.Getenv("R2_PUBLIC_URL")

	cfg.Credits.PerMember = getEnvInt64("CREDITS_PER_MEMBER", 1)
	cfg.Credits.LowCreditThreshold = getEnvInt64("LOW_CREDIT_THRESHOLD", 5)

	cfg.Trial.Enabled = getEnvBool("FREE_TRIAL_ENABLED", true)
	cfg.Trial.DurationDays = int(getEnvInt64("TRIAL_DURATION_DAYS", 30))
	cfg.Trial.Credits = getEnvInt64("TRIAL_CREDITS", 10)

	cfg.QR.SigningSecret = os.Getenv("QR_SIGNING_SECRET")
	cfg.QR.ImageSize = int(getEnvInt64("QR_IMAGE_SIZE", 256))

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
