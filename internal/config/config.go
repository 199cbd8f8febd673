package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageProviderS3       = "s3"
	StorageProviderSupabase = "supabase"
	StorageProviderLocal    = "local"
)

type Config struct {
	// Application
	AppName            string
	AppEnv             string
	AppURL             string
	Port               string
	SupportEmail       string
	ContentPath        string
	CORSAllowedOrigins []string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret string
	JWTExpiry time.Duration

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// Supabase (optional: login with a Supabase access token, Supabase Storage)
	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string

	// Email
	EmailFrom    string
	ResendAPIKey string

	// Payment - Stripe (optional, premium checkout is disabled without a key)
	StripeSecretKey             string
	StripeWebhookSecret         string
	StripePriceIDPremiumMonthly string
	StripePriceIDPremiumYearly  string

	// Observability (optional)
	SentryDSN string

	// Storage
	StorageProvider  string // "s3", "supabase" or "local"
	S3Region         string
	S3Bucket         string
	S3AccessKey      string
	S3SecretKey      string
	S3Endpoint       string // Optional: for S3-compatible services (MinIO, R2, etc.)
	S3PublicURL      string // Optional: CDN in front of the bucket
	LocalStoragePath string
	LocalStorageURL  string

	// Uploads
	UploadConcurrency   int
	UploadMaxFiles      int
	StorageQuotaFree    int64
	StorageQuotaPremium int64

	// Timelines
	DefaultTimelineName string
	DemoEvents          bool
	SessionIdleTTL      time.Duration
}

// Load reads .env and the environment and exits on invalid configuration.
func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	return cfg
}

// FromEnv builds the config from environment variables only.
func FromEnv() (*Config, error) {
	var missing []string
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		// Application
		AppName:            envString("APP_NAME", "Linéa"),
		AppEnv:             required("APP_ENV"), // 'development' or 'production'
		AppURL:             required("APP_URL"), // base URL for email links and OAuth redirects
		Port:               envString("PORT", "8090"),
		SupportEmail:       envString("SUPPORT_EMAIL", "bonjour@linea.app"),
		ContentPath:        envString("CONTENT_PATH", "content"),
		CORSAllowedOrigins: envStrings("CORS_ALLOWED_ORIGINS", nil),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/linea.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		// Security
		JWTSecret: required("JWT_SECRET"),
		JWTExpiry: envDuration("JWT_EXPIRY", 168*time.Hour), // 7 days

		// OAuth
		GoogleClientID:     envString("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: envString("GOOGLE_CLIENT_SECRET", ""),

		// Supabase
		SupabaseURL:        envString("SUPABASE_URL", ""),
		SupabaseServiceKey: envString("SUPABASE_SERVICE_KEY", ""),
		SupabaseBucket:     envString("SUPABASE_BUCKET", "media"),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:    envString("EMAIL_FROM", "noreply@linea.app"),
		ResendAPIKey: envString("RESEND_API_KEY", ""),

		// Payment
		StripeSecretKey:             envString("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:         envString("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceIDPremiumMonthly: envString("STRIPE_PRICE_ID_PREMIUM_MONTHLY", ""),
		StripePriceIDPremiumYearly:  envString("STRIPE_PRICE_ID_PREMIUM_YEARLY", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage
		StorageProvider:  envString("STORAGE_PROVIDER", StorageProviderLocal),
		S3Region:         envString("S3_REGION", ""),
		S3Bucket:         envString("S3_BUCKET", ""),
		S3AccessKey:      envString("S3_ACCESS_KEY", ""),
		S3SecretKey:      envString("S3_SECRET_KEY", ""),
		S3Endpoint:       envString("S3_ENDPOINT", ""),
		S3PublicURL:      envString("S3_PUBLIC_URL", ""),
		LocalStoragePath: envString("LOCAL_STORAGE_PATH", "./data/uploads"),
		LocalStorageURL:  envString("LOCAL_STORAGE_URL", ""),

		// Uploads
		UploadConcurrency:   envInt("UPLOAD_CONCURRENCY", 1),
		UploadMaxFiles:      envInt("UPLOAD_MAX_FILES", 10),
		StorageQuotaFree:    int64(envInt("STORAGE_QUOTA_FREE_MB", 500)) << 20,
		StorageQuotaPremium: int64(envInt("STORAGE_QUOTA_PREMIUM_MB", 5120)) << 20,

		// Timelines
		DefaultTimelineName: envString("DEFAULT_TIMELINE_NAME", "La famille"),
		DemoEvents:          envBool("DEMO_EVENTS", false),
		SessionIdleTTL:      envDuration("SESSION_IDLE_TTL", 0),
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required env vars missing: %s", strings.Join(missing, ", "))
	}

	if cfg.LocalStorageURL == "" {
		cfg.LocalStorageURL = strings.TrimSuffix(cfg.AppURL, "/") + "/uploads"
	}
	if cfg.UploadConcurrency < 1 {
		cfg.UploadConcurrency = 1
	}

	err := cfg.validateStorage()
	if err != nil {
		return nil, err
	}

	// Production: validate required services
	if cfg.IsProduction() {
		err = validateProduction(cfg)
		if err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) validateStorage() error {
	switch c.StorageProvider {
	case StorageProviderS3:
		if c.S3Region == "" || c.S3Bucket == "" {
			return errors.New("STORAGE_PROVIDER=s3 requires S3_REGION and S3_BUCKET")
		}
	case StorageProviderSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return errors.New("STORAGE_PROVIDER=supabase requires SUPABASE_URL and SUPABASE_SERVICE_KEY")
		}
	case StorageProviderLocal:
	default:
		return fmt.Errorf("unknown STORAGE_PROVIDER: %s (supported: s3, supabase, local)", c.StorageProvider)
	}
	return nil
}

// validateProduction ensures all required services are configured for production deployments.
// Development allows some services (like email and local storage) to use fallback modes.
func validateProduction(cfg *Config) error {
	if cfg.ResendAPIKey == "" {
		return errors.New("production deployment requires RESEND_API_KEY (set APP_ENV=development for email log mode)")
	}
	if cfg.StorageProvider == StorageProviderLocal {
		slog.Warn("production deployment uses local storage", "path", cfg.LocalStoragePath)
	}
	return nil
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envStrings(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) PaymentsEnabled() bool {
	return c.StripeSecretKey != ""
}

func (c *Config) AllowedOrigins() []string {
	if len(c.CORSAllowedOrigins) > 0 {
		return c.CORSAllowedOrigins
	}
	return []string{c.AppURL}
}
