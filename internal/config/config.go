package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	AppURL         string   `mapstructure:"APP_URL"`
	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`

	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	DBMaxConnIdleTime time.Duration `mapstructure:"DB_MAX_CONN_IDLE_TIME"`
	DBConnectTimeout  time.Duration `mapstructure:"DB_CONNECT_TIMEOUT"`
	DBRequireTLS      bool          `mapstructure:"DB_REQUIRE_TLS"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	RateLimitRPS      float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	JWTSecret         string        `mapstructure:"JWT_SECRET"`

	AWSRegion     string `mapstructure:"AWS_REGION"`
	EmailProvider string `mapstructure:"EMAIL_PROVIDER"`
	FromEmail     string `mapstructure:"NOTIFICATION_FROM_EMAIL"`
	FromName      string `mapstructure:"NOTIFICATION_FROM_NAME"`
	SMSSenderID   string `mapstructure:"SMS_SENDER_ID"`
	SMTPHost      string `mapstructure:"SMTP_HOST"`
	SMTPPort      int    `mapstructure:"SMTP_PORT"`
	SMTPUser      string `mapstructure:"SMTP_USER"`
	SMTPPass      string `mapstructure:"SMTP_PASS"`

	StripeSecretKey                   string `mapstructure:"STRIPE_SECRET_KEY"`
	StripePriceEssential              string `mapstructure:"STRIPE_PRICE_ESSENTIAL"`
	StripePriceProfessionalAI         string `mapstructure:"STRIPE_PRICE_PROFESSIONAL_AI"`
	StripePriceProfessionalTelehealth string `mapstructure:"STRIPE_PRICE_PROFESSIONAL_TELEHEALTH"`
	StripePriceComplete               string `mapstructure:"STRIPE_PRICE_COMPLETE"`
	TrialDays                         int64  `mapstructure:"TRIAL_DAYS"`

	AnthropicAPIKey  string        `mapstructure:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string        `mapstructure:"ANTHROPIC_BASE_URL"`
	LLMModel         string        `mapstructure:"LLM_MODEL"`
	LLMTimeout       time.Duration `mapstructure:"LLM_TIMEOUT"`

	PortalURL        string        `mapstructure:"PORTAL_URL"`
	TypingTTL        time.Duration `mapstructure:"TYPING_TTL"`
	ReminderSchedule string        `mapstructure:"REMINDER_SCHEDULE"`
	ReminderLead     time.Duration `mapstructure:"REMINDER_LEAD"`
}

var keys = []string{
	"PORT", "ENV", "APP_URL", "ALLOWED_ORIGINS",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_MAX_CONN_IDLE_TIME",
	"DB_CONNECT_TIMEOUT", "DB_REQUIRE_TLS", "REDIS_URL",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "JWT_SECRET",
	"AWS_REGION", "EMAIL_PROVIDER", "NOTIFICATION_FROM_EMAIL", "NOTIFICATION_FROM_NAME",
	"SMS_SENDER_ID", "SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS",
	"STRIPE_SECRET_KEY", "STRIPE_PRICE_ESSENTIAL", "STRIPE_PRICE_PROFESSIONAL_AI",
	"STRIPE_PRICE_PROFESSIONAL_TELEHEALTH", "STRIPE_PRICE_COMPLETE", "TRIAL_DAYS",
	"ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL", "LLM_MODEL", "LLM_TIMEOUT",
	"PORTAL_URL", "TYPING_TTL", "REMINDER_SCHEDULE", "REMINDER_LEAD",
}

func Load() (*Config, error) {
	// Populate the process environment from .env for code that reads
	// os.Getenv directly (the AWS SDK credential chain, ENV in main).
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("APP_URL", "http://localhost:3000")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("DB_MAX_CONN_IDLE_TIME", "20s")
	v.SetDefault("DB_CONNECT_TIMEOUT", "10s")
	v.SetDefault("DB_REQUIRE_TLS", true)
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("EMAIL_PROVIDER", "ses")
	v.SetDefault("NOTIFICATION_FROM_NAME", "Sessionably")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("TRIAL_DAYS", 7)
	v.SetDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com")
	v.SetDefault("LLM_MODEL", "claude-sonnet-4-20250514")
	v.SetDefault("LLM_TIMEOUT", "30s")
	v.SetDefault("TYPING_TTL", "5s")
	v.SetDefault("REMINDER_SCHEDULE", "*/15 * * * *")
	v.SetDefault("REMINDER_LEAD", "24h")

	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.AllowedOrigins = splitList(v.GetString("ALLOWED_ORIGINS"))
	if cfg.PortalURL == "" {
		cfg.PortalURL = strings.TrimRight(cfg.AppURL, "/") + "/client-portal"
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Unauthenticated requests are accepted as a development clinician.")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// CORSOrigins returns the browser origins allowed to call the API: APP_URL,
// ALLOWED_ORIGINS, and local dev servers outside production.
func (c *Config) CORSOrigins() []string {
	var origins []string
	if c.AppURL != "" {
		origins = append(origins, strings.TrimRight(c.AppURL, "/"))
	}
	origins = append(origins, c.AllowedOrigins...)
	if !c.IsProduction() {
		origins = append(origins, "http://localhost:3000", "http://localhost:8080")
	}
	return origins
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	switch c.EmailProvider {
	case "ses":
	case "smtp":
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when EMAIL_PROVIDER is \"smtp\"")
		}
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be \"ses\" or \"smtp\", got %q", c.EmailProvider)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
