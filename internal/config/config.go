package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting the service reads from the
// environment. A .env file is honored when present so local runs match
// the containerized deployment.
type Config struct {
	Port            string        `env:"PORT" envDefault:"8000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	FrontendURL     string        `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// Database
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost:3306"`
	DBName     string `env:"DB_NAME" envDefault:"questlogger"`

	// Optional cache for public shared notes.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// JWT
	JWTSecret string        `env:"JWT_SECRET"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"192h"` // 8 days

	// Feature flags
	EnableLLMFeatures bool `env:"ENABLE_LLM_FEATURES" envDefault:"true"`
	EnableVoice       bool `env:"ENABLE_VOICE_FEATURES" envDefault:"true"`
	EnableTranslation bool `env:"ENABLE_TRANSLATION" envDefault:"true"`

	// Gamification XP bases
	BaseXPDailyQuest   int `env:"BASE_XP_DAILY_QUEST" envDefault:"5"`
	BaseXPRegularQuest int `env:"BASE_XP_REGULAR_QUEST" envDefault:"10"`
	BaseXPEpicQuest    int `env:"BASE_XP_EPIC_QUEST" envDefault:"25"`
	BaseXPBossQuest    int `env:"BASE_XP_BOSS_QUEST" envDefault:"50"`

	// Speech-to-text
	DefaultSTTProvider string        `env:"DEFAULT_STT_PROVIDER" envDefault:"deepgram"`
	DeepgramAPIKey     string        `env:"DEEPGRAM_API_KEY"`
	DeepgramModel      string        `env:"DEEPGRAM_MODEL" envDefault:"nova-2"`
	STTTimeout         time.Duration `env:"STT_TIMEOUT" envDefault:"120s"`

	// OpenRouter LLM
	OpenRouterAPIKey       string `env:"OPENROUTER_API_KEY"`
	OpenRouterAPIURL       string `env:"OPENROUTER_API_URL" envDefault:"https://openrouter.ai/api/v1"`
	OpenRouterDefaultModel string `env:"OPENROUTER_DEFAULT_MODEL" envDefault:"mistralai/mistral-7b-instruct"`

	// Stripe
	StripeSecretKey      string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret  string `env:"STRIPE_WEBHOOK_SECRET"`
	StripeMonthlyPriceID string `env:"STRIPE_MONTHLY_PRICE_ID"`
	StripeAnnualPriceID  string `env:"STRIPE_ANNUAL_PRICE_ID"`

	// Plan limits
	MonthlyMinutesLimit float64 `env:"MONTHLY_MINUTES_LIMIT" envDefault:"120"`
	TrialDays           int     `env:"TRIAL_DAYS" envDefault:"7"`
}

// Load reads .env when present, then parses the environment. Required
// values are checked by Validate, not here, so a bare environment still
// loads for tests.
func Load() (*Config, error) {
	// A missing .env just means the environment is already populated
	// (containers, CI).
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, nil
}

// DSN assembles the MySQL data source name from the DB_* variables.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", c.DBUser, c.DBPassword, c.DBHost, c.DBName)
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.DBUser == "" || c.DBName == "" {
		return fmt.Errorf("database configuration is incomplete")
	}
	return nil
}
