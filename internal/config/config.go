package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Port                             string `mapstructure:"PORT" validate:"required"`
	GinMode                          string `mapstructure:"GIN_MODE" validate:"oneof=debug release test"`
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID" validate:"required"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	StripeSecretKey                  string `mapstructure:"STRIPE_SECRET_KEY" validate:"required"`
	StripeWebhookSecret              string `mapstructure:"STRIPE_WEBHOOK_SECRET" validate:"required"`
	ClientURL                        string `mapstructure:"CLIENT_URL" validate:"required,url"`
	BaseURL                          string `mapstructure:"BASE_URL" validate:"required,url"`

	GeminiAPIKey     string `mapstructure:"GEMINI_API_KEY" validate:"required_unless=GeminiDryRun true"`
	GeminiModel      string `mapstructure:"GEMINI_MODEL" validate:"required"`
	GeminiBaseURL    string `mapstructure:"GEMINI_BASE_URL" validate:"required,url"`
	GeminiDryRun     bool   `mapstructure:"GEMINI_DRY_RUN"`
	GeminiRPS        int    `mapstructure:"GEMINI_RPS" validate:"gte=1"`
	GeminiBurst      int    `mapstructure:"GEMINI_BURST" validate:"gte=1"`
	GeminiMaxRetries int    `mapstructure:"GEMINI_MAX_RETRIES" validate:"gte=0"`

	CreditsPackAmount     int    `mapstructure:"CREDITS_PACK_AMOUNT" validate:"gte=1"`
	CreditsPackPriceCents int64  `mapstructure:"CREDITS_PACK_PRICE_CENTS" validate:"gte=50"`
	CreditsPackCurrency   string `mapstructure:"CREDITS_PACK_CURRENCY" validate:"len=3"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	AMQPURL   string `mapstructure:"AMQP_URL"`
	AMQPQueue string `mapstructure:"AMQP_QUEUE" validate:"required_with=AMQPURL"`

	UploadMaxMB   int `mapstructure:"UPLOAD_MAX_MB" validate:"gte=1,lte=20"`
	ImageMaxWidth int `mapstructure:"IMAGE_MAX_WIDTH" validate:"gte=128"`

	EnableDebugEndpoints bool `mapstructure:"ENABLE_DEBUG_ENDPOINTS"`

	LogLevel      string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFile       string `mapstructure:"LOG_FILE"`
	LogMaxSizeMB  int    `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `mapstructure:"LOG_MAX_AGE_DAYS"`

	ResendAPIKey string `mapstructure:"RESEND_API_KEY"`
	MailFrom     string `mapstructure:"MAIL_FROM"`
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     string `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPass     string `mapstructure:"SMTP_PASS"`
}

var envKeys = []string{
	"PORT", "GIN_MODE", "FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS",
	"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64", "STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET",
	"CLIENT_URL", "BASE_URL",
	"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL", "GEMINI_DRY_RUN", "GEMINI_RPS",
	"GEMINI_BURST", "GEMINI_MAX_RETRIES",
	"CREDITS_PACK_AMOUNT", "CREDITS_PACK_PRICE_CENTS", "CREDITS_PACK_CURRENCY",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "AMQP_URL", "AMQP_QUEUE",
	"UPLOAD_MAX_MB", "IMAGE_MAX_WIDTH", "ENABLE_DEBUG_ENDPOINTS",
	"LOG_LEVEL", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS",
	"RESEND_API_KEY", "MAIL_FROM", "SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS",
}

// LoadConfig loads configuration from environment variables using Viper.
func LoadConfig() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}
	cfg.CreditsPackCurrency = strings.ToLower(cfg.CreditsPackCurrency)
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("BASE_URL", "http://localhost:3000")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")
	v.SetDefault("GEMINI_RPS", 2)
	v.SetDefault("GEMINI_BURST", 2)
	v.SetDefault("GEMINI_MAX_RETRIES", 2)
	v.SetDefault("CREDITS_PACK_AMOUNT", 25)
	v.SetDefault("CREDITS_PACK_PRICE_CENTS", 1500)
	v.SetDefault("CREDITS_PACK_CURRENCY", "usd")
	v.SetDefault("AMQP_QUEUE", "handrating.events")
	v.SetDefault("UPLOAD_MAX_MB", 5)
	v.SetDefault("IMAGE_MAX_WIDTH", 1024)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_MAX_SIZE_MB", 10)
	v.SetDefault("LOG_MAX_BACKUPS", 3)
	v.SetDefault("LOG_MAX_AGE_DAYS", 28)
	v.SetDefault("SMTP_PORT", "587")
}

// Validate checks required fields and value ranges.
// Missing fields are reported by their environment variable name.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", envName(fe.StructField()), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// LoadDotEnv reads a .env file into the process environment unless GIN_MODE
// is release. A missing file is not an error and variables that are already
// set are never overwritten.
func LoadDotEnv(paths ...string) error {
	if strings.EqualFold(os.Getenv("GIN_MODE"), "release") {
		return nil
	}
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// IsRelease reports whether gin runs in release mode.
func (c *Config) IsRelease() bool {
	return strings.EqualFold(c.GinMode, "release")
}

// DebugEndpointsEnabled reports whether the /debug routes should be mounted.
func (c *Config) DebugEndpointsEnabled() bool {
	return c.EnableDebugEndpoints && !c.IsRelease()
}

// UploadMaxBytes is the largest accepted critique upload.
func (c *Config) UploadMaxBytes() int64 {
	return int64(c.UploadMaxMB) * 1024 * 1024
}

func envName(field string) string {
	t, ok := fieldEnv[field]
	if !ok {
		return field
	}
	return t
}

var fieldEnv = map[string]string{
	"Port": "PORT", "GinMode": "GIN_MODE", "FirebaseProjectID": "FIREBASE_PROJECT_ID",
	"StripeSecretKey": "STRIPE_SECRET_KEY", "StripeWebhookSecret": "STRIPE_WEBHOOK_SECRET",
	"ClientURL": "CLIENT_URL", "BaseURL": "BASE_URL", "GeminiAPIKey": "GEMINI_API_KEY",
	"GeminiModel": "GEMINI_MODEL", "GeminiBaseURL": "GEMINI_BASE_URL", "GeminiRPS": "GEMINI_RPS",
	"GeminiBurst": "GEMINI_BURST", "GeminiMaxRetries": "GEMINI_MAX_RETRIES",
	"CreditsPackAmount": "CREDITS_PACK_AMOUNT", "CreditsPackPriceCents": "CREDITS_PACK_PRICE_CENTS",
	"CreditsPackCurrency": "CREDITS_PACK_CURRENCY", "UploadMaxMB": "UPLOAD_MAX_MB",
	"ImageMaxWidth": "IMAGE_MAX_WIDTH", "LogLevel": "LOG_LEVEL", "AMQPQueue": "AMQP_QUEUE",
}
