package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron"
	"github.com/spf13/viper"
)

const (
	defaultJWTSecret = "default_super_secret_key"
	// published in earlier .env.example files, never accepted as a real secret
	publicSandboxSecret = "sandbox_webhook_secret"
)

// Config is the full runtime configuration of the API and dispatcher processes
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Outbox   OutboxConfig   `mapstructure:"outbox"`
}

type AppConfig struct {
	Name        string   `mapstructure:"name"`
	Env         string   `mapstructure:"env"`
	Port        string   `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN builds the postgres connection URL
func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.Name + "?sslmode=" + d.SSLMode
}

type JWTConfig struct {
	Secret    string        `mapstructure:"secret"`
	ExpiresIn time.Duration `mapstructure:"expires_in"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type PaymentConfig struct {
	Provider        string            `mapstructure:"provider"`
	Currency        string            `mapstructure:"currency"`
	SuccessURL      string            `mapstructure:"success_url"`
	CancelURL       string            `mapstructure:"cancel_url"`
	NotificationURL string            `mapstructure:"notification_url"`
	Sandbox         SandboxConfig     `mapstructure:"sandbox"`
	MercadoPago     MercadoPagoConfig `mapstructure:"mercadopago"`
	Stripe          StripeConfig      `mapstructure:"stripe"`
	Timeout         time.Duration     `mapstructure:"timeout"`
}

type SandboxConfig struct {
	WebhookSecret string `mapstructure:"webhook_secret"`
	CheckoutURL   string `mapstructure:"checkout_url"`
}

type MercadoPagoConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	AccessToken   string `mapstructure:"access_token"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type StripeConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type OutboxConfig struct {
	Schedule      string `mapstructure:"schedule"`
	BatchSize     int    `mapstructure:"batch_size"`
	MaxAttempts   int    `mapstructure:"max_attempts"`
	EmbeddedRelay bool   `mapstructure:"embedded_relay"`
}

// IsProduction reports whether the app runs with production safeguards
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// Load reads configs/.env, an optional configs/config.yaml and the environment.
// Nested keys map to env vars with dots replaced by underscores (DATABASE_HOST).
func Load() (*Config, error) {
	// .env is optional; real environment variables always win
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "LifeBee API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.cors_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "lifebee")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("jwt.secret", defaultJWTSecret)
	v.SetDefault("jwt.expires_in", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("payment.provider", "sandbox")
	v.SetDefault("payment.currency", "BRL")
	v.SetDefault("payment.success_url", "http://localhost:5173/payments/success")
	v.SetDefault("payment.cancel_url", "http://localhost:5173/payments/cancel")
	v.SetDefault("payment.notification_url", "http://localhost:8080/api/payments/webhook")
	v.SetDefault("payment.timeout", 15*time.Second)
	v.SetDefault("payment.sandbox.webhook_secret", "")
	v.SetDefault("payment.sandbox.checkout_url", "http://localhost:5173/checkout")
	v.SetDefault("payment.mercadopago.base_url", "https://api.mercadopago.com")
	v.SetDefault("payment.mercadopago.access_token", "")
	v.SetDefault("payment.mercadopago.webhook_secret", "")
	v.SetDefault("payment.stripe.base_url", "https://api.stripe.com")
	v.SetDefault("payment.stripe.secret_key", "")
	v.SetDefault("payment.stripe.webhook_secret", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "lifebee:notifications")

	v.SetDefault("outbox.schedule", "@every 5s")
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.max_attempts", 5)
	v.SetDefault("outbox.embedded_relay", true)
}

func validate(c *Config) error {
	if c.IsProduction() && (c.JWT.Secret == "" || c.JWT.Secret == defaultJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set in production environment")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret must not be empty")
	}

	switch c.Payment.Provider {
	case "sandbox":
		if c.IsProduction() {
			return fmt.Errorf("sandbox payment provider is not allowed in production")
		}
		if secret := c.Payment.Sandbox.WebhookSecret; secret == "" || secret == publicSandboxSecret {
			return fmt.Errorf("payment.sandbox.webhook_secret must be set to a private value")
		}
	case "mercadopago":
		if c.Payment.MercadoPago.AccessToken == "" {
			return fmt.Errorf("payment.mercadopago.access_token is required")
		}
	case "stripe":
		if c.Payment.Stripe.SecretKey == "" || c.Payment.Stripe.WebhookSecret == "" {
			return fmt.Errorf("payment.stripe.secret_key and webhook_secret are required")
		}
	default:
		return fmt.Errorf("unknown payment provider %q", c.Payment.Provider)
	}

	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("outbox.batch_size must be positive")
	}
	if c.Outbox.MaxAttempts <= 0 {
		return fmt.Errorf("outbox.max_attempts must be positive")
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.DowOptional | cron.Descriptor)
	if _, err := parser.Parse(c.Outbox.Schedule); err != nil {
		return fmt.Errorf("invalid outbox schedule %q: %w", c.Outbox.Schedule, err)
	}

	return nil
}
