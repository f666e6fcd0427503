package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"local"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Cache     CacheConfig
	Storage   StorageConfig
	Email     EmailConfig
	WhatsApp  WhatsAppConfig
	LLM       LLMConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port            int           `env:"PORT" envDefault:"8080"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// DatabaseConfig selects between postgres and the embedded sqlite driver
type DatabaseConfig struct {
	Driver     string `env:"DB_DRIVER" envDefault:"postgres"`
	Host       string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port       int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User       string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password   string `env:"POSTGRES_PASSWORD" envDefault:"password"`
	Name       string `env:"POSTGRES_DB" envDefault:"karirconnect"`
	SSLMode    string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"karirconnect.db"`
	QueryDebug bool   `env:"DB_QUERY_DEBUG" envDefault:"false"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	SlowQuery       time.Duration `env:"DB_SLOW_QUERY_THRESHOLD" envDefault:"200ms"`
}

// DSN returns the PostgreSQL connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET"`
	Issuer    string `env:"JWT_ISSUER"`
}

// CacheConfig falls back to an in-process cache when no Redis address is set
type CacheConfig struct {
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	ThreadTTL     time.Duration `env:"THREAD_CACHE_TTL" envDefault:"10m"`
}

// StorageConfig falls back to local disk when no S3 endpoint is set
type StorageConfig struct {
	Endpoint      string `env:"STORAGE_ENDPOINT"`
	AccessKey     string `env:"STORAGE_ACCESS_KEY"`
	SecretKey     string `env:"STORAGE_SECRET_KEY"`
	Region        string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	Bucket        string `env:"STORAGE_BUCKET" envDefault:"karirconnect"`
	LocalDir      string `env:"STORAGE_LOCAL_DIR" envDefault:"uploads"`
	PublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL" envDefault:"http://localhost:8080/uploads"`
}

// S3Enabled reports whether S3 credentials were provided
func (s StorageConfig) S3Enabled() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != ""
}

type EmailConfig struct {
	// Driver is "mailgun", "gmail", "none" or "" (disabled)
	Driver          string `env:"EMAIL_DRIVER" envDefault:"mailgun"`
	MailgunDomain   string `env:"MAILGUN_DOMAIN"`
	MailgunAPIKey   string `env:"MAILGUN_API_KEY"`
	MailgunAPIBase  string `env:"MAILGUN_API_BASE"`
	FromEmail       string `env:"EMAIL_FROM_ADDRESS" envDefault:"noreply@karirconnect.id"`
	FromName        string `env:"EMAIL_FROM_NAME" envDefault:"KarirConnect"`
	GmailCredential string `env:"GMAIL_CREDENTIAL_FILE" envDefault:"credential.json"`
	GmailToken      string `env:"GMAIL_TOKEN_FILE" envDefault:"token.json"`
}

type WhatsAppConfig struct {
	BaseURL     string        `env:"WHATSAPP_BASE_URL" envDefault:"https://api.fonnte.com"`
	Token       string        `env:"WHATSAPP_TOKEN"`
	CountryCode string        `env:"WHATSAPP_COUNTRY_CODE" envDefault:"62"`
	Timeout     time.Duration `env:"WHATSAPP_TIMEOUT" envDefault:"10s"`
	RetryCount  int           `env:"WHATSAPP_RETRY_COUNT" envDefault:"2"`
}

// Enabled reports whether the WhatsApp gateway is configured
func (w WhatsAppConfig) Enabled() bool {
	return w.Token != ""
}

type LLMConfig struct {
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	Model        string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
}

type SchedulerConfig struct {
	Enabled             bool   `env:"SCHEDULER_ENABLED" envDefault:"true"`
	ExpireSchedule      string `env:"EXPIRE_LISTINGS_SCHEDULE" envDefault:"@every 1h"`
	PruneSchedule       string `env:"PRUNE_NOTIFICATIONS_SCHEDULE" envDefault:"@daily"`
	NotificationRetainD int    `env:"NOTIFICATION_RETENTION_DAYS" envDefault:"90"`
}

// Load reads .env (if present) and parses the environment
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}
	switch c.Email.Driver {
	case "", "none", "mailgun", "gmail":
	default:
		return fmt.Errorf("EMAIL_DRIVER must be mailgun, gmail or none, got %q", c.Email.Driver)
	}
	return nil
}
