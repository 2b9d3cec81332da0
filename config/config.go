package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/matchvault/backend/internal/apperr"
	"github.com/matchvault/backend/internal/platform"
)

// DefaultAccountKey names the account built from the PLATFORM_CLIENT_ID family of variables.
const DefaultAccountKey = "default"

const accountPrefix = "PLATFORM_ACCOUNTS_"

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	AWS      AWSConfig
	Platform PlatformConfig
	Sync     SyncConfig
	Email    EmailConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT validation settings for admin callers.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the recordings bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	RecordingsBucket     string
	PresignExpireMinutes int
}

// PlatformConfig selects and describes external video platform accounts.
type PlatformConfig struct {
	Account  string // selected account key
	Accounts platform.Accounts
	BaseURL  string
	TokenURL string
	Scopes   []string
	Timeout  time.Duration
}

// SyncConfig tunes the recording sync pipeline.
type SyncConfig struct {
	APIKey       string
	PollMaxWait  time.Duration
	PollInterval time.Duration
	Schedule     string // cron spec for the worker tick
}

// EmailConfig for SMTP delivery of notifications.
type EmailConfig struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	LibraryURL  string // public base URL linked from emails
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// ClientConfig returns the endpoint settings for platform.NewClient.
func (c PlatformConfig) ClientConfig() platform.ClientConfig {
	return platform.ClientConfig{BaseURL: c.BaseURL, TokenURL: c.TokenURL, Scopes: c.Scopes, Timeout: c.Timeout}
}

// SelectedAccount resolves the configured account key.
func (c PlatformConfig) SelectedAccount() (platform.AccountConfig, error) {
	return c.Accounts.Resolve(strings.ToLower(c.Account))
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "matchvault"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", ""),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			RecordingsBucket:     getEnv("AWS_S3_RECORDINGS_BUCKET", ""),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 60),
		},
		Platform: PlatformConfig{
			Account:  getEnv("PLATFORM_ACCOUNT", DefaultAccountKey),
			Accounts: loadAccounts(os.Environ()),
			BaseURL:  getEnv("PLATFORM_BASE_URL", ""),
			TokenURL: getEnv("PLATFORM_TOKEN_URL", ""),
			Scopes:   splitTrim(getEnv("PLATFORM_SCOPES", ""), ","),
			Timeout:  time.Duration(getEnvInt("PLATFORM_TIMEOUT_SEC", 30)) * time.Second,
		},
		Sync: SyncConfig{
			APIKey:       getEnv("SYNC_API_KEY", ""),
			PollMaxWait:  time.Duration(getEnvInt("SYNC_POLL_MAX_WAIT_SEC", 600)) * time.Second,
			PollInterval: time.Duration(getEnvInt("SYNC_POLL_INTERVAL_SEC", 5)) * time.Second,
			Schedule:     getEnv("SYNC_SCHEDULE", "@every 15m"),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "MatchVault"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
			LibraryURL:  getEnv("APP_LIBRARY_URL", ""),
		},
	}
	return cfg, nil
}

// ValidateSync checks what every sync entry point needs: platform credentials and the bucket.
func (c *Config) ValidateSync() error {
	if c.Platform.BaseURL == "" || c.Platform.TokenURL == "" {
		return apperr.Config("validate config", "PLATFORM_BASE_URL and PLATFORM_TOKEN_URL are required")
	}
	if _, err := c.Platform.SelectedAccount(); err != nil {
		return err
	}
	if c.AWS.RecordingsBucket == "" {
		return apperr.Config("validate config", "AWS_S3_RECORDINGS_BUCKET is required")
	}
	return nil
}

// ValidateServer additionally requires a way to authenticate on-demand callers.
func (c *Config) ValidateServer() error {
	if err := c.ValidateSync(); err != nil {
		return err
	}
	if c.Sync.APIKey == "" && c.JWT.Secret == "" {
		return apperr.Config("validate config", "SYNC_API_KEY or JWT_SECRET is required")
	}
	return nil
}

// loadAccounts collects PLATFORM_ACCOUNTS_<KEY>_<FIELD> variables plus the default account shorthands.
func loadAccounts(environ []string) platform.Accounts {
	accounts := platform.Accounts{}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" || !strings.HasPrefix(name, accountPrefix) {
			continue
		}
		rest := strings.TrimPrefix(name, accountPrefix)
		for _, field := range []string{"CLIENT_ID", "CLIENT_SECRET", "USER_ID", "ACCOUNT_ID", "TYPE"} {
			suffix := "_" + field
			if !strings.HasSuffix(rest, suffix) {
				continue
			}
			key := strings.ToLower(strings.TrimSuffix(rest, suffix))
			if key == "" {
				break
			}
			acc := accounts[key]
			acc.Key = key
			setAccountField(&acc, field, value)
			accounts[key] = acc
			break
		}
	}

	if id := os.Getenv("PLATFORM_CLIENT_ID"); id != "" {
		acc := accounts[DefaultAccountKey]
		acc.Key = DefaultAccountKey
		acc.ClientID = id
		acc.ClientSecret = firstNonEmpty(acc.ClientSecret, os.Getenv("PLATFORM_CLIENT_SECRET"))
		acc.UserID = firstNonEmpty(acc.UserID, os.Getenv("PLATFORM_USER_ID"))
		acc.AccountID = firstNonEmpty(acc.AccountID, os.Getenv("PLATFORM_ACCOUNT_ID"))
		acc.Type = firstNonEmpty(acc.Type, os.Getenv("PLATFORM_ACCOUNT_TYPE"))
		accounts[DefaultAccountKey] = acc
	}
	return accounts
}

func setAccountField(acc *platform.AccountConfig, field, value string) {
	switch field {
	case "CLIENT_ID":
		acc.ClientID = value
	case "CLIENT_SECRET":
		acc.ClientSecret = value
	case "USER_ID":
		acc.UserID = value
	case "ACCOUNT_ID":
		acc.AccountID = value
	case "TYPE":
		acc.Type = value
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
