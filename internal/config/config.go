// Package config loads the server configuration from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zeyuan/appeal-service/internal/util"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no path is given on the command line.
const DefaultConfigPath = "config.yaml"

// AppConfig holds command-line level options.
type AppConfig struct {
	ConfigPath string // Path to the YAML config file.
}

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Storage  StorageConfig  `yaml:"storage"`
	LLM      LLMConfig      `yaml:"llm"`
	Mail     MailConfig     `yaml:"mail"`
	Logging  LoggingConfig  `yaml:"logging"`
	Jobs     JobsConfig     `yaml:"jobs"`
	TimeZone string         `yaml:"time_zone"` // IANA zone for follow-up dates and DB sessions.

	path string
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	PublicBaseURL string `yaml:"public_base_url"` // Prefix of public blob URLs.
	GinMode       string `yaml:"gin_mode"`
}

// DatabaseConfig configures the gorm connection.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// RedisConfig configures the change broker, token revocation and the mail queue.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig configures session tokens.
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	Expiry     time.Duration `yaml:"expiry"`
	TOTPIssuer string        `yaml:"totp_issuer"`
}

// StorageConfig configures the local blob store.
type StorageConfig struct {
	Root string `yaml:"root"`
}

// LLMConfig configures the Gemini client.
type LLMConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// MailConfig configures SendGrid delivery.
type MailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	APIHost        string `yaml:"api_host"` // Defaults to https://api.sendgrid.com.
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
}

// LoggingConfig configures logrus and file rotation.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "text" or "json".
	File       string `yaml:"file"`   // Empty logs to stdout only.
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// JobsConfig holds cron specs for background jobs. Empty specs take the defaults.
type JobsConfig struct {
	ConfigRefresh string `yaml:"config_refresh"`
	BacklogReport string `yaml:"backlog_report"`
}

var errMissingJWTSecret = errors.New("config: jwt.secret is required")

// ResolveConfigPath returns path, or DefaultConfigPath under WRITABLE_PATH when empty.
func ResolveConfigPath(path string) string {
	path = strings.TrimSpace(path)
	if path != "" {
		return path
	}
	if base := util.WritablePath(); base != "" {
		return filepath.Join(base, DefaultConfigPath)
	}
	return DefaultConfigPath
}

// ConfigExists reports whether a config file is present at path.
func ConfigExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads path, applies environment overrides and validates the result.
// A missing file is allowed when the environment supplies the required values.
func Load(path string) (*Config, error) {
	cfg := &Config{path: path}
	data, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	cfg.overrideWithEnv()
	if errValidate := cfg.Validate(); errValidate != nil {
		return nil, errValidate
	}
	return cfg, nil
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string { return c.path }

// overrideWithEnv applies APPEAL_* and provider-specific environment variables.
func (c *Config) overrideWithEnv() {
	setString := func(dst *string, keys ...string) {
		for _, key := range keys {
			if val, ok := os.LookupEnv(key); ok && strings.TrimSpace(val) != "" {
				*dst = strings.TrimSpace(val)
				return
			}
		}
	}
	setString(&c.Server.Addr, "APPEAL_ADDR")
	setString(&c.Server.PublicBaseURL, "APPEAL_PUBLIC_BASE_URL")
	setString(&c.Server.GinMode, "GIN_MODE")
	setString(&c.Database.DSN, "APPEAL_DATABASE_DSN", "DATABASE_URL")
	setString(&c.Redis.Addr, "APPEAL_REDIS_ADDR", "REDIS_URL")
	setString(&c.Redis.Password, "APPEAL_REDIS_PASSWORD")
	setString(&c.JWT.Secret, "APPEAL_JWT_SECRET", "JWT_SECRET")
	setString(&c.Storage.Root, "APPEAL_STORAGE_ROOT")
	setString(&c.LLM.APIKey, "GEMINI_API_KEY", "API_KEY")
	setString(&c.LLM.Model, "APPEAL_LLM_MODEL")
	setString(&c.Mail.SendGridAPIKey, "SENDGRID_API_KEY")
	setString(&c.Mail.FromEmail, "APPEAL_MAIL_FROM")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	setString(&c.Logging.File, "APPEAL_LOG_FILE")
	setString(&c.TimeZone, "APPEAL_TIME_ZONE")

	if val := os.Getenv("APPEAL_REDIS_ENABLED"); val != "" {
		if enabled, errParse := strconv.ParseBool(val); errParse == nil {
			c.Redis.Enabled = enabled
		}
	}
}

// Validate fills defaults and rejects unusable configurations.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.PublicBaseURL == "" {
		c.Server.PublicBaseURL = "http://localhost" + c.Server.Addr
	}
	c.Server.PublicBaseURL = strings.TrimRight(c.Server.PublicBaseURL, "/")
	if c.Database.DSN == "" {
		c.Database.DSN = writableJoin("data/appeals.db")
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errMissingJWTSecret
	}
	if c.JWT.Expiry <= 0 {
		c.JWT.Expiry = 7 * 24 * time.Hour
	}
	if c.JWT.TOTPIssuer == "" {
		c.JWT.TOTPIssuer = "appeal-service"
	}
	if c.Storage.Root == "" {
		c.Storage.Root = "data/blobs"
	}
	c.Storage.Root = writableJoin(c.Storage.Root)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gemini-2.0-flash"
	}
	if c.LLM.Temperature <= 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 90 * time.Second
	}
	if c.Mail.APIHost == "" {
		c.Mail.APIHost = "https://api.sendgrid.com"
	}
	if c.Mail.FromName == "" {
		c.Mail.FromName = "申诉服务中心"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.File != "" {
		c.Logging.File = writableJoin(c.Logging.File)
	}
	if c.Jobs.ConfigRefresh == "" {
		c.Jobs.ConfigRefresh = "@every 1m"
	}
	if c.Jobs.BacklogReport == "" {
		c.Jobs.BacklogReport = "@hourly"
	}
	if c.TimeZone != "" {
		if _, errLoad := time.LoadLocation(c.TimeZone); errLoad != nil {
			return fmt.Errorf("config: time_zone %q: %w", c.TimeZone, errLoad)
		}
	}
	return nil
}

// Location returns the configured time zone, or time.Local.
func (c *Config) Location() *time.Location {
	if c.TimeZone == "" {
		return time.Local
	}
	loc, errLoad := time.LoadLocation(c.TimeZone)
	if errLoad != nil {
		return time.Local
	}
	return loc
}

// writableJoin anchors a relative path under WRITABLE_PATH when it is set.
func writableJoin(path string) string {
	base := util.WritablePath()
	if base == "" || filepath.IsAbs(path) || strings.Contains(path, "://") || strings.Contains(path, "=") || strings.HasPrefix(path, "file:") || strings.HasPrefix(path, ":memory:") {
		return path
	}
	return filepath.Join(base, path)
}
