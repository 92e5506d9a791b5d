package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	ServerPort      string        `yaml:"port"`
	Environment     string        `yaml:"env"`
	LogLevel        string        `yaml:"log_level"`
	DatabaseType    string        `yaml:"database_type"`
	DatabasePath    string        `yaml:"db_path"`
	DatabaseURL     string        `yaml:"database_url"`
	StaticFilesPath string        `yaml:"static_path"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`

	Session  SessionConfig  `yaml:"session"`
	Demo     DemoConfig     `yaml:"demo"`
	Recovery RecoveryConfig `yaml:"recovery"`
	Redis    RedisConfig    `yaml:"redis"`
	SES      SESConfig      `yaml:"ses"`
	SMTP     SMTPConfig     `yaml:"smtp"`
}

// SessionConfig controls session issuance and storage
type SessionConfig struct {
	Secret           string        `yaml:"secret"`
	Store            string        `yaml:"store"` // database | redis
	Duration         time.Duration `yaml:"duration"`
	RememberDuration time.Duration `yaml:"remember_duration"`
}

// DemoConfig controls the demo sandbox
type DemoConfig struct {
	Emails        []string      `yaml:"emails"`
	MaxAge        time.Duration `yaml:"max_age"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// RecoveryConfig controls password recovery codes
type RecoveryConfig struct {
	Store    string        `yaml:"store"`    // memory | redis
	Delivery string        `yaml:"delivery"` // log | ses | smtp
	CodeTTL  time.Duration `yaml:"code_ttl"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type SESConfig struct {
	Region    string `yaml:"region"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// DefaultDemoEmails are the identities that always run against the sandbox.
var DefaultDemoEmails = []string{
	"demo@historias.com",
	"admin@historias.com",
	"test@historias.com",
	"prueba@historias.com",
}

// Load reads configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ServerPort:      "3000",
		Environment:     "development",
		LogLevel:        "info",
		DatabaseType:    "sqlite",
		DatabasePath:    "./clinic.db",
		StaticFilesPath: "./frontend",
		RequestTimeout:  30 * time.Second,
		AllowedOrigins:  []string{"http://localhost:3000"},
		Session: SessionConfig{
			Store:            "database",
			Duration:         24 * time.Hour,
			RememberDuration: 30 * 24 * time.Hour,
		},
		Demo: DemoConfig{
			Emails:        append([]string(nil), DefaultDemoEmails...),
			MaxAge:        2 * time.Hour,
			SweepInterval: 30 * time.Minute,
		},
		Recovery: RecoveryConfig{
			Store:    "memory",
			Delivery: "log",
			CodeTTL:  15 * time.Minute,
		},
		SES: SESConfig{
			Region:   "us-east-1",
			FromName: "Historias Clinicas",
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerPort = getEnv("PORT", c.ServerPort)
	c.Environment = getEnv("APP_ENV", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.DatabaseType = getEnv("DATABASE_TYPE", c.DatabaseType)
	c.DatabasePath = getEnv("DB_PATH", c.DatabasePath)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.StaticFilesPath = getEnv("STATIC_PATH", c.StaticFilesPath)
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout)
	c.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", c.AllowedOrigins)

	c.Session.Secret = getEnv("SESSION_SECRET", c.Session.Secret)
	c.Session.Store = getEnv("SESSION_STORE", c.Session.Store)

	c.Demo.Emails = getEnvList("DEMO_EMAILS", c.Demo.Emails)

	c.Recovery.Store = getEnv("RECOVERY_STORE", c.Recovery.Store)
	c.Recovery.Delivery = getEnv("CODE_DELIVERY", c.Recovery.Delivery)

	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)

	c.SES.Region = getEnv("AWS_REGION", c.SES.Region)
	c.SES.FromEmail = getEnv("SES_FROM_EMAIL", c.SES.FromEmail)
	c.SES.FromName = getEnv("SES_FROM_NAME", c.SES.FromName)

	c.SMTP.Host = getEnv("SMTP_HOST", c.SMTP.Host)
	c.SMTP.Port = getEnvInt("SMTP_PORT", c.SMTP.Port)
	c.SMTP.Username = getEnv("SMTP_USER", c.SMTP.Username)
	c.SMTP.Password = getEnv("SMTP_PASSWORD", c.SMTP.Password)
	c.SMTP.From = getEnv("SMTP_FROM", c.SMTP.From)
}

// Validate checks that the selected backends have what they need
func (c *Config) Validate() error {
	if c.Session.Secret == "" {
		if c.IsProduction() {
			return fmt.Errorf("SESSION_SECRET is required in production")
		}
		c.Session.Secret = "dev-session-secret"
	}

	switch c.Session.Store {
	case "database", "redis":
	default:
		return fmt.Errorf("unsupported session store: %s", c.Session.Store)
	}
	switch c.Recovery.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported recovery store: %s", c.Recovery.Store)
	}
	switch c.Recovery.Delivery {
	case "log", "ses", "smtp":
	default:
		return fmt.Errorf("unsupported code delivery: %s", c.Recovery.Delivery)
	}

	if (c.Session.Store == "redis" || c.Recovery.Store == "redis") && c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required when a redis store is selected")
	}
	if c.Recovery.Delivery == "smtp" && c.SMTP.Host == "" {
		return fmt.Errorf("SMTP_HOST is required for smtp delivery")
	}
	return nil
}

// IsProduction reports whether the app runs with production cookie settings
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList reads a comma separated list
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
