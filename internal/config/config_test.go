package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("APP_ENV", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.Equal(t, "database", cfg.Session.Store)
	assert.Equal(t, 24*time.Hour, cfg.Session.Duration)
	assert.Equal(t, 30*24*time.Hour, cfg.Session.RememberDuration)
	assert.Equal(t, 2*time.Hour, cfg.Demo.MaxAge)
	assert.Equal(t, 30*time.Minute, cfg.Demo.SweepInterval)
	assert.Equal(t, 15*time.Minute, cfg.Recovery.CodeTTL)
	assert.ElementsMatch(t, DefaultDemoEmails, cfg.Demo.Emails)
	assert.NotEmpty(t, cfg.Session.Secret)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: "9000"
database_type: postgres
database_url: postgres://file
session:
  secret: from-file
demo:
  emails: [one@example.com]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("DEMO_EMAILS", "a@example.com, b@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.DatabaseType)
	assert.Equal(t, "postgres://env", cfg.DatabaseURL)
	assert.Equal(t, "from-file", cfg.Session.Secret)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Demo.Emails)
	// untouched nested defaults survive the overlay
	assert.Equal(t, 24*time.Hour, cfg.Session.Duration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "defaults",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "production without secret",
			mutate: func(c *Config) {
				c.Environment = "production"
			},
			wantErr: true,
		},
		{
			name: "redis store without url",
			mutate: func(c *Config) {
				c.Session.Store = "redis"
			},
			wantErr: true,
		},
		{
			name: "unknown delivery",
			mutate: func(c *Config) {
				c.Recovery.Delivery = "pigeon"
			},
			wantErr: true,
		},
		{
			name: "smtp without host",
			mutate: func(c *Config) {
				c.Recovery.Delivery = "smtp"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
