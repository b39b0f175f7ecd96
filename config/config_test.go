package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "tefi.db", cfg.Database.Path)
	assert.Equal(t, 5, cfg.Database.CodeMaxAttempts)
	assert.Equal(t, "static", cfg.Storage.StaticDir)
	assert.Equal(t, "uploads", cfg.Storage.UploadsDir)
	assert.False(t, cfg.Geocoding.Enabled)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.no,https://b.no")
	t.Setenv("DB_PATH", "/tmp/other.db")
	t.Setenv("GEOCODING_ENABLED", "true")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"https://a.no", "https://b.no"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	assert.True(t, cfg.Geocoding.Enabled)
	assert.True(t, cfg.TelegramEnabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		expectError bool
	}{
		{name: "Defaults", modify: func(c *Config) {}},
		{name: "Unknown driver", modify: func(c *Config) { c.Database.Driver = "mysql" }, expectError: true},
		{name: "Postgres without DSN", modify: func(c *Config) { c.Database.Driver = DriverPostgres }, expectError: true},
		{
			name: "Postgres with DSN",
			modify: func(c *Config) {
				c.Database.Driver = DriverPostgres
				c.Database.DSN = "host=localhost dbname=tefi"
			},
		},
		{name: "Zero code attempts", modify: func(c *Config) { c.Database.CodeMaxAttempts = 0 }, expectError: true},
		{name: "Zero queue size", modify: func(c *Config) { c.Queue.Size = 0 }, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig()
			require.NoError(t, err)

			tt.modify(cfg)
			if tt.expectError {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}
