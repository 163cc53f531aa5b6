package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "8081")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("ADMIN_EMAILS", "Root@Example.com, ops@example.com")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, []string{"root@example.com", "ops@example.com"}, cfg.Auth.AdminEmails)
	assert.Equal(t, DriverMongo, cfg.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Orders.CancelWindow)
	assert.Equal(t, 5, cfg.Orders.LowStockThreshold)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9000
storage:
  driver: memory
auth:
  jwt_secret: from-file
  admin_emails: ["admin@souk.dz"]
orders:
  low_stock_threshold: 3
  cancel_window: 12h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, []string{"admin@souk.dz"}, cfg.Auth.AdminEmails)
	assert.Equal(t, 3, cfg.Orders.LowStockThreshold)
	assert.Equal(t, 12*time.Hour, cfg.Orders.CancelWindow)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:  ServerConfig{Port: 5000},
			MongoDB: MongoDBConfig{URI: "mongodb://localhost", Database: "souk"},
			Storage: StorageConfig{Driver: DriverMongo},
			Auth:    AuthConfig{JWTSecret: "x"},
			Orders:  OrdersConfig{CancelWindow: time.Hour},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "jwt_secret"},
		{name: "missing mongo uri", mutate: func(c *Config) { c.MongoDB.URI = "" }, wantErr: "mongodb.uri"},
		{name: "memory ignores mongo", mutate: func(c *Config) { c.Storage.Driver = DriverMemory; c.MongoDB.URI = "" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "postgres" }, wantErr: "unknown storage driver"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
