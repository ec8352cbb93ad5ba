package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"comanda/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("COMANDA_JWT_SECRET", "test-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "strict", cfg.Orders.Policy)
	assert.Len(t, cfg.Menu.Windows, 3)
	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 64, cfg.Realtime.Buffer)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  shutdown_timeout: 5s
database:
  driver: postgres
  dsn: postgres://comanda@localhost/comanda?sslmode=disable
  conn_max_lifetime: 30m
log:
  level: debug
  format: json
menu:
  timezone: UTC
  windows:
    - {category: MORNING, start: 7, end: 11}
    - {category: MIDDAY, start: 11, end: 19}
    - {category: EVENING, start: 19, end: 7}
orders:
  policy: permissive
  trust_client_total: true
  rate_limit:
    rps: 2.5
    burst: 10
auth:
  jwt_secret: from-file
  token_ttl: 1h
realtime:
  buffer: 16
redis:
  addr: localhost:6379
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "json", cfg.Log.Format)
	require.Len(t, cfg.Menu.Windows, 3)
	assert.Equal(t, models.MenuMidday, cfg.Menu.Windows[1].Category)
	assert.Equal(t, 19, cfg.Menu.Windows[1].End)
	assert.Equal(t, "permissive", cfg.Orders.Policy)
	assert.True(t, cfg.Orders.TrustClientTotal)
	assert.Equal(t, 2.5, cfg.Orders.RateLimit.RPS)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 16, cfg.Realtime.Buffer)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "comanda:events", cfg.Redis.Channel)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: from-file\nserver:\n  port: 9000\n")
	t.Setenv("COMANDA_PORT", "7070")
	t.Setenv("COMANDA_JWT_SECRET", "from-env")
	t.Setenv("COMANDA_TRUST_CLIENT_TOTAL", "true")
	t.Setenv("DATABASE_URL", "file:other.db")
	t.Setenv("COMANDA_REALTIME_BUFFER", "8")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Orders.TrustClientTotal)
	assert.Equal(t, "file:other.db", cfg.Database.DSN)
	assert.Equal(t, 8, cfg.Realtime.Buffer)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("COMANDA_JWT_SECRET", "s")
	t.Setenv("COMANDA_PORT", "eighty")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(c *Config){
		"port":      func(c *Config) { c.Server.Port = 0 },
		"driver":    func(c *Config) { c.Database.Driver = "mysql" },
		"dsn":       func(c *Config) { c.Database.DSN = "" },
		"log level": func(c *Config) { c.Log.Level = "loud" },
		"format":    func(c *Config) { c.Log.Format = "xml" },
		"timezone":  func(c *Config) { c.Menu.Timezone = "Mars/Olympus" },
		"windows":   func(c *Config) { c.Menu.Windows = c.Menu.Windows[:2] },
		"policy":    func(c *Config) { c.Orders.Policy = "yolo" },
		"buffer":    func(c *Config) { c.Realtime.Buffer = 0 },
		"secret":    func(c *Config) { c.Auth.JWTSecret = "" },
		"ttl":       func(c *Config) { c.Auth.TokenTTL = 0 },
	}
	for name, mutate := range tests {
		cfg := Default()
		cfg.Auth.JWTSecret = "s"
		require.NoError(t, cfg.Validate(), name)

		mutate(cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"
	assert.Equal(t, "warning", cfg.Logger().GetLevel().String())
}
