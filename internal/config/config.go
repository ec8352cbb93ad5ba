// Package config loads service settings from a YAML file, a .env file and
// COMANDA_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"comanda/internal/menu"
	"comanda/internal/orders"
	"comanda/internal/realtime"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no -config flag is given.
const DefaultPath = "configs/config.yaml"

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Menu     MenuConfig     `yaml:"menu"`
	Orders   OrdersConfig   `yaml:"orders"`
	Auth     AuthConfig     `yaml:"auth"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Redis    RedisConfig    `yaml:"redis"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	MetricsPort     int           `yaml:"metrics_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	Debug           bool          `yaml:"debug"`
	Seed            bool          `yaml:"seed"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MenuConfig controls when each menu is served.
type MenuConfig struct {
	Timezone string        `yaml:"timezone"`
	Windows  []menu.Window `yaml:"windows"`
}

// OrdersConfig controls order intake and the status workflow.
type OrdersConfig struct {
	Policy           string          `yaml:"policy"`
	TrustClientTotal bool            `yaml:"trust_client_total"`
	RateLimit        RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a per client IP token bucket. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	AdminEmail    string        `yaml:"admin_email"`
	AdminPassword string        `yaml:"admin_password"`
}

// RealtimeConfig sizes the event stream. Buffer is the number of events
// queued per websocket client before it is dropped as too slow.
type RealtimeConfig struct {
	Buffer int `yaml:"buffer"`
}

// RedisConfig enables cross-replica event fan-out when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			MetricsPort:     9090,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite3",
			DSN:             "comanda.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Menu: MenuConfig{
			Timezone: "Local",
			Windows:  append([]menu.Window(nil), menu.DefaultWindows...),
		},
		Orders: OrdersConfig{
			Policy: string(orders.PolicyStrict),
			RateLimit: RateLimitConfig{
				RPS:   1,
				Burst: 5,
			},
		},
		Auth: AuthConfig{
			TokenTTL: 12 * time.Hour,
		},
		Realtime: RealtimeConfig{
			Buffer: realtime.DefaultBuffer,
		},
		Redis: RedisConfig{
			Channel: "comanda:events",
		},
	}
}

// Load builds the configuration. A missing file at path is not an error;
// the defaults and environment still apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" && err == nil {
			n, convErr := strconv.Atoi(v)
			if convErr != nil {
				err = fmt.Errorf("%s: %w", key, convErr)
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" && err == nil {
			b, convErr := strconv.ParseBool(v)
			if convErr != nil {
				err = fmt.Errorf("%s: %w", key, convErr)
				return
			}
			*dst = b
		}
	}

	setInt("COMANDA_PORT", &c.Server.Port)
	setInt("COMANDA_METRICS_PORT", &c.Server.MetricsPort)
	setString("COMANDA_DB_DRIVER", &c.Database.Driver)
	setString("DATABASE_URL", &c.Database.DSN)
	setString("COMANDA_DB_DSN", &c.Database.DSN)
	setBool("COMANDA_DB_DEBUG", &c.Database.Debug)
	setBool("COMANDA_DB_SEED", &c.Database.Seed)
	setString("COMANDA_LOG_LEVEL", &c.Log.Level)
	setString("COMANDA_LOG_FORMAT", &c.Log.Format)
	setString("COMANDA_TIMEZONE", &c.Menu.Timezone)
	setString("COMANDA_ORDER_POLICY", &c.Orders.Policy)
	setBool("COMANDA_TRUST_CLIENT_TOTAL", &c.Orders.TrustClientTotal)
	setString("COMANDA_JWT_SECRET", &c.Auth.JWTSecret)
	setString("COMANDA_ADMIN_EMAIL", &c.Auth.AdminEmail)
	setString("COMANDA_ADMIN_PASSWORD", &c.Auth.AdminPassword)
	setInt("COMANDA_REALTIME_BUFFER", &c.Realtime.Buffer)
	setString("COMANDA_REDIS_ADDR", &c.Redis.Addr)
	setString("COMANDA_REDIS_PASSWORD", &c.Redis.Password)
	setInt("COMANDA_REDIS_DB", &c.Redis.DB)
	return err
}

// Validate checks the settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("server.metrics_port %d is out of range", c.Server.MetricsPort)
	}

	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite3 or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := menu.NewSchedule(c.Menu.Windows, time.UTC); err != nil {
		return fmt.Errorf("menu.windows: %w", err)
	}

	if _, err := orders.ParsePolicy(c.Orders.Policy); err != nil {
		return fmt.Errorf("orders.policy: %w", err)
	}

	if c.Realtime.Buffer < 1 {
		return fmt.Errorf("realtime.buffer must be at least 1, got %d", c.Realtime.Buffer)
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	return nil
}

// Location resolves menu.timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Menu.Timezone)
	if err != nil {
		return nil, fmt.Errorf("menu.timezone: %w", err)
	}
	return loc, nil
}

// Logger builds the process logger described by the log section.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(c.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	if strings.ToLower(c.Log.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
