package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration (file + env overrides)
type Config struct {
	Server struct {
		Addr      string `mapstructure:"addr"`
		LogLevel  string `mapstructure:"log_level"`
		LogFormat string `mapstructure:"log_format"`
	} `mapstructure:"server"`

	Postgres struct {
		Host         string `mapstructure:"host"`
		Port         int    `mapstructure:"port"`
		User         string `mapstructure:"user"`
		Password     string `mapstructure:"password"`
		DBName       string `mapstructure:"db_name"`
		SSLMode      string `mapstructure:"ssl_mode"`
		MaxOpenConns int    `mapstructure:"max_open_conns"`
		MaxIdleConns int    `mapstructure:"max_idle_conns"`
	} `mapstructure:"postgres"`

	Listener struct {
		Channel          string `mapstructure:"channel"`
		ReconnectSeconds int    `mapstructure:"reconnect_seconds"`
	} `mapstructure:"listener"`

	Upstream struct {
		BaseURL        string `mapstructure:"base_url"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"upstream"`

	Auth struct {
		JWTSecret  string `mapstructure:"jwt_secret"`
		PolicyFile string `mapstructure:"policy_file"`
		Secure     bool   `mapstructure:"secure_cookies"`
	} `mapstructure:"auth"`

	Wizard struct {
		DraftKey           string `mapstructure:"draft_key"`
		RestrictNavigation bool   `mapstructure:"restrict_navigation"`
	} `mapstructure:"wizard"`

	Session struct {
		IdleTimeoutMinutes int `mapstructure:"idle_timeout_minutes"`
		PollSeconds        int `mapstructure:"poll_seconds"`
	} `mapstructure:"session"`
}

// keys are registered so AutomaticEnv can see them without a config file.
var keys = []string{
	"server.addr", "server.log_level", "server.log_format",
	"postgres.host", "postgres.port", "postgres.user", "postgres.password", "postgres.db_name",
	"postgres.ssl_mode", "postgres.max_open_conns", "postgres.max_idle_conns",
	"listener.channel", "listener.reconnect_seconds",
	"upstream.base_url", "upstream.timeout_seconds",
	"auth.jwt_secret", "auth.policy_file", "auth.secure_cookies",
	"wizard.draft_key", "wizard.restrict_navigation",
	"session.idle_timeout_minutes", "session.poll_seconds",
}

// LoadFrom reads application.yaml from dir (optional) and APP_* env vars.
func LoadFrom(v *viper.Viper, dir string) (Config, error) {
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	_ = v.ReadInConfig() // optional; env can fully configure

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	validate(&cfg)
	return cfg, nil
}

func validate(c *Config) {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}
	if c.Postgres.MaxOpenConns == 0 {
		c.Postgres.MaxOpenConns = 10
	}
	if c.Postgres.MaxIdleConns == 0 {
		c.Postgres.MaxIdleConns = 10
	}
	if c.Listener.ReconnectSeconds <= 0 {
		c.Listener.ReconnectSeconds = 5
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = "http://localhost:3000"
	}
	if c.Upstream.TimeoutSeconds <= 0 {
		c.Upstream.TimeoutSeconds = 10
	}
	if c.Wizard.DraftKey == "" {
		c.Wizard.DraftKey = "promoDraft"
	}
	if c.Session.IdleTimeoutMinutes <= 0 {
		c.Session.IdleTimeoutMinutes = 30
	}
	if c.Session.PollSeconds <= 0 {
		c.Session.PollSeconds = 15
	}
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.DBName,
		c.Postgres.SSLMode,
	)
}

// UsePostgres reports whether a database is configured; otherwise state is kept in memory.
func (c Config) UsePostgres() bool { return c.Postgres.Host != "" }

func (c Config) Backoff() time.Duration { return time.Duration(c.Listener.ReconnectSeconds) * time.Second }

func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.Session.IdleTimeoutMinutes) * time.Minute
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Session.PollSeconds) * time.Second
}
