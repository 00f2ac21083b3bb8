package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingCredential is returned by Validate when a required secret is absent.
var ErrMissingCredential = errors.New("missing credential")

// Config is the root configuration for modebot. It is built once at startup
// and handed to the components that need it.
type Config struct {
	Telegram   TelegramConfig   `json:"telegram" koanf:"telegram"`
	Completion CompletionConfig `json:"completion" koanf:"completion"`
	Sessions   SessionsConfig   `json:"sessions" koanf:"sessions"`
	Telemetry  TelemetryConfig  `json:"telemetry,omitempty" koanf:"telemetry"`
	Log        LogConfig        `json:"log" koanf:"log"`
}

// CompletionConfig configures the hosted completion API.
type CompletionConfig struct {
	APIKey        string  `json:"api_key" koanf:"api_key"`
	APIBase       string  `json:"api_base,omitempty" koanf:"api_base"` // empty = OpenAI default
	API           string  `json:"api" koanf:"api"`                     // "completions" (default) or "chat"
	Model         string  `json:"model" koanf:"model"`
	MaxTokens     int     `json:"max_tokens" koanf:"max_tokens"`
	Temperature   float64 `json:"temperature" koanf:"temperature"`
	Timeout       string  `json:"timeout" koanf:"timeout"` // Go duration, e.g. "30s"
	FallbackReply string  `json:"fallback_reply,omitempty" koanf:"fallback_reply"`
}

// RequestTimeout parses Timeout, falling back to 30s.
func (c CompletionConfig) RequestTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Timeout); err == nil && d > 0 {
		return d
	}
	return defaultCompletionTimeout
}

// SessionsConfig selects where per-session mode selections live.
type SessionsConfig struct {
	Backend  string         `json:"backend" koanf:"backend"` // "memory" (default), "redis", "sqlite", "postgres"
	Redis    RedisConfig    `json:"redis,omitempty" koanf:"redis"`
	SQLite   SQLiteConfig   `json:"sqlite,omitempty" koanf:"sqlite"`
	Postgres PostgresConfig `json:"postgres,omitempty" koanf:"postgres"`
}

type RedisConfig struct {
	Addr      string `json:"addr" koanf:"addr"`
	Password  string `json:"password,omitempty" koanf:"password"`
	DB        int    `json:"db,omitempty" koanf:"db"`
	KeyPrefix string `json:"key_prefix,omitempty" koanf:"key_prefix"`
	TTL       string `json:"ttl,omitempty" koanf:"ttl"` // sliding expiry, "" or "0" = never
}

// TTLDuration parses TTL. Invalid or empty values mean no expiry.
func (c RedisConfig) TTLDuration() time.Duration {
	if d, err := time.ParseDuration(c.TTL); err == nil && d > 0 {
		return d
	}
	return 0
}

type SQLiteConfig struct {
	Path string `json:"path" koanf:"path"`
}

type PostgresConfig struct {
	DSN string `json:"dsn" koanf:"dsn"`
}

// TelemetryConfig configures OpenTelemetry trace export.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty" koanf:"enabled"`
	Endpoint    string            `json:"endpoint,omitempty" koanf:"endpoint"` // e.g. "localhost:4317"
	Protocol    string            `json:"protocol,omitempty" koanf:"protocol"` // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty" koanf:"insecure"`
	ServiceName string            `json:"service_name,omitempty" koanf:"service_name"` // default "modebot"
	Headers     map[string]string `json:"headers,omitempty" koanf:"headers"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `json:"level" koanf:"level"`   // "debug", "info" (default), "warn", "error"
	Format string `json:"format" koanf:"format"` // "text" (default) or "json"
}

const (
	APICompletions = "completions"
	APIChat        = "chat"

	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	defaultCompletionTimeout = 30 * time.Second
)

// Validate checks everything except the Telegram token, which only the
// bot runner needs (see ValidateTelegram).
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.BotName) == "" {
		return fmt.Errorf("telegram.bot_name: %w", ErrMissingCredential)
	}
	switch c.Telegram.SessionScope {
	case "", ScopeUser, ScopeChat:
	default:
		return fmt.Errorf("telegram.session_scope %q: must be %q or %q", c.Telegram.SessionScope, ScopeUser, ScopeChat)
	}
	if strings.TrimSpace(c.Completion.APIKey) == "" {
		return fmt.Errorf("completion.api_key: %w", ErrMissingCredential)
	}
	switch c.Completion.API {
	case APICompletions, APIChat:
	default:
		return fmt.Errorf("completion.api %q: must be %q or %q", c.Completion.API, APICompletions, APIChat)
	}
	if c.Completion.Model == "" {
		return fmt.Errorf("completion.model is required")
	}
	if c.Completion.MaxTokens <= 0 {
		return fmt.Errorf("completion.max_tokens must be positive")
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		return fmt.Errorf("completion.temperature %v out of range [0, 2]", c.Completion.Temperature)
	}
	if c.Completion.Timeout != "" {
		if d, err := time.ParseDuration(c.Completion.Timeout); err != nil || d <= 0 {
			return fmt.Errorf("completion.timeout %q: invalid duration", c.Completion.Timeout)
		}
	}

	switch c.Sessions.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Sessions.Redis.Addr == "" {
			return fmt.Errorf("sessions.redis.addr is required for the redis backend")
		}
		if c.Sessions.Redis.TTL != "" {
			if _, err := time.ParseDuration(c.Sessions.Redis.TTL); err != nil {
				return fmt.Errorf("sessions.redis.ttl %q: invalid duration", c.Sessions.Redis.TTL)
			}
		}
	case BackendSQLite:
		if c.Sessions.SQLite.Path == "" {
			return fmt.Errorf("sessions.sqlite.path is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Sessions.Postgres.DSN == "" {
			return fmt.Errorf("sessions.postgres.dsn: %w", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("sessions.backend %q: must be one of memory, redis, sqlite, postgres", c.Sessions.Backend)
	}

	if c.Telemetry.Enabled {
		switch c.Telemetry.Protocol {
		case "", "grpc", "http":
		default:
			return fmt.Errorf("telemetry.protocol %q: must be grpc or http", c.Telemetry.Protocol)
		}
	}
	return nil
}

// ValidateTelegram checks the Telegram credentials.
func (c *Config) ValidateTelegram() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token: %w", ErrMissingCredential)
	}
	return nil
}

const secretMask = "***"

// MaskedCopy returns a deep copy with all secret fields masked.
// Used by doctor so secrets never reach the terminal.
func (c *Config) MaskedCopy() *Config {
	data, err := json.Marshal(c)
	if err != nil {
		return &Config{}
	}
	cp := &Config{}
	if err := json.Unmarshal(data, cp); err != nil {
		return &Config{}
	}

	maskNonEmpty(&cp.Telegram.Token)
	maskNonEmpty(&cp.Completion.APIKey)
	maskNonEmpty(&cp.Sessions.Redis.Password)
	maskNonEmpty(&cp.Sessions.Postgres.DSN)
	for k, v := range cp.Telemetry.Headers {
		if v != "" {
			cp.Telemetry.Headers[k] = secretMask
		}
	}
	return cp
}

func maskNonEmpty(s *string) {
	if *s != "" {
		*s = secretMask
	}
}
