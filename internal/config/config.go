package config

import "time"

// Config is the root configuration for a chat client instance.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Token     TokenConfig     `yaml:"token"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig locates the marketplace backend.
type ServerConfig struct {
	// BaseURL is the HTTP(S) base address of the marketplace API. The chat
	// channel address is derived from it (http -> ws, https -> wss) plus the
	// conversation path segment.
	BaseURL string `yaml:"base_url"`

	// WriteTimeout is the deadline applied to each outbound frame.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// DialTimeout bounds the WebSocket opening handshake.
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// ReconnectConfig tunes the backoff schedule.
type ReconnectConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// TokenConfig selects where the bearer token comes from.
type TokenConfig struct {
	// Source is one of "static", "file", "redis".
	Source string `yaml:"source"`

	// Value is the token itself (source = static).
	Value string `yaml:"value"`

	// Path is the token file written by the session layer (source = file).
	Path string `yaml:"path"`

	// Redis locates the marketplace session store (source = redis).
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig holds the session store connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`
}
