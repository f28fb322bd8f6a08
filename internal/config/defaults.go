package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultWriteTimeout       = 5 * time.Second
	DefaultDialTimeout        = 10 * time.Second
	DefaultReconnectBaseDelay = 2 * time.Second
	DefaultReconnectMaxDelay  = 30 * time.Second
	DefaultMaxAttempts        = 10
	DefaultTokenSource        = "static"
	DefaultRedisAddr          = "localhost:6379"
	DefaultRedisKey           = "marketplace:session:token"
	DefaultLogLevel           = "info"
)

func (c *Config) applyDefaults() {
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.DialTimeout == 0 {
		c.Server.DialTimeout = DefaultDialTimeout
	}

	if c.Reconnect.BaseDelay == 0 {
		c.Reconnect.BaseDelay = DefaultReconnectBaseDelay
	}
	if c.Reconnect.MaxDelay == 0 {
		c.Reconnect.MaxDelay = DefaultReconnectMaxDelay
	}
	if c.Reconnect.MaxAttempts == 0 {
		c.Reconnect.MaxAttempts = DefaultMaxAttempts
	}

	if c.Token.Source == "" {
		c.Token.Source = DefaultTokenSource
	}
	if c.Token.Redis.Addr == "" {
		c.Token.Redis.Addr = DefaultRedisAddr
	}
	if c.Token.Redis.Key == "" {
		c.Token.Redis.Key = DefaultRedisKey
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}
