package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return errors.New("server.base_url is required")
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("server.base_url is not a valid URL: %v", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("server.base_url scheme must be http(s) or ws(s), got %q", u.Scheme)
	}

	if c.Reconnect.BaseDelay <= 0 {
		return errors.New("reconnect.base_delay must be > 0")
	}
	if c.Reconnect.MaxDelay < c.Reconnect.BaseDelay {
		return errors.New("reconnect.max_delay must be >= reconnect.base_delay")
	}
	if c.Reconnect.MaxAttempts < 1 {
		return errors.New("reconnect.max_attempts must be >= 1")
	}

	switch c.Token.Source {
	case "static":
		if c.Token.Value == "" {
			return errors.New("token.value is required when token.source is static")
		}
	case "file":
		if c.Token.Path == "" {
			return errors.New("token.path is required when token.source is file")
		}
	case "redis":
		if c.Token.Redis.Addr == "" {
			return errors.New("token.redis.addr is required when token.source is redis")
		}
		if c.Token.Redis.Key == "" {
			return errors.New("token.redis.key is required when token.source is redis")
		}
	default:
		return fmt.Errorf("token.source must be static, file or redis, got %q", c.Token.Source)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}

	return nil
}
