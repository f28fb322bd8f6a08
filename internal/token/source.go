package token

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ErrNoToken means the source had no usable token.
var ErrNoToken = errors.New("no token available")

// Source yields the current bearer token. Implementations must return the
// freshest value on every call; the caller never caches across attempts.
type Source interface {
	Token(ctx context.Context) (string, error)
}

// Static is a fixed token, useful for tests and one-off CLI sessions.
type Static string

// Token returns the static value.
func (s Static) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// FileSource reads the token from a file on each call. The marketplace app
// writes the refreshed session token to this file.
type FileSource struct {
	Path string
}

// Token reads and trims the file contents.
func (f FileSource) Token(ctx context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

// RedisSource reads the token from the marketplace session store.
type RedisSource struct {
	client *redis.Client
	key    string
}

// NewRedisSource creates a source backed by the given redis client and key.
func NewRedisSource(client *redis.Client, key string) *RedisSource {
	return &RedisSource{client: client, key: key}
}

// Token fetches the current session token.
func (r *RedisSource) Token(ctx context.Context) (string, error) {
	val, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("get session token: %w", err)
	}
	if val == "" {
		return "", ErrNoToken
	}
	return val, nil
}
