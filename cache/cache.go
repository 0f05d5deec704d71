// Package cache provides the read-through cache in front of the
// recommendation query service.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Client defines the cache interface.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Close() error
}

// Config selects and configures a cache backend.
type Config struct {
	Driver   string // none, memory or redis
	Addr     string
	Password string
	DB       int
	Prefix   string
	MaxSize  int
}

// New returns the backend named by cfg.Driver.
func New(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "", "none":
		return NopClient{}, nil
	case "memory":
		return NewMemoryClient(cfg.MaxSize), nil
	case "redis":
		return NewRedisClient(RedisConfig{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			Prefix:   cfg.Prefix,
		})
	default:
		return nil, fmt.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}

// Key joins key components with ':'.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// NopClient never stores anything; every Get misses.
type NopClient struct{}

func (NopClient) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }
func (NopClient) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NopClient) Delete(context.Context, string) error { return nil }
func (NopClient) DeleteByPrefix(context.Context, string) error { return nil }
func (NopClient) Close() error { return nil }
