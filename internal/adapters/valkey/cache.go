package valkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/partymap/partymap/internal/pkg/config"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

// Cache implements ports.CacheService on Valkey. Every key is namespaced
// with the configured prefix so several deployments can share one server.
//
// With a local TTL, reads use server-assisted client-side caching: the
// polygon generation key is read on every cached lookup and is then served
// from process memory until a write on any instance invalidates it.
type Cache struct {
	client   valkey.Client
	prefix   string
	localTTL time.Duration
}

// New connects to the server named in cfg.
func New(cfg config.ValkeyConfig) (*Cache, error) {
	opts := valkey.ClientOption{
		InitAddress:  []string{cfg.Addr},
		DisableCache: cfg.LocalCacheSeconds <= 0,
	}
	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("valkey connect %s: %w", cfg.Addr, err)
	}
	return &Cache{
		client:   client,
		prefix:   cfg.Prefix,
		localTTL: time.Duration(cfg.LocalCacheSeconds) * time.Second,
	}, nil
}

func (c *Cache) key(k string) string { return c.prefix + k }

// Get returns the value stored under key or ErrMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	var res valkey.ValkeyResult
	if c.localTTL > 0 {
		res = c.client.DoCache(ctx, c.client.B().Get().Key(c.key(key)).Cache(), c.localTTL)
	} else {
		res = c.client.Do(ctx, c.client.B().Get().Key(c.key(key)).Build())
	}

	b, err := res.AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("valkey get %s: %w", key, err)
	}
	return b, nil
}

// Set stores value under key for ttlSeconds; zero or less keeps it until
// evicted.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	set := c.client.B().Set().Key(c.key(key)).Value(valkey.BinaryString(value))
	var err error
	if ttlSeconds > 0 {
		err = c.client.Do(ctx, set.Ex(time.Duration(ttlSeconds)*time.Second).Build()).Error()
	} else {
		err = c.client.Do(ctx, set.Build()).Error()
	}
	if err != nil {
		return fmt.Errorf("valkey set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Freeing the value happens off the server's main thread.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Do(ctx, c.client.B().Unlink().Key(c.key(key)).Build()).Error()
}

// Ping checks connectivity; used by readiness probes.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (c *Cache) Close() {
	c.client.Close()
}
