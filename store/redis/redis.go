/*
Package redis provides a Redis-backed generic.Cache.

PURPOSE:
  Breakdowns are pure functions of their inputs. When several API replicas
  serve the same dashboards, a shared cache lets one replica reuse what
  another computed. Keys come from generic.CacheKey, so entries never need
  invalidation; the TTL only bounds memory.

USAGE:
  cache, err := redis.New(ctx, redis.Options{Addr: "localhost:6379"})
  if err != nil {
      log.Printf("[Cache] redis unavailable, using memory: %v", err)
  }

SEE ALSO:
  - generic/store.go: Cache interface and key derivation
  - generic/store/memory.go: In-process fallback
*/
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/warp/commission-engine/generic"
)

// keyPrefix namespaces every key this service writes.
const keyPrefix = "commission:"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Cache implements generic.Cache on a Redis client.
type Cache struct {
	client *goredis.Client
}

var _ generic.Cache = (*Cache)(nil)

// New connects to Redis and pings it. A failed ping closes the client and
// returns the error.
func New(ctx context.Context, opts Options) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return &Cache{client: client}, nil
}

// Get returns generic.ErrCacheMiss when the key is absent or expired.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	return v, mapError(err)
}

// Set stores value under key. A zero ttl keeps the key until evicted.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, keyPrefix+key, value, ttl).Err()
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

func mapError(err error) error {
	if errors.Is(err, goredis.Nil) {
		return generic.ErrCacheMiss
	}
	return err
}
