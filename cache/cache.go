// Package cache is the Redis side of the parser: the last known active set
// of each entity class, the per-flight telemetry hashes other services read,
// METAR strings, and the pub/sub channel subscribers listen on.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dhawton/log4g"
	"github.com/redis/go-redis/v9"
)

const separator = "|"

var log = log4g.Category("cache")

type Class string

const (
	Pilots      Class = "pilots"
	Controllers Class = "controllers"
	Atis        Class = "atis"
	Neighbors   Class = "neighbors"
)

// Key addresses one active set. An empty Scope keeps the bare class name,
// which is what existing consumers read.
type Key struct {
	Class Class
	Scope string
}

func (k Key) String() string {
	if k.Scope == "" {
		return string(k.Class)
	}
	return k.Scope + ":" + string(k.Class)
}

type Cache struct {
	rdb *redis.Client
}

// Connect parses a redis:// URI and verifies the server answers.
func Connect(ctx context.Context, uri string) (*Cache, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info("Successfully connected to Redis at " + opts.Addr)
	return &Cache{rdb: rdb}, nil
}

func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}

// ActiveSet returns the stored ids for key. A missing or expired key is an
// empty set, not an error.
func (c *Cache) ActiveSet(ctx context.Context, key Key) ([]string, error) {
	val, err := c.rdb.Get(ctx, key.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if val == "" {
		return nil, nil
	}
	return strings.Split(val, separator), nil
}

// ReplaceActiveSet overwrites the set and its TTL with a single SET, so a
// reader sees either the old set or the new one.
func (c *Cache) ReplaceActiveSet(ctx context.Context, key Key, ids []string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key.String(), strings.Join(ids, separator), ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Publish sends payload on topic. Nobody listening is fine.
func (c *Cache) Publish(ctx context.Context, topic, payload string) error {
	if err := c.rdb.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// PutHash writes fields into the hash at key and sets its expiry in one
// transaction.
func (c *Cache) PutHash(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, values)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Put stores a plain string. A zero ttl keeps it until overwritten.
func (c *Cache) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Touch refreshes the expiry of a key written by someone else.
func (c *Cache) Touch(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}
