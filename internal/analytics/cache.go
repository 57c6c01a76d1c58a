package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "analytics:version"
	bumpChannel     = "records.bump"
	snapshotTTL     = 30 * 24 * time.Hour
)

// Cache wraps Redis based caching with versioning controls. Alongside the
// short-lived versioned entries it keeps a long-lived snapshot per scope,
// which serves as the stale fallback payload when the database is
// unreachable.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	if c == nil || c.client == nil {
		return strings.Join(parts, ":"), nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	joined := strings.Join(parts, ":")
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader. On a
// loader failure it falls back to the unversioned snapshot when one exists;
// the bool result reports whether stale snapshot data was served.
func (c *Cache) FetchJSON(ctx context.Context, key, snapshotKey string, dest interface{}, loader func(context.Context) (interface{}, error)) (bool, error) {
	if loader == nil {
		return false, errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return false, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return false, err
		}
		return false, json.Unmarshal(raw, dest)
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return false, json.Unmarshal(payload, dest)
	}
	if err != redis.Nil {
		return false, err
	}

	value, loadErr := loader(ctx)
	if loadErr != nil {
		if snapshotKey == "" {
			return false, loadErr
		}
		snap, snapErr := c.client.Get(ctx, c.snapshotKey(snapshotKey)).Bytes()
		if snapErr != nil {
			return false, loadErr
		}
		if err := json.Unmarshal(snap, dest); err != nil {
			return false, loadErr
		}
		return true, nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return false, err
	}
	if snapshotKey != "" {
		_ = c.client.Set(ctx, c.snapshotKey(snapshotKey), raw, snapshotTTL).Err()
	}
	return false, json.Unmarshal(raw, dest)
}

// Bump invalidates the cache by incrementing the global version and
// publishing an event for other processes.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation subscribes to version bump notifications.
func (c *Cache) ListenForInvalidation(ctx context.Context, channel string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if channel == "" {
		channel = bumpChannel
	}
	pubsub := c.client.Subscribe(ctx, channel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg.Payload != "" {
					if ver, err := strconv.ParseInt(msg.Payload, 10, 64); err == nil {
						_ = c.client.Set(ctx, cacheVersionKey, ver, 0).Err()
						continue
					}
				}
				_ = c.client.Incr(ctx, cacheVersionKey).Err()
			}
		}
	}()
	return nil
}

func (c *Cache) snapshotKey(base string) string {
	return "analytics:snapshot:" + base
}

func keyVehicle(vehicleID int64, from, to string) string {
	return strings.Join([]string{"analytics", "vehicle", formatInt(vehicleID), from, to}, ":")
}

func keyGarage(garageID int64, from, to string) string {
	return strings.Join([]string{"analytics", "garage", formatInt(garageID), from, to}, ":")
}

func keyFleet(userID int64, from, to string) string {
	return strings.Join([]string{"analytics", "fleet", formatInt(userID), from, to}, ":")
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
