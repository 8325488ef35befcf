// Package cache wraps a store.Adapter with a redis-backed read-through
// cache, grounded on common/mredis's connection wrapper. Reads check
// redis before falling through to the wrapped adapter; every write
// invalidates the affected keys rather than updating them in place, so
// a cache outage degrades to "every read hits the backend" rather than
// risking a stale hit.
package cache

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/LerianStudio/itemcore/pkg/mlog"
)

// Connection is a hub for one redis client, mirroring
// common/mredis.RedisConnection's lazy-connect-on-first-use shape.
type Connection struct {
	ConnectionString string
	Logger           mlog.Logger

	client *redis.Client
}

// Connect parses ConnectionString and pings the resulting client.
func (c *Connection) Connect(ctx context.Context) error {
	if c.Logger == nil {
		c.Logger = &mlog.NoneLogger{}
	}

	c.Logger.Info("itemcore/cache: connecting to redis")

	opts, err := redis.ParseURL(c.ConnectionString)
	if err != nil {
		return err
	}

	client := redis.NewClient(opts)

	if _, err := client.Ping(ctx).Result(); err != nil {
		c.Logger.Warnf("itemcore/cache: ping failed: %v", err)
		return err
	}

	c.client = client

	return nil
}

// GetClient returns the client, connecting it first if this is the
// first call.
func (c *Connection) GetClient(ctx context.Context) (*redis.Client, error) {
	if c.client == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.client, nil
}
