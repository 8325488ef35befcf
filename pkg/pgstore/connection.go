// Package pgstore is a relational store.Adapter[T] backed by pgx and
// squirrel, grounded on common/mpostgres's connection wrapper and
// organization.postgresql.go's repository style (query building with
// sqrl, pgx error translation on write). Schema migrations and the
// primary/replica resolver the teacher's connection wrapper layers on
// top are out of scope (spec's migrations non-goal; this package
// expects an already-provisioned database and a single write endpoint).
package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LerianStudio/itemcore/pkg/mlog"
)

// Connection is a hub for one pgx connection pool, mirroring
// common/mpostgres.PostgresConnection's lazy-connect-on-first-use shape.
type Connection struct {
	ConnectionString string
	Logger           mlog.Logger

	pool *pgxpool.Pool
}

// Connect opens the pool eagerly and pings it. Callers that would rather
// connect lazily can skip this and just call GetPool.
func (c *Connection) Connect(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, c.ConnectionString)
	if err != nil {
		return fmt.Errorf("itemcore/pgstore: open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("itemcore/pgstore: ping: %w", err)
	}

	c.pool = pool

	if c.Logger != nil {
		c.Logger.Info("itemcore/pgstore: connected")
	}

	return nil
}

// GetPool returns the pool, connecting it first if this is the first call.
func (c *Connection) GetPool(ctx context.Context) (*pgxpool.Pool, error) {
	if c.pool == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.pool, nil
}

// Close releases the pool's connections.
func (c *Connection) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}
