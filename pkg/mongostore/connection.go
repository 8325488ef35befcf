// Package mongostore is a document-store store.Adapter[T] backed by the
// official mongo-driver, grounded on common/mmongo's connection wrapper
// and components/audit's mongodb repository (composite "_id" keyed on
// (id, partition_key), mirroring audit.mongodb.go's
// "_id.organization_id"/"_id.ledger_id" filter shape).
package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/LerianStudio/itemcore/pkg/mlog"
)

// Connection is a hub for one mongo client, mirroring
// common/mmongo.MongoConnection's lazy-connect-on-first-use shape.
type Connection struct {
	ConnectionString string
	Database         string
	Logger           mlog.Logger

	client *mongo.Client
}

// Connect dials the server and pings it.
func (c *Connection) Connect(ctx context.Context) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.ConnectionString))
	if err != nil {
		return fmt.Errorf("itemcore/mongostore: connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("itemcore/mongostore: ping: %w", err)
	}

	c.client = client

	if c.Logger != nil {
		c.Logger.Info("itemcore/mongostore: connected")
	}

	return nil
}

// GetClient returns the client, connecting it first if this is the
// first call.
func (c *Connection) GetClient(ctx context.Context) (*mongo.Client, error) {
	if c.client == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.client, nil
}

// Close disconnects the client.
func (c *Connection) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}

	return c.client.Disconnect(ctx)
}
