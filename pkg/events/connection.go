// Package events republishes committed ItemEvents onto a message
// broker after a successful Save/SaveBatch, grounded on
// common/mrabbitmq's connection wrapper and components/audit's
// consumer. The audit event's durability guarantee (spec §3: "every
// mutation recorded as an immutable event, saved atomically with the
// item") is already satisfied by the adapter before this package ever
// runs; Publisher is a best-effort fan-out for downstream consumers
// (e.g. a separate audit-trail service), not part of the atomicity
// contract itself.
package events

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/LerianStudio/itemcore/pkg/mlog"
)

// Connection is a hub for one rabbitmq channel, mirroring
// common/mrabbitmq.RabbitMQConnection's lazy-connect-on-first-use shape.
type Connection struct {
	ConnectionString string
	ExchangeName     string
	Logger           mlog.Logger

	conn    *amqp.Connection
	channel *amqp.Channel
}

// Connect dials the broker, opens a channel, and declares ExchangeName
// as a durable topic exchange.
func (c *Connection) Connect() error {
	if c.Logger == nil {
		c.Logger = &mlog.NoneLogger{}
	}

	c.Logger.Info("itemcore/events: connecting to rabbitmq")

	conn, err := amqp.Dial(c.ConnectionString)
	if err != nil {
		return fmt.Errorf("itemcore/events: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("itemcore/events: open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(c.ExchangeName, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()

		return fmt.Errorf("itemcore/events: declare exchange: %w", err)
	}

	c.conn = conn
	c.channel = ch

	c.Logger.Info("itemcore/events: connected")

	return nil
}

// GetChannel returns the channel, connecting it first if this is the
// first call.
func (c *Connection) GetChannel(ctx context.Context) (*amqp.Channel, error) {
	if c.channel == nil {
		if err := c.Connect(); err != nil {
			return nil, err
		}
	}

	return c.channel, nil
}

// Close tears down the channel and connection.
func (c *Connection) Close() {
	if c.channel != nil {
		c.channel.Close()
	}

	if c.conn != nil {
		c.conn.Close()
	}
}
