package events

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/mmodel"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// Publisher republishes an ItemEvent onto a topic exchange, routed by
// "<typeName>.<saveAction>" (e.g. "account.UPDATED").
type Publisher struct {
	conn     *Connection
	exchange string
}

// NewPublisher builds a Publisher over conn.
func NewPublisher(conn *Connection) *Publisher {
	return &Publisher{conn: conn, exchange: conn.ExchangeName}
}

// Publish marshals event and sends it to the exchange.
func (p *Publisher) Publish(ctx context.Context, event *mmodel.ItemEvent) error {
	ch, err := p.conn.GetChannel(ctx)
	if err != nil {
		return itemerrors.ServiceUnavailable(err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return itemerrors.Internal(err)
	}

	routingKey := event.RelatedTypeName + "." + string(event.SaveAction)

	return ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Store decorates a store.Adapter[T], publishing every committed event
// after SaveItem/SaveBatch succeed. A publish failure is discarded: it is
// neither returned nor logged, and it does not undo the already-committed
// mutation - the item and its event are durable regardless of whether
// this fan-out succeeds.
type Store[T any] struct {
	inner     store.Adapter[T]
	publisher *Publisher
}

// NewStore wraps inner so every successful write also publishes its event.
func NewStore[T any](inner store.Adapter[T], publisher *Publisher) *Store[T] {
	return &Store[T]{inner: inner, publisher: publisher}
}

var _ store.Adapter[struct{}] = (*Store[struct{}])(nil)

func (s *Store[T]) ReadItem(ctx context.Context, id, partitionKey string) (*T, error) {
	return s.inner.ReadItem(ctx, id, partitionKey)
}

func (s *Store[T]) SaveItem(ctx context.Context, req store.SaveRequest[T]) (*T, error) {
	stored, err := s.inner.SaveItem(ctx, req)
	if err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, req.Event)

	return stored, nil
}

func (s *Store[T]) SaveBatch(ctx context.Context, partitionKey string, reqs []store.SaveRequest[T]) ([]store.BatchRowResult[T], error) {
	results, err := s.inner.SaveBatch(ctx, partitionKey, reqs)
	if err != nil {
		return nil, err
	}

	for i, r := range results {
		if r.Status == store.StatusOK {
			_ = s.publisher.Publish(ctx, reqs[i].Event)
		}
	}

	return results, nil
}

func (s *Store[T]) Query(ctx context.Context, spec store.QuerySpec) (store.Cursor[T], error) {
	return s.inner.Query(ctx, spec)
}
