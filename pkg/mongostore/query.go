package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// Query composes and runs one Find, streaming documents through the
// driver's own cursor rather than materializing the result set
// (spec §4.2.4).
func (s *Store[T]) Query(ctx context.Context, spec store.QuerySpec) (store.Cursor[T], error) {
	pred, err := translatePredicate(spec.Predicate, s.fields)
	if err != nil {
		return nil, err
	}

	pred["data.typeName"] = spec.TypeName

	if spec.DeletionFilter == store.DeletionFilterLiveOnly {
		pred["data.isDeleted"] = bson.M{"$ne": true}
	}

	opts := options.Find()

	sort, err := translateOrder(spec.OrderBy, s.fields)
	if err != nil {
		return nil, err
	}

	if len(sort) > 0 {
		opts.SetSort(sort)
	}

	if spec.Skip > 0 {
		opts.SetSkip(int64(spec.Skip))
	}

	if spec.Take > 0 {
		opts.SetLimit(int64(spec.Take))
	}

	cur, err := s.coll.Find(ctx, pred, opts)
	if err != nil {
		return nil, itemerrors.Internal(err)
	}

	return &cursor[T]{mongoCursor: cur}, nil
}

// cursor adapts a *mongo.Cursor into store.Cursor[T].
type cursor[T any] struct {
	mongoCursor *mongo.Cursor
	current     *T
	err         error
}

func (c *cursor[T]) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}

	if err := ctx.Err(); err != nil {
		c.err = itemerrors.Cancelled()
		return false
	}

	if !c.mongoCursor.Next(ctx) {
		if err := c.mongoCursor.Err(); err != nil {
			c.err = itemerrors.Internal(err)
		}

		return false
	}

	var doc document[T]

	if err := c.mongoCursor.Decode(&doc); err != nil {
		c.err = itemerrors.Internal(err)
		return false
	}

	c.current = doc.Data

	return true
}

func (c *cursor[T]) Current() *T {
	return c.current
}

func (c *cursor[T]) Err() error {
	return c.err
}

func (c *cursor[T]) Close() error {
	return c.mongoCursor.Close(context.Background())
}
