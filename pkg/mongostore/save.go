package mongostore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// ReadItem returns the live document for (id, partitionKey), or (nil,
// nil) if absent or soft-deleted, filtering on the composite "_id" the
// way audit.mongodb.go's FindOne filters on "_id.organization_id"/
// "_id.ledger_id" (spec §4.2.1).
func (s *Store[T]) ReadItem(ctx context.Context, id, partitionKey string) (*T, error) {
	filter := bson.M{
		"_id.id":            id,
		"_id.partition_key": partitionKey,
		"data.isDeleted":    bson.M{"$ne": true},
	}

	var doc document[T]

	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}

		return nil, itemerrors.Internal(err)
	}

	return doc.Data, nil
}

// SaveItem performs req atomically with respect to the (item, event)
// pair (spec §4.2.2): the document write and its audit event insert run
// inside one session transaction, committed together or not at all.
// CREATE inserts and fails with Conflict on a duplicate-key error;
// UPDATE/DELETE issue a compare-and-swap ReplaceOne keyed on the
// caller's expected ETag (req.Item's ETag on entry) and, on zero
// matched documents, distinguish NotFound from PreconditionFailed with
// a follow-up existence check, aborting the transaction without writing
// an event either way.
func (s *Store[T]) SaveItem(ctx context.Context, req store.SaveRequest[T]) (*T, error) {
	sess, err := s.client.StartSession()
	if err != nil {
		return nil, itemerrors.Internal(err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		base := s.base(req.Item)
		id := compositeID{ID: base.ID, PartitionKey: base.PartitionKey}

		switch req.Action {
		case store.ActionCreate:
			base.ETag = uuid.Must(uuid.NewV7()).String()

			_, err := s.coll.InsertOne(sc, document[T]{ID: id, Data: req.Item})
			if err != nil {
				if mongo.IsDuplicateKeyError(err) {
					return nil, itemerrors.Conflict("an item with this id already exists in this partition")
				}

				return nil, itemerrors.Internal(err)
			}
		case store.ActionUpdate, store.ActionDelete:
			expectedETag := base.ETag
			base.ETag = uuid.Must(uuid.NewV7()).String()

			filter := bson.M{"_id.id": id.ID, "_id.partition_key": id.PartitionKey, "data.etag": expectedETag}

			result, err := s.coll.ReplaceOne(sc, filter, document[T]{ID: id, Data: req.Item})
			if err != nil {
				return nil, itemerrors.Internal(err)
			}

			if result.MatchedCount == 0 {
				count, err := s.coll.CountDocuments(sc, bson.M{"_id.id": id.ID, "_id.partition_key": id.PartitionKey})
				if err != nil {
					return nil, itemerrors.Internal(err)
				}

				if count == 0 {
					return nil, itemerrors.NotFound("item")
				}

				return nil, itemerrors.PreconditionFailed("etag does not match the stored item")
			}
		}

		if _, err := s.eventsColl.InsertOne(sc, req.Event); err != nil {
			return nil, itemerrors.Internal(err)
		}

		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	return req.Item, nil
}
