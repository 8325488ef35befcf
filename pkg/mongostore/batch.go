package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/google/uuid"

	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// SaveBatch runs every request inside one multi-document session
// transaction (spec §4.2.3). Unlike pgstore's savepoint-per-row design,
// a Mongo transaction aborts wholesale on its first write conflict, so
// SaveBatch first checks every row against the currently committed
// state within the session's snapshot, and only issues writes if every
// row would succeed - the same check-then-commit shape memstore uses,
// but backed by a real transaction so concurrent writers outside the
// batch still see all-or-nothing.
func (s *Store[T]) SaveBatch(ctx context.Context, partitionKey string, reqs []store.SaveRequest[T]) ([]store.BatchRowResult[T], error) {
	sess, err := s.client.StartSession()
	if err != nil {
		return nil, itemerrors.Internal(err)
	}
	defer sess.EndSession(ctx)

	var results []store.BatchRowResult[T]

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		checks := make([]store.StatusKind, len(reqs))
		seenInBatch := make(map[compositeID]bool, len(reqs))
		hasFailure := false

		for i, req := range reqs {
			base := s.base(req.Item)

			if base.PartitionKey != partitionKey {
				checks[i] = store.StatusBadRequest
				hasFailure = true

				continue
			}

			id := compositeID{ID: base.ID, PartitionKey: base.PartitionKey}

			var existing document[T]

			err := s.coll.FindOne(sc, bson.M{"_id.id": id.ID, "_id.partition_key": id.PartitionKey}).Decode(&existing)

			existsStored := err == nil
			if err != nil && err != mongo.ErrNoDocuments {
				return nil, itemerrors.Internal(err)
			}

			existsInBatch := seenInBatch[id]
			exists := existsStored || existsInBatch

			switch req.Action {
			case store.ActionCreate:
				if exists {
					checks[i] = store.StatusConflict
					hasFailure = true

					continue
				}

				seenInBatch[id] = true
			case store.ActionUpdate, store.ActionDelete:
				if !exists {
					checks[i] = store.StatusNotFound
					hasFailure = true

					continue
				}

				if existsStored && !existsInBatch && s.base(existing.Data).ETag != base.ETag {
					checks[i] = store.StatusPreconditionFailed
					hasFailure = true

					continue
				}

				seenInBatch[id] = true
			}

			checks[i] = store.StatusOK
		}

		results = make([]store.BatchRowResult[T], len(reqs))

		if hasFailure {
			for i, status := range checks {
				if status == store.StatusOK {
					results[i] = store.BatchRowResult[T]{Status: store.StatusFailedDependency}
				} else {
					results[i] = store.BatchRowResult[T]{Status: status}
				}
			}

			return nil, nil
		}

		for i, req := range reqs {
			base := s.base(req.Item)
			base.ETag = uuid.Must(uuid.NewV7()).String()

			id := compositeID{ID: base.ID, PartitionKey: base.PartitionKey}
			doc := document[T]{ID: id, Data: req.Item}

			if _, err := s.coll.ReplaceOne(sc, bson.M{"_id.id": id.ID, "_id.partition_key": id.PartitionKey}, doc, options.Replace().SetUpsert(true)); err != nil {
				return nil, itemerrors.Internal(err)
			}

			if _, err := s.eventsColl.InsertOne(sc, req.Event); err != nil {
				return nil, itemerrors.Internal(err)
			}

			results[i] = store.BatchRowResult[T]{Status: store.StatusOK, Item: req.Item}
		}

		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}
