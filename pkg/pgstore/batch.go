package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// SaveBatch runs every request in one transaction, each statement inside
// its own savepoint so a failing row can be rolled back to without
// losing the rows already validated beside it (spec §4.2.3: "no partial
// commit is observable"). If any row fails, the whole transaction rolls
// back and every row that would otherwise have succeeded is reported as
// FailedDependency; otherwise the transaction commits and every row
// reports its new, persisted state.
func (s *Store[T]) SaveBatch(ctx context.Context, partitionKey string, reqs []store.SaveRequest[T]) ([]store.BatchRowResult[T], error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, itemerrors.Internal(err)
	}

	defer func() { _ = tx.Rollback(ctx) }()

	results := make([]store.BatchRowResult[T], len(reqs))
	hasFailure := false

	for i, req := range reqs {
		spName := fmt.Sprintf("row_%d", i)

		if _, err := tx.Exec(ctx, "SAVEPOINT "+spName); err != nil {
			return nil, itemerrors.Internal(err)
		}

		stored, status := s.execRow(ctx, tx, partitionKey, req)
		if status != store.StatusOK {
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+spName); rbErr != nil {
				return nil, itemerrors.Internal(rbErr)
			}

			results[i] = store.BatchRowResult[T]{Status: status}
			hasFailure = true

			continue
		}

		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+spName); err != nil {
			return nil, itemerrors.Internal(err)
		}

		results[i] = store.BatchRowResult[T]{Status: store.StatusOK, Item: stored}
	}

	if hasFailure {
		for i, r := range results {
			if r.Status == store.StatusOK {
				results[i] = store.BatchRowResult[T]{Status: store.StatusFailedDependency}
			}
		}

		return results, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, itemerrors.Internal(err)
	}

	return results, nil
}

// execRow performs one row's mutation plus its audit event insert inside
// tx and classifies the outcome into the StatusKind taxonomy SaveBatch
// reports per row (spec §4.2.3/§7), instead of returning a Go error the
// way the single-item SaveItem does - a batch row's failure is data, not
// a call failure. The event insert happens inside the same savepoint as
// the item write, so when this row fails SaveBatch's rollback-to-savepoint
// undoes both together; rows that already succeeded are undone with the
// whole transaction, which SaveBatch never commits once any row fails.
func (s *Store[T]) execRow(ctx context.Context, tx pgx.Tx, partitionKey string, req store.SaveRequest[T]) (*T, store.StatusKind) {
	base := s.base(req.Item)

	if base.PartitionKey != partitionKey {
		return nil, store.StatusBadRequest
	}

	switch req.Action {
	case store.ActionCreate:
		base.ETag = uuid.Must(uuid.NewV7()).String()

		data, err := json.Marshal(req.Item)
		if err != nil {
			return nil, store.StatusInternal
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO `+s.tableName+
				` (id, partition_key, type_name, is_deleted, etag, created_date, updated_date, deleted_date, data)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			base.ID, base.PartitionKey, base.TypeName, boolOf(base.IsDeleted), base.ETag,
			base.CreatedDate, base.UpdatedDate, base.DeletedDate, data)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, store.StatusConflict
			}

			return nil, store.StatusInternal
		}
	case store.ActionUpdate, store.ActionDelete:
		expectedETag := base.ETag
		base.ETag = uuid.Must(uuid.NewV7()).String()

		data, err := json.Marshal(req.Item)
		if err != nil {
			return nil, store.StatusInternal
		}

		tag, err := tx.Exec(ctx,
			`UPDATE `+s.tableName+` SET is_deleted = $1, etag = $2, updated_date = $3, deleted_date = $4, data = $5
			 WHERE id = $6 AND partition_key = $7 AND etag = $8`,
			boolOf(base.IsDeleted), base.ETag, base.UpdatedDate, base.DeletedDate, data,
			base.ID, base.PartitionKey, expectedETag)
		if err != nil {
			return nil, store.StatusInternal
		}

		if tag.RowsAffected() == 0 {
			var exists bool

			row := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM `+s.tableName+` WHERE id = $1 AND partition_key = $2)`,
				base.ID, base.PartitionKey)
			if err := row.Scan(&exists); err != nil {
				return nil, store.StatusInternal
			}

			if !exists {
				return nil, store.StatusNotFound
			}

			return nil, store.StatusPreconditionFailed
		}
	default:
		return nil, store.StatusBadRequest
	}

	if err := s.insertEvent(ctx, tx, req.Event); err != nil {
		return nil, store.StatusInternal
	}

	return req.Item, store.StatusOK
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
