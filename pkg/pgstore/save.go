package pgstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/mmodel"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// pgxQuerier is the common subset of *pgxpool.Pool and pgx.Tx this file
// needs, so the same helper can run either standalone or inside the
// transaction SaveItem opens.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const pgUniqueViolation = "23505"

// ReadItem returns the live row for (id, partitionKey), or (nil, nil) if
// absent or soft-deleted - mirroring organization.postgresql.go's Find,
// which scans sql.ErrNoRows into a not-found result rather than an
// error (spec §4.2.1).
func (s *Store[T]) ReadItem(ctx context.Context, id, partitionKey string) (*T, error) {
	var data []byte

	row := s.pool.QueryRow(ctx,
		`SELECT data FROM `+s.tableName+` WHERE id = $1 AND partition_key = $2 AND is_deleted = false`,
		id, partitionKey)

	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, translatePgError(err)
	}

	return decode[T](data)
}

// SaveItem performs req atomically with respect to the (item, event)
// pair (spec §4.2.2): the item row and its audit event row are written
// inside one transaction, committed together or not at all. On entry
// req.Item's ETag is the caller's expected current value (empty for
// CREATE); SaveItem checks it, stamps a fresh ETag, and persists the
// item. CREATE fails with Conflict on a unique-constraint violation;
// UPDATE/DELETE issue a compare-and-swap UPDATE keyed on the expected
// ETag and, on zero rows affected, distinguish NotFound from
// PreconditionFailed with a follow-up read, rolling back without
// writing an event either way.
func (s *Store[T]) SaveItem(ctx context.Context, req store.SaveRequest[T]) (*T, error) {
	base := s.base(req.Item)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, itemerrors.Internal(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	switch req.Action {
	case store.ActionCreate:
		base.ETag = uuid.Must(uuid.NewV7()).String()

		data, err := json.Marshal(req.Item)
		if err != nil {
			return nil, itemerrors.Internal(err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO `+s.tableName+
				` (id, partition_key, type_name, is_deleted, etag, created_date, updated_date, deleted_date, data)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			base.ID, base.PartitionKey, base.TypeName, boolOf(base.IsDeleted), base.ETag,
			base.CreatedDate, base.UpdatedDate, base.DeletedDate, data)
		if err != nil {
			return nil, translatePgError(err)
		}
	case store.ActionUpdate, store.ActionDelete:
		expectedETag := base.ETag
		base.ETag = uuid.Must(uuid.NewV7()).String()

		data, err := json.Marshal(req.Item)
		if err != nil {
			return nil, itemerrors.Internal(err)
		}

		tag, err := tx.Exec(ctx,
			`UPDATE `+s.tableName+` SET is_deleted = $1, etag = $2, updated_date = $3, deleted_date = $4, data = $5
			 WHERE id = $6 AND partition_key = $7 AND etag = $8`,
			boolOf(base.IsDeleted), base.ETag, base.UpdatedDate, base.DeletedDate, data,
			base.ID, base.PartitionKey, expectedETag)
		if err != nil {
			return nil, translatePgError(err)
		}

		if tag.RowsAffected() == 0 {
			exists, existsErr := s.rowExists(ctx, tx, base.ID, base.PartitionKey)
			if existsErr != nil {
				return nil, existsErr
			}

			if !exists {
				return nil, itemerrors.NotFound("item")
			}

			return nil, itemerrors.PreconditionFailed("etag does not match the stored item")
		}
	}

	if err := s.insertEvent(ctx, tx, req.Event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, itemerrors.Internal(err)
	}

	return req.Item, nil
}

func (s *Store[T]) rowExists(ctx context.Context, q pgxQuerier, id, partitionKey string) (bool, error) {
	var exists bool

	row := q.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+s.tableName+` WHERE id = $1 AND partition_key = $2)`,
		id, partitionKey)

	if err := row.Scan(&exists); err != nil {
		return false, translatePgError(err)
	}

	return exists, nil
}

// insertEvent writes event into the events table within tx, the same
// envelope-plus-data-blob shape the item table uses (spec §6). Every
// field a Where/OrderBy clause could ever reference on an event is
// promoted to a column; the rest rides along in data.
func (s *Store[T]) insertEvent(ctx context.Context, tx pgx.Tx, event *mmodel.ItemEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return itemerrors.Internal(err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO `+s.eventsTableName+
			` (id, partition_key, type_name, related_id, related_type_name, save_action, is_deleted, etag, created_date, updated_date, deleted_date, data)
		  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		event.ID, event.PartitionKey, event.TypeName, event.RelatedID, event.RelatedTypeName, event.SaveAction,
		boolOf(event.IsDeleted), event.ETag, event.CreatedDate, event.UpdatedDate, event.DeletedDate, data)
	if err != nil {
		return translatePgError(err)
	}

	return nil
}

func decode[T any](data []byte) (*T, error) {
	item := new(T)
	if err := json.Unmarshal(data, item); err != nil {
		return nil, itemerrors.Internal(err)
	}

	return item, nil
}

func boolOf(b *bool) bool {
	return b != nil && *b
}

func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return itemerrors.Conflict("an item with this id already exists in this partition")
	}

	return itemerrors.Internal(err)
}
