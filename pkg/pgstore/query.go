package pgstore

import (
	"context"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// Query composes and runs one sqrl SELECT, streaming rows through pgx's
// native cursor rather than materializing the result set (spec §4.2.4),
// the way FindAll/ListByIDs compose sqrl queries against the pool in
// organization.postgresql.go.
func (s *Store[T]) Query(ctx context.Context, spec store.QuerySpec) (store.Cursor[T], error) {
	sel := sqrl.Select("data").
		From(s.tableName).
		Where(sqrl.Eq{"type_name": spec.TypeName}).
		PlaceholderFormat(sqrl.Dollar)

	if spec.DeletionFilter == store.DeletionFilterLiveOnly {
		sel = sel.Where(sqrl.Eq{"is_deleted": false})
	}

	predSQL, err := translatePredicate(spec.Predicate, s.columns)
	if err != nil {
		return nil, err
	}

	sel = sel.Where(predSQL)

	order, err := translateOrder(spec.OrderBy, s.columns)
	if err != nil {
		return nil, err
	}

	for _, term := range order {
		sel = sel.OrderBy(term)
	}

	if spec.Skip > 0 {
		sel = sel.Offset(uint64(spec.Skip))
	}

	if spec.Take > 0 {
		sel = sel.Limit(uint64(spec.Take))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, itemerrors.Internal(err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translatePgError(err)
	}

	return &cursor[T]{rows: rows}, nil
}

// cursor adapts a pgx.Rows into store.Cursor[T], decoding the data
// column into *T one row at a time.
type cursor[T any] struct {
	rows    pgx.Rows
	current *T
	err     error
}

func (c *cursor[T]) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}

	if err := ctx.Err(); err != nil {
		c.err = itemerrors.Cancelled()
		return false
	}

	if !c.rows.Next() {
		c.err = translatePgRowsError(c.rows.Err())
		return false
	}

	var data []byte
	if err := c.rows.Scan(&data); err != nil {
		c.err = itemerrors.Internal(err)
		return false
	}

	item, err := decode[T](data)
	if err != nil {
		c.err = err
		return false
	}

	c.current = item

	return true
}

func (c *cursor[T]) Current() *T {
	return c.current
}

func (c *cursor[T]) Err() error {
	return c.err
}

func (c *cursor[T]) Close() error {
	c.rows.Close()
	return nil
}

func translatePgRowsError(err error) error {
	if err == nil {
		return nil
	}

	return translatePgError(err)
}
