package memstore

import (
	"context"
	"sort"

	"github.com/LerianStudio/itemcore/pkg/expr"
	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// Query evaluates spec against the currently committed rows and returns a
// cursor over the result (spec §4.2.4). Because every row already lives
// in process memory, this adapter builds the filtered/ordered id list up
// front rather than streaming from a native cursor - real backends
// (pgstore, mongostore) translate Predicate/OrderBy to a server-side
// query and stream rows lazily instead.
func (s *Store[T]) Query(_ context.Context, spec store.QuerySpec) (store.Cursor[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*T

	for _, byID := range s.items {
		for _, r := range byID {
			item, err := s.decode(r)
			if err != nil {
				return nil, err
			}

			base := s.base(item)

			if spec.DeletionFilter == store.DeletionFilterLiveOnly && !base.IsLive() {
				continue
			}

			if base.TypeName != spec.TypeName {
				continue
			}

			ok, err := evalPredicate[T](spec.Predicate, item, s.accessors)
			if err != nil {
				return nil, err
			}

			if !ok {
				continue
			}

			matched = append(matched, item)
		}
	}

	if len(spec.OrderBy) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			return lessByOrder(matched[i], matched[j], spec.OrderBy, s.accessors)
		})
	}

	if spec.Skip > 0 {
		if spec.Skip >= len(matched) {
			matched = nil
		} else {
			matched = matched[spec.Skip:]
		}
	}

	if spec.Take > 0 && spec.Take < len(matched) {
		matched = matched[:spec.Take]
	}

	return &cursor[T]{rows: matched, pos: -1}, nil
}

func lessByOrder[T any](a, b *T, clauses []expr.OrderClause, accessors map[string]func(*T) any) bool {
	for _, clause := range clauses {
		accessor, ok := accessors[clause.Member.Name]
		if !ok {
			continue
		}

		c, err := compareValues(accessor(a), accessor(b))
		if err != nil || c == 0 {
			continue
		}

		if clause.Descending {
			return c > 0
		}

		return c < 0
	}

	return false
}

// cursor is a snapshot-based Cursor[T]: Query already materialized the
// matched, ordered, paged rows, so Next just walks the slice. Close is a
// no-op since no underlying resource (connection, result set) is held.
type cursor[T any] struct {
	rows []*T
	pos  int
	err  error
}

func (c *cursor[T]) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}

	if err := ctx.Err(); err != nil {
		c.err = itemerrors.Cancelled()
		return false
	}

	c.pos++

	return c.pos < len(c.rows)
}

func (c *cursor[T]) Current() *T {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil
	}

	return c.rows[c.pos]
}

func (c *cursor[T]) Err() error {
	return c.err
}

func (c *cursor[T]) Close() error {
	return nil
}
