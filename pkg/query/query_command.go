// Package query implements the composable, backend-neutral query
// builder of spec §4.5: a left-to-right stack of Where/OrderBy/
// OrderByDescending/Skip/Take clauses over a store.Queryer, executed
// lazily through a cancellable Sequence of QueryResults.
package query

import (
	"context"

	"github.com/LerianStudio/itemcore/pkg/command"
	"github.com/LerianStudio/itemcore/pkg/expr"
	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/mmodel"
	"github.com/LerianStudio/itemcore/pkg/proxy"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// NewCommandFunc builds the SaveCommand a QueryResult converts itself
// into on Update/Delete (spec §4.4). Bound by the provider so this
// package never needs to know about provider registration details; it
// returns an error so the provider can re-apply its NotSupported gate
// (spec §4.7) even for QueryResult-spawned commands.
type NewCommandFunc[T any] func(item *T, action store.Action) (*command.SaveCommand[T], error)

// Command holds a backend-bound query handle and the stack of composed
// clauses described in spec §4.5. Clauses compose left-to-right: later
// OrderBy/OrderByDescending replaces earlier ordering; Skip/Take follow
// ordering. Not safe for concurrent mutation from multiple goroutines -
// a single owner composes a Command before executing it (spec §5).
type Command[T any] struct {
	adapter  store.Queryer[T]
	typeName string
	fields   expr.FieldMap

	predicate expr.Node
	order     []expr.OrderClause
	skip      int
	take      int

	base       func(item *T) *mmodel.BaseItem
	tracked    []proxy.TrackedProperty[T]
	validator  command.Validator[T]
	newCommand NewCommandFunc[T]
}

// New builds a Command bound to one provider's adapter and typeName. The
// core appends the implicit typeName + deletion filters at execution
// time (ToAsyncSequence), never at composition time, so they cannot be
// removed by further composition (spec §4.5).
func New[T any](
	adapter store.Queryer[T],
	typeName string,
	fields expr.FieldMap,
	base func(item *T) *mmodel.BaseItem,
	tracked []proxy.TrackedProperty[T],
	validator command.Validator[T],
	newCommand NewCommandFunc[T],
) *Command[T] {
	return &Command[T]{
		adapter:    adapter,
		typeName:   typeName,
		fields:     fields,
		base:       base,
		tracked:    tracked,
		validator:  validator,
		newCommand: newCommand,
	}
}

// Where AND-composes predicate with whatever was already composed,
// equivalent to a single Where(p1 && p2) per spec §8 property 8.
func (c *Command[T]) Where(predicate expr.Node) *Command[T] {
	if c.predicate == nil {
		c.predicate = predicate
	} else {
		c.predicate = expr.And{Left: c.predicate, Right: predicate}
	}

	return c
}

// OrderBy replaces any previously composed ordering with a single
// ascending clause on member (spec §4.5, §8 property 8).
func (c *Command[T]) OrderBy(member expr.MemberAccess) *Command[T] {
	c.order = []expr.OrderClause{{Member: member, Descending: false}}
	return c
}

// OrderByDescending replaces any previously composed ordering with a
// single descending clause on member.
func (c *Command[T]) OrderByDescending(member expr.MemberAccess) *Command[T] {
	c.order = []expr.OrderClause{{Member: member, Descending: true}}
	return c
}

// Skip sets the number of ordered rows to skip before the window Take
// bounds (spec §4.5, §8 property 8).
func (c *Command[T]) Skip(n int) *Command[T] {
	c.skip = n
	return c
}

// Take bounds the window size after ordering and skipping.
func (c *Command[T]) Take(n int) *Command[T] {
	c.take = n
	return c
}

// ToAsyncSequence rewrites the composed predicate/order from the public
// interface type's field names to the concrete item type's (spec §4.5),
// appends the two filters the caller cannot remove, and asks the
// adapter for a cursor. The returned Sequence is lazy and single-pass.
func (c *Command[T]) ToAsyncSequence(ctx context.Context) (*Sequence[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, itemerrors.Cancelled()
	}

	predicate, err := expr.Rewrite(c.predicate, c.fields)
	if err != nil {
		return nil, err
	}

	order, err := expr.RewriteOrder(c.order, c.fields)
	if err != nil {
		return nil, err
	}

	spec := store.QuerySpec{
		TypeName:       c.typeName,
		DeletionFilter: store.DeletionFilterLiveOnly,
		Predicate:      predicate,
		OrderBy:        order,
		Skip:           c.skip,
		Take:           c.take,
	}

	cursor, err := c.adapter.Query(ctx, spec)
	if err != nil {
		return nil, err
	}

	return &Sequence[T]{
		cursor:     cursor,
		tracked:    c.tracked,
		validator:  c.validator,
		newCommand: c.newCommand,
	}, nil
}
