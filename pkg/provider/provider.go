// Package provider implements the per-type factory of spec §4.7: it
// registers one (interface type, concrete type, typeName) triple,
// validates the typeName naming rule at registration time, and exposes
// Create/Read/Update/Delete/Batch/Query gated by an operations allow-list.
package provider

import (
	"context"

	"github.com/LerianStudio/itemcore/pkg/batch"
	"github.com/LerianStudio/itemcore/pkg/command"
	"github.com/LerianStudio/itemcore/pkg/expr"
	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/mlog"
	"github.com/LerianStudio/itemcore/pkg/mmodel"
	"github.com/LerianStudio/itemcore/pkg/proxy"
	"github.com/LerianStudio/itemcore/pkg/query"
	"github.com/LerianStudio/itemcore/pkg/reqcontext"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// Operations is a bitmask gating which mutating operations a Provider
// allows, per spec §4.7: "A per-provider commandOperations bitmask
// gates Update and Delete; disabled operations fail with NotSupported
// before I/O." Create/Read/Batch/Query are never gated; only Update and
// Delete are named as gate-able in spec §4.3's tie-break.
type Operations uint8

const (
	OpUpdate Operations = 1 << iota
	OpDelete

	OpAll = OpUpdate | OpDelete
)

func (o Operations) allows(op Operations) bool {
	return o&op != 0
}

// Registration bundles everything a Provider needs to know about one
// concrete item type T, all supplied explicitly at registration time
// rather than discovered by reflection (spec §9's "explicit list
// registered with the provider, not via reflective attribute scanning").
type Registration[T any] struct {
	// TypeName is validated against spec §3/§4.7's naming rule at
	// registration time.
	TypeName string

	// New builds a zero-value *T for Create; the provider stamps
	// BaseItem.ID/PartitionKey/TypeName onto it before handing it to the
	// caller.
	New func() *T

	// Base returns the embedded mmodel.BaseItem pointer for item,
	// spec §9's explicit-registration rendering of what would otherwise
	// require reflection or an interface constraint.
	Base func(item *T) *mmodel.BaseItem

	// Tracked lists the properties whose deltas are recorded in an
	// ItemEvent's Changes (spec §3/§9).
	Tracked []proxy.TrackedProperty[T]

	// Fields maps the public interface type's field names to T's field
	// names, consumed by the expression rewriter (spec §4.5).
	Fields expr.FieldMap

	// Validator runs type-specific business rules; may be nil.
	Validator command.Validator[T]

	// Adapter is the backend this provider reads from and writes to.
	Adapter store.Adapter[T]

	// Operations gates which mutating operations are allowed
	// (spec §4.7). Zero value disallows both Update and Delete.
	Operations Operations

	// Logger receives ambient Debug/Warn/Error logging (spec SPEC_FULL
	// ambient stack). Defaults to mlog.NoneLogger if nil.
	Logger mlog.Logger
}

// Provider is the per-type factory of spec §4.7.
type Provider[T any] struct {
	reg Registration[T]
}

// New validates reg.TypeName against the naming rule and returns a
// Provider, or fails with InvalidType (spec §4.7).
func New[T any](reg Registration[T]) (*Provider[T], error) {
	if !mmodel.ValidTypeName(reg.TypeName) {
		return nil, itemerrors.InvalidType(reg.TypeName)
	}

	if reg.Logger == nil {
		reg.Logger = &mlog.NoneLogger{}
	}

	return &Provider[T]{reg: reg}, nil
}

// Create returns a SaveCommand owning a freshly constructed item stamped
// with id/partitionKey/typeName (spec §4.3 "Create" tie-break).
func (p *Provider[T]) Create(id, partitionKey string) *command.SaveCommand[T] {
	item := p.reg.New()
	base := p.reg.Base(item)
	base.ID = id
	base.PartitionKey = partitionKey
	base.TypeName = p.reg.TypeName

	return command.NewCreate(
		item,
		p.reg.TypeName,
		p.reg.Base,
		p.reg.Tracked,
		p.reg.Validator,
		p.saveItemFunc(),
		p.reg.Logger,
	)
}

// Read reads one item by (id, partitionKey) and returns a read-only
// ReadResult, or nil if it does not exist (spec §4.2.1, §7: "on Read
// surfaced as absent rather than error").
func (p *Provider[T]) Read(ctx context.Context, id, partitionKey string) (*command.ReadResult[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, itemerrors.Cancelled()
	}

	item, err := p.reg.Adapter.ReadItem(ctx, id, partitionKey)
	if err != nil {
		return nil, err
	}

	if item == nil {
		return nil, nil
	}

	return command.NewReadResult(item, p.reg.Tracked, p.reg.Validator), nil
}

// Update reads the item at (id, partitionKey) and returns a SaveCommand
// inheriting its stored ETag, or fails with NotFound if absent
// (spec §4.3 "Update/Delete" tie-break) or NotSupported if this
// provider disallows Update (spec §4.7).
func (p *Provider[T]) Update(ctx context.Context, id, partitionKey string) (*command.SaveCommand[T], error) {
	return p.readForMutation(ctx, id, partitionKey, store.ActionUpdate, OpUpdate)
}

// Delete reads the item at (id, partitionKey) and returns a SaveCommand
// that will soft-delete it, or fails with NotFound if absent, or
// NotSupported if this provider disallows Delete (spec §4.7).
func (p *Provider[T]) Delete(ctx context.Context, id, partitionKey string) (*command.SaveCommand[T], error) {
	return p.readForMutation(ctx, id, partitionKey, store.ActionDelete, OpDelete)
}

func (p *Provider[T]) readForMutation(
	ctx context.Context,
	id, partitionKey string,
	action store.Action,
	gate Operations,
) (*command.SaveCommand[T], error) {
	if !p.reg.Operations.allows(gate) {
		return nil, itemerrors.NotSupported(string(action))
	}

	if err := ctx.Err(); err != nil {
		return nil, itemerrors.Cancelled()
	}

	item, err := p.reg.Adapter.ReadItem(ctx, id, partitionKey)
	if err != nil {
		return nil, err
	}

	if item == nil {
		return nil, itemerrors.NotFound(p.reg.TypeName)
	}

	return command.NewMutation(
		item,
		action,
		p.reg.TypeName,
		p.reg.Base,
		p.reg.Tracked,
		p.reg.Validator,
		p.saveItemFunc(),
		p.reg.Logger,
	), nil
}

// Batch returns a new, empty batch.Command bound to this provider's
// adapter (spec §4.6/§4.7).
func (p *Provider[T]) Batch() *batch.Command[T] {
	return batch.New[T](p.reg.Adapter.SaveBatch, p.reg.Logger)
}

// Query returns a new query.Command bound to this provider's adapter and
// typeName (spec §4.5/§4.7).
func (p *Provider[T]) Query() *query.Command[T] {
	return query.New[T](
		p.reg.Adapter,
		p.reg.TypeName,
		p.reg.Fields,
		p.reg.Base,
		p.reg.Tracked,
		p.reg.Validator,
		p.newMutationCommand,
	)
}

func (p *Provider[T]) saveItemFunc() command.AdapterSaveFunc[T] {
	return p.reg.Adapter.SaveItem
}

// newMutationCommand builds the SaveCommand a QueryResult converts
// itself into on Update/Delete (spec §4.4), gated the same way
// Update/Delete are above (spec §4.7).
func (p *Provider[T]) newMutationCommand(item *T, action store.Action) (*command.SaveCommand[T], error) {
	gate := OpUpdate
	if action == store.ActionDelete {
		gate = OpDelete
	}

	if !p.reg.Operations.allows(gate) {
		return nil, itemerrors.NotSupported(string(action))
	}

	return command.NewMutation(
		item,
		action,
		p.reg.TypeName,
		p.reg.Base,
		p.reg.Tracked,
		p.reg.Validator,
		p.saveItemFunc(),
		p.reg.Logger,
	), nil
}
