// Package store defines the narrow, backend-neutral contract the core
// requires from any storage backend (spec §4.2): read one item, save one
// (item, event) pair atomically, save a batch atomically within one
// partition, and run a composed query. Concrete backends (pgstore,
// mongostore, memstore) each implement Adapter for one concrete item
// type T.
package store

import (
	"context"

	"github.com/LerianStudio/itemcore/pkg/expr"
	"github.com/LerianStudio/itemcore/pkg/mmodel"
)

// Action discriminates the kind of mutation a SaveRequest carries. It is
// the adapter-facing counterpart of mmodel.SaveAction (present tense,
// matching spec §4.2's {CREATE,UPDATE,DELETE} vocabulary rather than the
// ItemEvent's past-tense {CREATED,UPDATED,DELETED}).
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// SaveRequest bundles one item mutation with the audit event that must be
// committed atomically alongside it (spec §4.2.2).
type SaveRequest[T any] struct {
	Item   *T
	Event  *mmodel.ItemEvent
	Action Action
}

// StatusKind is the outcome of one row of a SaveBatch call; single-item
// SaveItem/ReadItem calls report failures as errors instead. It mirrors
// the taxonomy in spec §4.2/§7.
type StatusKind int

const (
	StatusOK StatusKind = iota
	StatusConflict
	StatusPreconditionFailed
	StatusFailedDependency
	StatusBadRequest
	StatusNotFound
	StatusServiceUnavailable
	StatusInternal
)

// BatchRowResult is one positionally-aligned entry of a SaveBatch result
// (spec §4.2.3). Item is non-nil only when Status is StatusOK.
type BatchRowResult[T any] struct {
	Status StatusKind
	Item   *T
}

// DeletionFilter controls whether a Query includes soft-deleted items.
// The core always passes DeletionFilterLiveOnly (spec §4.5: the core
// implicitly appends "isDeleted absent OR isDeleted == false" and the
// caller cannot remove it), but the type exists so a future caller of
// the adapter directly (outside QueryCommand) has a documented knob.
type DeletionFilter int

const (
	DeletionFilterLiveOnly DeletionFilter = iota
	DeletionFilterIncludeDeleted
)

// QuerySpec is the fully composed, backend-neutral description of one
// query: the implicit type/deletion filters the core always appends,
// plus whatever Where/OrderBy/Skip/Take clauses the caller composed on
// the QueryCommand (spec §4.5). Predicate and OrderBy are already
// rewritten to reference the concrete item type T by the expression
// rewriter (pkg/expr) before an adapter ever sees them.
type QuerySpec struct {
	TypeName       string
	DeletionFilter DeletionFilter
	Predicate      expr.Node
	OrderBy        []expr.OrderClause
	Skip           int
	Take           int
}

// Cursor is a lazy, single-pass, cancellable sequence of query rows
// (spec §4.5). Next advances the cursor and must be checked before every
// Current call; it returns false both at end-of-sequence and on error
// (callers discriminate via Err). Iteration must never materialize the
// full result set in memory.
type Cursor[T any] interface {
	Next(ctx context.Context) bool
	Current() *T
	Err() error
	Close() error
}

// Reader is the read half of the adapter contract (spec §4.2.1).
type Reader[T any] interface {
	// ReadItem returns the live item for (id, partitionKey), or (nil, nil)
	// if no such item exists. A non-nil error indicates an adapter
	// failure, not absence.
	ReadItem(ctx context.Context, id, partitionKey string) (*T, error)
}

// Writer is the single-item write half of the adapter contract
// (spec §4.2.2).
type Writer[T any] interface {
	// SaveItem performs req atomically with respect to the (item, event)
	// pair within req.Item's partition. CREATE uses insert-or-conflict
	// semantics; UPDATE/DELETE compare-and-swap on req.Item.ETag against
	// the stored item's current ETag.
	SaveItem(ctx context.Context, req SaveRequest[T]) (*T, error)
}

// BatchWriter is the multi-item atomic write half of the adapter contract
// (spec §4.2.3). All reqs share one partitionKey.
type BatchWriter[T any] interface {
	SaveBatch(ctx context.Context, partitionKey string, reqs []SaveRequest[T]) ([]BatchRowResult[T], error)
}

// Queryer is the query half of the adapter contract (spec §4.2.4).
type Queryer[T any] interface {
	Query(ctx context.Context, spec QuerySpec) (Cursor[T], error)
}

// Adapter is the full contract the core requires from a backend
// (spec §4.2): exactly these four capabilities, nothing more.
type Adapter[T any] interface {
	Reader[T]
	Writer[T]
	BatchWriter[T]
	Queryer[T]
}
