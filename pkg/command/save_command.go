// Package command implements the save-command and read-result objects of
// spec §4.3/§4.4: stateful, mutex-guarded wrappers around a single owned
// item that run the validate -> stamp -> build-event -> adapter-save ->
// finalize pipeline exactly once.
package command

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/mlog"
	"github.com/LerianStudio/itemcore/pkg/mmodel"
	"github.com/LerianStudio/itemcore/pkg/proxy"
	"github.com/LerianStudio/itemcore/pkg/reqcontext"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// AdapterSaveFunc is the provider-bound callback a SaveCommand calls to
// reach the concrete store.Adapter's SaveItem. Binding it per command
// (rather than threading the whole Adapter through) keeps the command
// from needing to know about Reader/Queryer at all.
type AdapterSaveFunc[T any] func(ctx context.Context, req store.SaveRequest[T]) (*T, error)

// SaveCommand is a stateful, single-use object wrapping exactly one item
// mutation (spec §4.3). Create it via NewCreate/NewUpdate/NewDelete; each
// instance owns its item exclusively until Save completes or fails.
type SaveCommand[T any] struct {
	mu sync.Mutex

	item   *T
	prx    *proxy.Proxy[T]
	action store.Action

	typeName        string
	relatedTypeName string

	base      func(item *T) *mmodel.BaseItem
	validator Validator[T]
	saveFn    AdapterSaveFunc[T]
	logger    mlog.Logger

	finalized bool
}

// NewCreate builds a SaveCommand that owns a freshly constructed item; no
// store read is performed and ETag is left for the adapter to assign
// (spec §4.3 "Create" tie-break).
func NewCreate[T any](
	item *T,
	typeName string,
	base func(*T) *mmodel.BaseItem,
	tracked []proxy.TrackedProperty[T],
	validator Validator[T],
	saveFn AdapterSaveFunc[T],
	logger mlog.Logger,
) *SaveCommand[T] {
	return &SaveCommand[T]{
		item:            item,
		prx:             proxy.New(item, tracked),
		action:          store.ActionCreate,
		typeName:        typeName,
		relatedTypeName: typeName,
		base:            base,
		validator:       validator,
		saveFn:          saveFn,
		logger:          logger,
	}
}

// NewMutation builds a SaveCommand over an item already read from the
// store (Update or Delete), inheriting its stored ETag for the
// adapter's compare-and-swap (spec §4.3 "Update/Delete" tie-break).
func NewMutation[T any](
	item *T,
	action store.Action,
	typeName string,
	base func(*T) *mmodel.BaseItem,
	tracked []proxy.TrackedProperty[T],
	validator Validator[T],
	saveFn AdapterSaveFunc[T],
	logger mlog.Logger,
) *SaveCommand[T] {
	return &SaveCommand[T]{
		item:            item,
		prx:             proxy.New(item, tracked),
		action:          action,
		typeName:        typeName,
		relatedTypeName: typeName,
		base:            base,
		validator:       validator,
		saveFn:          saveFn,
		logger:          logger,
	}
}

// Item returns the interface view (here, the concrete item's proxy) a
// caller mutates before Save (spec §4.3 "Item").
func (c *SaveCommand[T]) Item() *proxy.Proxy[T] {
	return c.prx
}

// Validate runs the registered validator against the current item state;
// pure, no I/O (spec §4.3 "Validate").
func (c *SaveCommand[T]) Validate() ValidationResult {
	if c.validator == nil {
		return ValidationResult{Valid: true}
	}

	return c.validator(c.item)
}

// Acquire locks the command's mutex and fails fast with AlreadySaved if
// the command has already finalized, without releasing the lock -
// callers that get a nil error own the lock and must call Release
// themselves. Exported so BatchCommand can drive the same acquire step
// spec §4.6 describes ("acquires each contained command's mutex... if
// any acquire fails, release any already-acquired commands").
func (c *SaveCommand[T]) Acquire() error {
	c.mu.Lock()

	if c.finalized {
		c.mu.Unlock()
		return itemerrors.AlreadySaved()
	}

	return nil
}

// Release unlocks the command's mutex without changing its state. Used
// both by Save's own defer and by BatchCommand when a row did not
// commit (spec §4.6 step 5: "their underlying commands are released
// (not finalized)").
func (c *SaveCommand[T]) Release() {
	c.mu.Unlock()
}

// Finalized reports whether Save has already completed successfully,
// briefly taking the command's mutex - used by BatchCommand to check before
// attempting to add a command (spec §4.6's "added commands must be
// unfinalized").
func (c *SaveCommand[T]) Finalized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.finalized
}

// PartitionKey returns the owned item's partition key, used by
// BatchCommand to verify every added command shares one partition
// (spec §4.6).
func (c *SaveCommand[T]) PartitionKey() string {
	return c.base(c.item).PartitionKey
}

// Action reports whether this command is a Create/Update/Delete,
// surfaced for callers (e.g. BatchCommand) that log or branch on it.
func (c *SaveCommand[T]) Action() store.Action {
	return c.action
}

// Save runs the pipeline in spec §4.3: acquire, check finalized,
// validate, stamp, build event, call the adapter, then either finalize
// (on success) or release (on failure).
func (c *SaveCommand[T]) Save(ctx context.Context, reqCtx reqcontext.RequestContext) (*ReadResult[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, itemerrors.Cancelled()
	}

	if err := c.Acquire(); err != nil {
		return nil, err
	}
	defer c.Release()

	if vr := c.Validate(); !vr.Valid {
		return nil, vr.AsError()
	}

	req := c.PrepareRequest(reqCtx)

	c.logger.Debugf("itemcore: dispatching %s save for type %s", c.action, c.typeName)

	stored, err := c.saveFn(ctx, req)
	if err != nil {
		if ce, ok := err.(*itemerrors.CoreError); ok && ce.Status >= 500 {
			c.logger.Errorf("itemcore: %s save failed for type %s: %v", c.action, c.typeName, err)
		} else {
			c.logger.Warnf("itemcore: %s save failed for type %s: %v", c.action, c.typeName, err)
		}

		return nil, err
	}

	return c.FinalizeWithStored(stored), nil
}

// PrepareRequest runs spec §4.3 steps 4-5 (stamp the system fields,
// build the accompanying ItemEvent) and packages the result as the
// store.SaveRequest the adapter needs, without calling the adapter.
// Exported so BatchCommand can prepare every row's request before
// making the single SaveBatch call (spec §4.6 step 3). Callers must
// hold the command's lock (via Acquire) before calling this.
func (c *SaveCommand[T]) PrepareRequest(reqCtx reqcontext.RequestContext) store.SaveRequest[T] {
	event := c.stampAndBuildEvent(reqCtx)

	return store.SaveRequest[T]{
		Item:   c.item,
		Event:  event,
		Action: c.action,
	}
}

// FinalizeWithStored replaces the owned item with the adapter-returned
// stored form, transitions to read-only, and clears the save callback
// so a further Save fails with AlreadySaved (spec §4.3 step 7). It does
// not release the lock; callers release separately (Save does so via
// its deferred Release; BatchCommand releases explicitly after calling
// FinalizeWithStored for each committed row).
func (c *SaveCommand[T]) FinalizeWithStored(stored *T) *ReadResult[T] {
	c.item = stored
	c.prx = proxy.New(stored, c.prx.Tracked())
	c.prx.Finalize()
	c.finalized = true
	c.saveFn = nil

	return &ReadResult[T]{prx: c.prx, validator: c.validator}
}

// stampAndBuildEvent applies spec §4.3 step 4 (system-field stamping)
// directly to the owned item - this bypasses proxy.SetField precisely
// because it is the core's own pipeline doing it, not a caller - and
// builds the accompanying ItemEvent per spec §3/§4.3 step 5.
func (c *SaveCommand[T]) stampAndBuildEvent(reqCtx reqcontext.RequestContext) *mmodel.ItemEvent {
	base := c.base(c.item)
	now := time.Now().UTC()

	var (
		allNilOld bool
		saveAction mmodel.SaveAction
	)

	switch c.action {
	case store.ActionCreate:
		base.CreatedDate = now
		base.UpdatedDate = now
		allNilOld = true
		saveAction = mmodel.SaveActionCreated
	case store.ActionUpdate:
		base.UpdatedDate = now
		saveAction = mmodel.SaveActionUpdated
	case store.ActionDelete:
		base.UpdatedDate = now
		base.DeletedDate = &now
		isDeleted := true
		base.IsDeleted = &isDeleted
		saveAction = mmodel.SaveActionDeleted
	}

	var changes []mmodel.PropertyChange
	if c.action != store.ActionDelete {
		changes = c.prx.Changes(allNilOld)
	}

	return &mmodel.ItemEvent{
		BaseItem: mmodel.BaseItem{
			ID:           uuid.Must(uuid.NewV7()).String(),
			PartitionKey: base.PartitionKey,
			TypeName:     mmodel.ReservedEventTypeName,
			CreatedDate:  now,
			UpdatedDate:  now,
		},
		SaveAction:      saveAction,
		RelatedID:       base.ID,
		RelatedTypeName: c.relatedTypeName,
		Changes:         changes,
		Context:         reqCtx.ToEventContext(),
	}
}
