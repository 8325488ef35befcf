// Package proxy implements the runtime facade described in spec §4.1: a
// view over a concrete item that forwards reads, rejects writes once the
// owning command finalizes, and accumulates the tracked-property change
// set a save turns into an ItemEvent's Changes.
//
// Go has no dynamic proxy generation, so this follows the rendering spec
// §9 recommends: a plain struct holding a read-only flag plus
// method-based mutators (SetField). Every caller-facing write in
// command/query/batch goes through SetField, never through direct field
// assignment on the pointer Item returns; concrete item types that need
// to expose a setter for a system-managed field (spec §4.1(c)) route it
// through SetSystemField, which always fails. The core itself (inside
// this module) stamps system fields by writing the struct directly,
// since it owns the pipeline that does so, not the caller.
package proxy

import (
	"encoding/json"
	"reflect"

	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/mmodel"
)

// TrackedProperty pairs a property name with a function that reads its
// current value off the concrete item, per spec §9's
// {name, getCurrent, getSerialized} triplet. Registered once per type at
// provider-registration time, not scanned per call.
type TrackedProperty[T any] struct {
	Name  string
	Value func(item *T) any
}

// Proxy wraps a single owned item instance. A command holds exactly one
// Proxy for its lifetime (spec §3's "command exclusively owns its item
// instance until the command completes").
type Proxy[T any] struct {
	item      *T
	readOnly  bool
	tracked   []TrackedProperty[T]
	snapshot  []any
}

// New snapshots the tracked properties' current values and returns a
// writable Proxy over item. Snapshotting at construction time is what
// makes it the "pre-mutation shadow copy" spec §3 requires: for Update
// and Delete, New is called right after Read, before any caller mutation.
func New[T any](item *T, tracked []TrackedProperty[T]) *Proxy[T] {
	snapshot := make([]any, len(tracked))
	for i, tp := range tracked {
		snapshot[i] = tp.Value(item)
	}

	return &Proxy[T]{
		item:     item,
		tracked:  tracked,
		snapshot: snapshot,
	}
}

// Item returns the underlying item pointer. Gets always succeed, even
// after the owning command finalizes (spec §4.1's "Get after command
// finalization -> succeeds").
func (p *Proxy[T]) Item() *T {
	return p.item
}

// IsReadOnly reports whether the proxy has been finalized.
func (p *Proxy[T]) IsReadOnly() bool {
	return p.readOnly
}

// Tracked returns the tracked-property declarations this proxy was built
// with, so a command can rebuild a fresh Proxy over the stored form of
// the item returned by a successful save without re-registering them.
func (p *Proxy[T]) Tracked() []TrackedProperty[T] {
	return p.tracked
}

// SetField is the one sanctioned mutation path for caller-writable
// properties. It rejects the call with itemerrors.ReadOnly when the
// proxy has been finalized (spec §4.1(a)/(b)); otherwise it runs apply
// against the live item.
func (p *Proxy[T]) SetField(apply func(item *T)) error {
	if p.readOnly {
		return itemerrors.ReadOnly()
	}

	apply(p.item)

	return nil
}

// SetSystemField always fails. Concrete item views route any exposed
// setter for an id/partitionKey/typeName/createdDate/updatedDate/
// deletedDate/isDeleted/eTag field through this, so the attempt fails
// regardless of read-only state (spec §4.1(c): these are set only by
// the core, never by the caller).
func (p *Proxy[T]) SetSystemField() error {
	return itemerrors.ReadOnly()
}

// Finalize transitions the proxy to read-only. Called by a save command
// exactly once, on a successful Save (spec §4.3 step 7).
func (p *Proxy[T]) Finalize() {
	p.readOnly = true
}

// Changes diffs the tracked properties' current serialized values against
// the construction-time snapshot and returns one PropertyChange per
// property whose value differs, in tracked-property declaration order
// (spec §3). allNilOld forces every OldValue to nil regardless of the
// snapshot, used on CREATE where there is no meaningful pre-state (spec
// §4.3 step 5).
func (p *Proxy[T]) Changes(allNilOld bool) []mmodel.PropertyChange {
	var changes []mmodel.PropertyChange

	for i, tp := range p.tracked {
		current := tp.Value(p.item)
		before := p.snapshot[i]

		if allNilOld {
			if !serializedEqual(nil, current) {
				changes = append(changes, mmodel.PropertyChange{
					PropertyName: tp.Name,
					OldValue:     nil,
					NewValue:     current,
				})
			}

			continue
		}

		if !serializedEqual(before, current) {
			changes = append(changes, mmodel.PropertyChange{
				PropertyName: tp.Name,
				OldValue:     before,
				NewValue:     current,
			})
		}
	}

	return changes
}

// serializedEqual compares two tracked-property values the way an
// ItemEvent's Changes entry would: by their JSON-serialized form, so a
// *string pointing at "a" and a different *string pointing at "a" compare
// equal, matching spec §3's "serialized value differs" wording.
func serializedEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}

	if reflect.DeepEqual(a, b) {
		return true
	}

	aj, aerr := json.Marshal(a)
	bj, berr := json.Marshal(b)

	if aerr != nil || berr != nil {
		return false
	}

	return string(aj) == string(bj)
}
