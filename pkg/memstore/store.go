// Package memstore is the in-memory reference store.Adapter used by the
// core's own tests and by callers who want a zero-dependency backend for
// development. Per spec §9's open question ("the source has two
// generations of in-memory adapter: one that clones items via JSON
// round-trip on every write, another that stores pre-serialized
// strings"), this implementation picks the JSON-round-trip style: every
// stored row is kept as a []byte and every read/write goes through
// json.Marshal/Unmarshal, so a caller mutating a *T they got back from
// ReadItem/SaveItem can never reach into the store's own state.
//
// Concurrency follows spec §5: a single sync.RWMutex, held exclusively by
// SaveItem/SaveBatch (writers) and for reading by ReadItem and Query
// (readers); Query copies the matching rows under the lock, so its
// cursor's Next takes no lock.
package memstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/LerianStudio/itemcore/pkg/expr"
	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/mmodel"
	"github.com/LerianStudio/itemcore/pkg/store"
)

type row struct {
	data []byte // json-encoded T
}

// Store is an in-memory store.Adapter[T] for one concrete item type T,
// holding every partition's rows and events in one process's memory.
type Store[T any] struct {
	mu sync.RWMutex

	items  map[string]map[string]row // partitionKey -> id -> row
	events map[string][]mmodel.ItemEvent

	base      func(item *T) *mmodel.BaseItem
	accessors map[string]func(item *T) any
}

// New builds an empty Store. accessors maps each concrete field name
// referenced by a rewritten query (spec §4.5) to a function reading
// that field off *T, so Query can evaluate predicates/ordering without
// reflection (spec §9's explicit-registration philosophy extended to
// the adapter's own query evaluator).
func New[T any](base func(item *T) *mmodel.BaseItem, accessors map[string]func(item *T) any) *Store[T] {
	return &Store[T]{
		items:     make(map[string]map[string]row),
		events:    make(map[string][]mmodel.ItemEvent),
		base:      base,
		accessors: accessors,
	}
}

var _ store.Adapter[struct{}] = (*Store[struct{}])(nil)

func (s *Store[T]) decode(r row) (*T, error) {
	item := new(T)
	if err := json.Unmarshal(r.data, item); err != nil {
		return nil, itemerrors.Internal(err)
	}

	return item, nil
}

func (s *Store[T]) encode(item *T) (row, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return row{}, itemerrors.Internal(err)
	}

	return row{data: data}, nil
}

// ReadItem returns the live item for (id, partitionKey), or (nil, nil)
// if it does not exist or is soft-deleted - a tombstoned row is retained
// internally (spec §8 property 3) but never surfaced by ReadItem.
func (s *Store[T]) ReadItem(_ context.Context, id, partitionKey string) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.readLiveLocked(id, partitionKey)
}

func (s *Store[T]) readLiveLocked(id, partitionKey string) (*T, error) {
	partition, ok := s.items[partitionKey]
	if !ok {
		return nil, nil
	}

	r, ok := partition[id]
	if !ok {
		return nil, nil
	}

	item, err := s.decode(r)
	if err != nil {
		return nil, err
	}

	base := s.base(item)
	if !base.IsLive() {
		return nil, nil
	}

	return item, nil
}
