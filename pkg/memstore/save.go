package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/LerianStudio/itemcore/pkg/itemerrors"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// SaveItem performs req atomically with respect to the (item, event)
// pair (spec §4.2.2). CREATE fails with Conflict if a row already
// occupies (id, partitionKey), live or tombstoned (the primary key is
// never reused). UPDATE/DELETE fail with NotFound if no row exists, or
// PreconditionFailed if req.Item.ETag does not match the stored row's
// current ETag.
func (s *Store[T]) SaveItem(_ context.Context, req store.SaveRequest[T]) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.base(req.Item)

	stored, err := s.applyLocked(req)
	if err != nil {
		return nil, err
	}

	s.events[base.PartitionKey] = append(s.events[base.PartitionKey], *req.Event)

	return stored, nil
}

// applyLocked validates req against the currently committed state and,
// if valid, commits it, returning the stored (re-encoded) item. Callers
// must hold s.mu for writing. It does not append the event; callers
// that want the event persisted do so themselves, which is what lets
// SaveBatch validate every row before committing any of them.
func (s *Store[T]) applyLocked(req store.SaveRequest[T]) (*T, error) {
	base := s.base(req.Item)

	partition, ok := s.items[base.PartitionKey]
	if !ok {
		partition = make(map[string]row)
		s.items[base.PartitionKey] = partition
	}

	existing, exists := partition[base.ID]

	switch req.Action {
	case store.ActionCreate:
		if exists {
			return nil, itemerrors.Conflict("an item with this id already exists in this partition")
		}
	case store.ActionUpdate, store.ActionDelete:
		if !exists {
			return nil, itemerrors.NotFound("item")
		}

		existingItem, err := s.decode(existing)
		if err != nil {
			return nil, err
		}

		existingBase := s.base(existingItem)
		if existingBase.ETag != base.ETag {
			return nil, itemerrors.PreconditionFailed("etag does not match the stored item")
		}
	}

	base.ETag = uuid.Must(uuid.NewV7()).String()

	r, err := s.encode(req.Item)
	if err != nil {
		return nil, err
	}

	partition[base.ID] = r

	return s.decode(r)
}
