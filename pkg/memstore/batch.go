package memstore

import (
	"context"

	"github.com/LerianStudio/itemcore/pkg/store"
)

// SaveBatch executes every request in reqs as a single atomic unit
// (spec §4.2.3): it first checks every row against the currently
// committed state (plus the other rows in this same batch, so two
// creates sharing an id within one batch also conflict), and only
// commits anything if every row would succeed. If any row fails, every
// other row is reported as FailedDependency and nothing is written -
// "no partial commit is observable" (spec §4.2.3).
func (s *Store[T]) SaveBatch(_ context.Context, partitionKey string, reqs []store.SaveRequest[T]) ([]store.BatchRowResult[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	checks := make([]store.StatusKind, len(reqs))
	seenInBatch := make(map[string]bool, len(reqs))
	hasFailure := false

	partition := s.items[partitionKey]

	for i, req := range reqs {
		base := s.base(req.Item)

		if base.PartitionKey != partitionKey {
			checks[i] = store.StatusBadRequest
			hasFailure = true

			continue
		}

		_, existsStored := partition[base.ID]
		existsInBatch := seenInBatch[base.ID]
		exists := existsStored || existsInBatch

		switch req.Action {
		case store.ActionCreate:
			if exists {
				checks[i] = store.StatusConflict
				hasFailure = true

				continue
			}

			seenInBatch[base.ID] = true
		case store.ActionUpdate, store.ActionDelete:
			if !exists {
				checks[i] = store.StatusNotFound
				hasFailure = true

				continue
			}

			if existsStored && !existsInBatch {
				existingItem, err := s.decode(partition[base.ID])
				if err != nil {
					return nil, err
				}

				if s.base(existingItem).ETag != base.ETag {
					checks[i] = store.StatusPreconditionFailed
					hasFailure = true

					continue
				}
			}

			seenInBatch[base.ID] = true
		}

		checks[i] = store.StatusOK
	}

	results := make([]store.BatchRowResult[T], len(reqs))

	if hasFailure {
		for i, status := range checks {
			if status == store.StatusOK {
				results[i] = store.BatchRowResult[T]{Status: store.StatusFailedDependency}
			} else {
				results[i] = store.BatchRowResult[T]{Status: status}
			}
		}

		return results, nil
	}

	for i, req := range reqs {
		stored, err := s.applyLocked(req)
		if err != nil {
			return nil, err
		}

		results[i] = store.BatchRowResult[T]{Status: store.StatusOK, Item: stored}
	}

	for _, req := range reqs {
		s.events[partitionKey] = append(s.events[partitionKey], *req.Event)
	}

	return results, nil
}
