package memstore

import "github.com/LerianStudio/itemcore/pkg/mmodel"

// Events returns every ItemEvent committed for partitionKey, in commit
// order. Exposed for tests asserting spec §8 property 4 (exactly one
// event per mutation) without needing a separate event-store adapter.
func (s *Store[T]) Events(partitionKey string) []mmodel.ItemEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]mmodel.ItemEvent, len(s.events[partitionKey]))
	copy(out, s.events[partitionKey])

	return out
}

// RawRead returns the row at (id, partitionKey) regardless of its
// IsDeleted state, bypassing the live-only filter ReadItem applies.
// Exposed for tests asserting spec §8 property 3's tombstone retention.
func (s *Store[T]) RawRead(id, partitionKey string) (*T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	partition, ok := s.items[partitionKey]
	if !ok {
		return nil, false, nil
	}

	r, ok := partition[id]
	if !ok {
		return nil, false, nil
	}

	item, err := s.decode(r)
	if err != nil {
		return nil, false, err
	}

	return item, true, nil
}
