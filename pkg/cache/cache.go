package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LerianStudio/itemcore/pkg/mlog"
	"github.com/LerianStudio/itemcore/pkg/mmodel"
	"github.com/LerianStudio/itemcore/pkg/store"
)

// Store decorates a store.Adapter[T] with a redis read-through cache
// for ReadItem. SaveItem/SaveBatch/Query pass straight through to the
// wrapped adapter; every successful write invalidates the rows it
// touched so a following ReadItem re-populates from the backend rather
// than ever serving a write's own stale pre-image.
type Store[T any] struct {
	inner    store.Adapter[T]
	client   *redis.Client
	base     func(item *T) *mmodel.BaseItem
	typeName string
	ttl      time.Duration
	logger   mlog.Logger
}

// New wraps inner with a cache keyed under typeName, using ttl as the
// entry lifetime (belt-and-suspenders against a missed invalidation).
// base reads the embedded mmodel.BaseItem off *T, the same explicit
// accessor every other store package takes instead of reflecting on T.
func New[T any](inner store.Adapter[T], client *redis.Client, base func(item *T) *mmodel.BaseItem, typeName string, ttl time.Duration, logger mlog.Logger) *Store[T] {
	if logger == nil {
		logger = &mlog.NoneLogger{}
	}

	return &Store[T]{inner: inner, client: client, base: base, typeName: typeName, ttl: ttl, logger: logger}
}

var _ store.Adapter[struct{}] = (*Store[struct{}])(nil)

func (s *Store[T]) key(id, partitionKey string) string {
	return "itemcore:" + s.typeName + ":" + partitionKey + ":" + id
}

// ReadItem checks redis first; a cache miss or a decode failure falls
// through to the wrapped adapter and repopulates the cache.
func (s *Store[T]) ReadItem(ctx context.Context, id, partitionKey string) (*T, error) {
	key := s.key(id, partitionKey)

	raw, err := s.client.Get(ctx, key).Result()
	if err == nil {
		item := new(T)
		if jsonErr := json.Unmarshal([]byte(raw), item); jsonErr == nil {
			return item, nil
		}
	}

	item, err := s.inner.ReadItem(ctx, id, partitionKey)
	if err != nil {
		return nil, err
	}

	if item != nil {
		s.set(ctx, id, partitionKey, item)
	}

	return item, nil
}

func (s *Store[T]) set(ctx context.Context, id, partitionKey string, item *T) {
	data, err := json.Marshal(item)
	if err != nil {
		s.logger.Warnf("itemcore/cache: marshal failed for %s/%s: %v", partitionKey, id, err)
		return
	}

	if err := s.client.Set(ctx, s.key(id, partitionKey), data, s.ttl).Err(); err != nil {
		s.logger.Warnf("itemcore/cache: set failed for %s/%s: %v", partitionKey, id, err)
	}
}

func (s *Store[T]) invalidate(ctx context.Context, id, partitionKey string) {
	if err := s.client.Del(ctx, s.key(id, partitionKey)).Err(); err != nil {
		s.logger.Warnf("itemcore/cache: invalidate failed for %s/%s: %v", partitionKey, id, err)
	}
}

// SaveItem delegates to the wrapped adapter and invalidates the
// affected key regardless of the requested action - a DELETE still
// needs its ReadItem to start returning (nil, nil) immediately.
func (s *Store[T]) SaveItem(ctx context.Context, req store.SaveRequest[T]) (*T, error) {
	base := s.base(req.Item)

	stored, err := s.inner.SaveItem(ctx, req)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, base.ID, base.PartitionKey)

	return stored, nil
}

// SaveBatch delegates to the wrapped adapter and invalidates every row
// that came back OK.
func (s *Store[T]) SaveBatch(ctx context.Context, partitionKey string, reqs []store.SaveRequest[T]) ([]store.BatchRowResult[T], error) {
	results, err := s.inner.SaveBatch(ctx, partitionKey, reqs)
	if err != nil {
		return nil, err
	}

	for i, r := range results {
		if r.Status == store.StatusOK {
			base := s.base(reqs[i].Item)
			s.invalidate(ctx, base.ID, partitionKey)
		}
	}

	return results, nil
}

// Query passes straight through; queried rows are not cached since
// their membership in a result set can change as a side effect of
// writes this adapter has no visibility into.
func (s *Store[T]) Query(ctx context.Context, spec store.QuerySpec) (store.Cursor[T], error) {
	return s.inner.Query(ctx, spec)
}
