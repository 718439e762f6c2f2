package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"covid-risk-areas/metrics"
	"covid-risk-areas/models"
	"covid-risk-areas/utils"
)

// CacheKey is the Redis key holding the cached snapshot list.
const CacheKey = "covid#cache"

// GenerationKey counts snapshot writes. A cache fill only lands when no
// write happened between reading the store and setting CacheKey.
const GenerationKey = "covid#cache#gen"

// CachedStore serves Latest from a Redis copy of the newest snapshots and
// drops that copy on every snapshot write. Fix reads and writes go straight
// to the wrapped store. Redis failures fall back to the wrapped store.
type CachedStore struct {
	Store
	rdb    *redis.Client
	ttl    time.Duration
	depth  int
	logger *utils.Logger
}

// NewCachedStore wraps store with a Redis read cache holding up to depth
// snapshots for ttl. A nil client disables caching and returns store as is.
func NewCachedStore(store Store, rdb *redis.Client, ttl time.Duration, depth int, logger *utils.Logger) Store {
	if rdb == nil {
		return store
	}
	return &CachedStore{Store: store, rdb: rdb, ttl: ttl, depth: depth, logger: logger}
}

// OpenRedis returns a client for addr, or nil when addr is empty.
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

func (c *CachedStore) Latest(ctx context.Context, limit int) ([]*models.Snapshot, error) {
	if limit > c.depth || limit <= 0 {
		return c.Store.Latest(ctx, limit)
	}

	data, err := c.rdb.Get(ctx, CacheKey).Bytes()
	if err == nil {
		var cached []*models.Snapshot
		if err := json.Unmarshal(data, &cached); err == nil {
			metrics.CacheHitsTotal.Inc()
			if len(cached) > limit {
				cached = cached[len(cached)-limit:]
			}
			return cached, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("[cache] redis get failed: %v", err)
	}
	metrics.CacheMissesTotal.Inc()

	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("[cache] redis get generation failed: %v", err)
		return c.Store.Latest(ctx, limit)
	}

	fresh, err := c.Store.Latest(ctx, c.depth)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, gen, fresh)

	if len(fresh) > limit {
		fresh = fresh[len(fresh)-limit:]
	}
	return fresh, nil
}

func (c *CachedStore) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, GenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// fill stores list under CacheKey unless the generation moved past gen.
func (c *CachedStore) fill(ctx context.Context, gen int64, list []*models.Snapshot) {
	data, err := json.Marshal(list)
	if err != nil {
		return
	}

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, GenerationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			c.logger.Debug("[cache] store changed during read, skipping fill")
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, CacheKey, data, c.ttl)
			return nil
		})
		return err
	}, GenerationKey)
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		c.logger.Warn("[cache] redis set failed: %v", err)
	}
}

func (c *CachedStore) Save(ctx context.Context, s *models.Snapshot) error {
	defer c.invalidate(ctx)
	return c.Store.Save(ctx, s)
}

func (c *CachedStore) Delete(ctx context.Context, id string) error {
	defer c.invalidate(ctx)
	return c.Store.Delete(ctx, id)
}

func (c *CachedStore) MarkDownloaded(ctx context.Context, create int64) error {
	defer c.invalidate(ctx)
	return c.Store.MarkDownloaded(ctx, create)
}

func (c *CachedStore) Close() error {
	err := c.Store.Close()
	if cerr := c.rdb.Close(); err == nil {
		err = cerr
	}
	return err
}

func (c *CachedStore) invalidate(ctx context.Context) {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey)
		pipe.Del(ctx, CacheKey)
		return nil
	})
	if err != nil {
		c.logger.Warn("[cache] redis invalidate failed: %v", err)
	}
}

// Direct returns the store behind any cache layer, for reads that must see
// the latest writes.
func Direct(s Store) Store {
	if c, ok := s.(*CachedStore); ok {
		return c.Store
	}
	return s
}
