package sheetsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/distributor_backend/config"
	"github.com/mmdatafocus/distributor_backend/models"
	"github.com/redis/go-redis/v9"
)

const (
	snapshotCacheKey   = "sheetsync:snapshot"
	snapshotRefreshKey = "sheetsync:snapshot:refresh"
)

// CachedSource keeps the last raw snapshot in Redis for ttl.
// A refresh lock makes concurrent misses across instances wait for one fetch.
type CachedSource struct {
	next   SnapshotSource
	rdb    *redis.Client
	locker *redislock.Client
	ttl    time.Duration
}

// NewCachedSource returns next unchanged in behaviour when rdb is nil.
func NewCachedSource(next SnapshotSource, rdb *redis.Client, locker *redislock.Client, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = 120 * time.Second
	}
	if locker == nil && rdb != nil {
		locker = redislock.New(rdb)
	}
	return &CachedSource{next: next, rdb: rdb, locker: locker, ttl: ttl}
}

func (c *CachedSource) Name() string { return c.next.Name() }

func (c *CachedSource) FetchSnapshot(ctx context.Context) (models.RawSnapshot, error) {
	if c.rdb == nil {
		return c.next.FetchSnapshot(ctx)
	}
	if snap, ok := c.get(ctx); ok {
		return snap, nil
	}

	lock, err := c.locker.Obtain(ctx, snapshotRefreshKey, 2*time.Minute, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(200*time.Millisecond), 150),
	})
	if err != nil {
		if !errors.Is(err, redislock.ErrNotObtained) {
			config.LogWarn(config.GetLogger(), "sheetsync", "FetchSnapshot", "obtain refresh lock", nil, err.Error())
		}
		return c.next.FetchSnapshot(ctx)
	}
	defer lock.Release(context.WithoutCancel(ctx))

	// another instance may have refreshed while we waited
	if snap, ok := c.get(ctx); ok {
		return snap, nil
	}
	snap, err := c.next.FetchSnapshot(ctx)
	if err != nil {
		return models.RawSnapshot{}, err
	}
	c.set(ctx, snap)
	return snap, nil
}

// Invalidate drops the cached snapshot.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, snapshotCacheKey).Err()
}

func (c *CachedSource) get(ctx context.Context) (models.RawSnapshot, bool) {
	b, err := c.rdb.Get(ctx, snapshotCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			config.LogWarn(config.GetLogger(), "sheetsync", "get", "read snapshot cache", nil, err.Error())
		}
		return models.RawSnapshot{}, false
	}
	snap, err := models.DecodeRawSnapshot(bytes.NewReader(b))
	if err != nil {
		config.LogWarn(config.GetLogger(), "sheetsync", "get", "decode snapshot cache", nil, err.Error())
		return models.RawSnapshot{}, false
	}
	return snap, true
}

func (c *CachedSource) set(ctx context.Context, snap models.RawSnapshot) {
	b, err := json.Marshal(snap)
	if err == nil {
		err = c.rdb.Set(ctx, snapshotCacheKey, b, c.ttl).Err()
	}
	if err != nil {
		config.LogWarn(config.GetLogger(), "sheetsync", "set", "write snapshot cache", nil, err.Error())
	}
}
