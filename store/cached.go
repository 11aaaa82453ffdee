package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultCacheTTL is how long a cached listing lives.
const DefaultCacheTTL = 5 * time.Minute

// OpenRedis parses a redis:// URL and checks the server answers.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// CacheClient is the subset of *redis.Client the listing cache uses.
type CacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// Cached keeps completeness listings in Redis. Listings are stored under a
// per-resource generation that every write increments, so a listing loaded
// before a write can never be served after it. Redis errors are logged and
// otherwise ignored: the wrapped repository stays the source of truth.
type Cached struct {
	Repository
	client CacheClient
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCached wraps next. A ttl <= 0 uses DefaultCacheTTL.
func NewCached(next Repository, client CacheClient, ttl time.Duration, log zerolog.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{Repository: next, client: client, ttl: ttl, log: log}
}

func generationKey(resourceID string) string {
	return "potstats:stats:" + resourceID + ":gen"
}

func listKey(resourceID string, gen int64) string {
	return fmt.Sprintf("potstats:stats:%s:%d", resourceID, gen)
}

// generation returns the current generation of resourceID; false means
// Redis could not be asked and the cache is bypassed.
func (c *Cached) generation(ctx context.Context, resourceID string) (int64, bool) {
	gen, err := c.client.Get(ctx, generationKey(resourceID)).Int64()
	switch {
	case err == nil:
		return gen, true
	case errors.Is(err, redis.Nil):
		return 0, true
	default:
		c.log.Debug().Err(err).Str("resource", resourceID).Msg("listing cache unavailable")
		return 0, false
	}
}

func (c *Cached) ListOrderedByCompleteness(ctx context.Context, resourceID string) ([]*Record, error) {
	gen, ok := c.generation(ctx, resourceID)
	if !ok {
		return c.Repository.ListOrderedByCompleteness(ctx, resourceID)
	}

	key := listKey(resourceID, gen)
	cached, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var recs []*Record
		if err := json.Unmarshal(cached, &recs); err == nil {
			return recs, nil
		}
		c.log.Warn().Str("key", key).Msg("discarding undecodable cached listing")
	} else if !errors.Is(err, redis.Nil) {
		c.log.Debug().Err(err).Str("key", key).Msg("listing cache unavailable")
	}

	recs, err := c.Repository.ListOrderedByCompleteness(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	// Stored under the generation read before loading: if a write landed
	// meanwhile, readers have moved on to the next generation.
	if b, err := json.Marshal(recs); err == nil {
		if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.log.Debug().Err(err).Str("key", key).Msg("listing not cached")
		}
	}
	return recs, nil
}

func (c *Cached) Create(ctx context.Context, rec *Record) error {
	if err := c.Repository.Create(ctx, rec); err != nil {
		return err
	}
	c.invalidate(ctx, rec.ResourceID)
	return nil
}

func (c *Cached) Save(ctx context.Context, rec *Record) error {
	if err := c.Repository.Save(ctx, rec); err != nil {
		return err
	}
	c.invalidate(ctx, rec.ResourceID)
	return nil
}

func (c *Cached) DeleteAllFor(ctx context.Context, resourceID string) error {
	if err := c.Repository.DeleteAllFor(ctx, resourceID); err != nil {
		return err
	}
	c.invalidate(ctx, resourceID)
	return nil
}

func (c *Cached) invalidate(ctx context.Context, resourceID string) {
	if err := c.client.Incr(ctx, generationKey(resourceID)).Err(); err != nil {
		c.log.Debug().Err(err).Str("resource", resourceID).Msg("listing cache not invalidated")
	}
}
