package tallylib

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/dgraph-io/ristretto"
)

type cachedLookup struct {
	result  DatasetLookupResult
	noMatch bool
}

type cachingDataset struct {
	Dataset

	cache *ristretto.Cache
	ttl   time.Duration
}

// Lookup caches both matches and misses. Errors other than ErrNoMatch
// are not cached.
func (c *cachingDataset) Lookup(ctx context.Context, ip net.IP) (DatasetLookupResult, error) {
	cacheKey := ip.String()

	if value, ok := c.cache.Get(cacheKey); ok {
		cached := value.(cachedLookup)
		if cached.noMatch {
			return DatasetLookupResult{}, ErrNoMatch
		}

		return cached.result, nil
	}

	result, err := c.Dataset.Lookup(ctx, ip)

	switch {
	case err == nil:
		c.cache.SetWithTTL(cacheKey, cachedLookup{result: result}, 1, c.ttl)
	case errors.Is(err, ErrNoMatch):
		c.cache.SetWithTTL(cacheKey, cachedLookup{noMatch: true}, 1, c.ttl)
	}

	return result, err
}

func (c *cachingDataset) Close() error {
	c.cache.Close()

	return c.Dataset.Close()
}

// NewCachingDataset wraps a dataset with an in-memory cache of
// itemsCount entries. Zero ttl means entries never expire.
func NewCachingDataset(dataset Dataset, itemsCount uint, ttl time.Duration) (Dataset, error) {
	cacheConfig := &ristretto.Config{
		MaxCost:     int64(itemsCount),
		NumCounters: 10 * int64(itemsCount),
		Metrics:     false,
		BufferItems: 64,
	}

	cache, err := ristretto.NewCache(cacheConfig)
	if err != nil {
		return nil, fmt.Errorf("cannot create a cache: %w", err)
	}

	return &cachingDataset{
		Dataset: dataset,
		cache:   cache,
		ttl:     ttl,
	}, nil
}
