package store

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jmylchreest/listingopt/internal/domain"
	"github.com/jmylchreest/listingopt/internal/logger"
)

// CachedStore keeps recently read or written records in memory. Records are
// never updated after Create, so cached entries do not go stale.
type CachedStore struct {
	Store
	records *lru.Cache[int64, domain.Record]
}

// NewCached wraps s with an LRU of the given size.
func NewCached(s Store, size int) (*CachedStore, error) {
	c, err := lru.New[int64, domain.Record](size)
	if err != nil {
		return nil, fmt.Errorf("create record cache: %w", err)
	}
	return &CachedStore{Store: s, records: c}, nil
}

// Create stores rec and caches it under the new ID.
func (c *CachedStore) Create(ctx context.Context, rec domain.Record) (int64, error) {
	id, err := c.Store.Create(ctx, rec)
	if err != nil {
		return 0, err
	}
	// Re-read so the cached copy carries the stored timestamps.
	if stored, err := c.Store.Get(ctx, id); err == nil {
		c.records.Add(id, stored)
	}
	return id, nil
}

// Get serves from the cache when possible.
func (c *CachedStore) Get(ctx context.Context, id int64) (domain.Record, error) {
	if rec, ok := c.records.Get(id); ok {
		logger.DebugContext(ctx, "record cache hit", "id", id)
		return rec, nil
	}
	rec, err := c.Store.Get(ctx, id)
	if err != nil {
		return domain.Record{}, err
	}
	c.records.Add(id, rec)
	return rec, nil
}

// Len returns the number of cached records.
func (c *CachedStore) Len() int { return c.records.Len() }
