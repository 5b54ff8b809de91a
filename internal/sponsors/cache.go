package sponsors

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/DeafMist/bills-enricher/internal/models"
)

// FetchFunc loads one legislator from the remote API.
type FetchFunc func(ctx context.Context, legID string) (*models.Legislator, error)

// Cache holds the sponsor details resolved during one run. Entries are never
// evicted; create a new Cache per run.
type Cache struct {
	mu    sync.RWMutex
	items map[string]models.SponsorDetail

	fetch  FetchFunc
	flight singleflight.Group
}

// NewCache creates an empty cache backed by fetch for misses.
func NewCache(fetch FetchFunc) *Cache {
	return &Cache{
		items: make(map[string]models.SponsorDetail),
		fetch: fetch,
	}
}

// Get returns the cached detail for a legislator id.
func (c *Cache) Get(legID string) (models.SponsorDetail, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.items[legID]
	return d, ok
}

// Set records a detail; later writes for the same id overwrite earlier ones.
func (c *Cache) Set(legID string, d models.SponsorDetail) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[legID] = d
}

// Len returns the number of cached legislators.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Lookup fetches a legislator and caches its detail under the id the API
// reports (or legID when the record has none). Concurrent lookups for the
// same legID share a single remote request.
func (c *Cache) Lookup(ctx context.Context, legID string) (*models.Legislator, error) {
	v, err, _ := c.flight.Do(legID, func() (any, error) {
		leg, err := c.fetch(ctx, legID)
		if err != nil {
			return nil, err
		}
		key := leg.ID
		if key == "" {
			key = legID
		}
		c.Set(key, models.NewSponsorDetail(*leg))
		return leg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Legislator), nil
}
