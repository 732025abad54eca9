// Package cache implements the snapshot cache port on top of an
// in-process TTL store. In production, this could be backed by Redis.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/praxisfm/finengine/internal/domain"

	gocache "github.com/patrickmn/go-cache"
)

// Snapshot is a thread-safe TTL cache for computed graph responses.
// Entries expire after the configured TTL; a janitor sweeps expired
// entries in the background.
type Snapshot struct {
	store *gocache.Cache
}

// NewSnapshot creates a snapshot cache with the given TTL. The TTL
// should stay in the single-digit-minute range: ledger data changes
// during the business day.
func NewSnapshot(ttl time.Duration) *Snapshot {
	return &Snapshot{
		store: gocache.New(ttl, 2*ttl),
	}
}

// Get retrieves a snapshot. The second return is false when the key is
// absent or expired.
func (c *Snapshot) Get(_ context.Context, key string) (*domain.GraphResponse, bool, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false, nil
	}
	resp, ok := v.(*domain.GraphResponse)
	if !ok {
		return nil, false, nil
	}
	return resp, true, nil
}

// Set stores a snapshot with the configured TTL. Overwriting an
// equivalent value is harmless; writes are idempotent.
func (c *Snapshot) Set(_ context.Context, key string, value *domain.GraphResponse) error {
	c.store.SetDefault(key, value)
	return nil
}

// InvalidateEntity evicts every snapshot belonging to the entity.
// Keys follow the facade's "graph:<entityKey>:" prefix convention.
func (c *Snapshot) InvalidateEntity(_ context.Context, entityKey string) error {
	prefix := "graph:" + entityKey + ":"
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
		}
	}
	return nil
}
