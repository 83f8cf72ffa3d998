// Package cache provides the optional current-place accelerator.
//
// The cache is best-effort by contract: its methods cannot fail, a miss is a
// normal answer, and callers always fall back to the authoritative open-visit
// query. Losing the whole cache loses nothing but latency.
package cache

import (
	"time"

	"github.com/google/uuid"
	"github.com/maypok86/otter/v2"
)

// Entry is the cached "where is this owner right now" answer.
type Entry struct {
	PlaceID   uuid.UUID
	PlaceName string
}

// CurrentPlace is an in-process TTL cache keyed by owner id.
type CurrentPlace struct {
	cache *otter.Cache[string, Entry]
}

// DefaultTTL is how long a cached current-place entry stays valid.
const DefaultTTL = 24 * time.Hour

// NewCurrentPlace builds a CurrentPlace cache with the given entry TTL.
func NewCurrentPlace(ttl time.Duration) *CurrentPlace {
	c := otter.Must(&otter.Options[string, Entry]{
		MaximumSize:      10_000,
		ExpiryCalculator: otter.ExpiryWriting[string, Entry](ttl),
	})
	return &CurrentPlace{cache: c}
}

// Get returns the cached entry for an owner, if any.
func (c *CurrentPlace) Get(ownerID string) (Entry, bool) {
	return c.cache.GetIfPresent(ownerID)
}

// Set records the owner's current place. A zero placeID clears the entry
// (the owner is not anywhere known).
func (c *CurrentPlace) Set(ownerID string, placeID uuid.UUID, placeName string) {
	if placeID == (uuid.UUID{}) {
		c.cache.Invalidate(ownerID)
		return
	}
	c.cache.Set(ownerID, Entry{PlaceID: placeID, PlaceName: placeName})
}

// Clear removes the owner's entry.
func (c *CurrentPlace) Clear(ownerID string) {
	c.cache.Invalidate(ownerID)
}
