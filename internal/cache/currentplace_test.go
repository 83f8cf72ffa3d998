package cache_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zekeapp/placetrack/internal/cache"
)

func TestCurrentPlace_SetGet(t *testing.T) {
	c := cache.NewCurrentPlace(time.Minute)
	id := uuid.New()

	c.Set("owner-1", id, "Home")

	entry, ok := c.Get("owner-1")
	require.True(t, ok)
	assert.Equal(t, id, entry.PlaceID)
	assert.Equal(t, "Home", entry.PlaceName)
}

func TestCurrentPlace_MissIsNormal(t *testing.T) {
	c := cache.NewCurrentPlace(time.Minute)

	_, ok := c.Get("never-seen")
	assert.False(t, ok)
}

func TestCurrentPlace_ZeroIDClears(t *testing.T) {
	c := cache.NewCurrentPlace(time.Minute)
	c.Set("owner-1", uuid.New(), "Work")

	c.Set("owner-1", uuid.UUID{}, "")

	_, ok := c.Get("owner-1")
	assert.False(t, ok)
}

func TestCurrentPlace_Clear(t *testing.T) {
	c := cache.NewCurrentPlace(time.Minute)
	c.Set("owner-1", uuid.New(), "Gym")

	c.Clear("owner-1")

	_, ok := c.Get("owner-1")
	assert.False(t, ok)
}

func TestCurrentPlace_OwnersAreIndependent(t *testing.T) {
	c := cache.NewCurrentPlace(time.Minute)
	c.Set("owner-1", uuid.New(), "Home")

	_, ok := c.Get("owner-2")
	assert.False(t, ok)
}
