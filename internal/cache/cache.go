package cache

import (
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/virtualmission/vlm/pkg/core"
)

// keyPrecision is the number of decimal places kept in a cache key (~1 cm at the equator).
const keyPrecision = 1e7

type latLonKey struct {
	lat, lon int64
}

func keyOf(p core.LatLon) latLonKey {
	return latLonKey{
		lat: int64(math.Round(p.Latitude * keyPrecision)),
		lon: int64(math.Round(p.Longitude * keyPrecision)),
	}
}

// ElevationCache remembers ground elevations by position so repeated conversions
// of the same area skip the lookup service. Safe for concurrent use.
type ElevationCache struct {
	lru    *lru.Cache[latLonKey, float64]
	hits   SafeCounter
	misses SafeCounter
}

// NewElevationCache creates a cache holding at most size positions.
func NewElevationCache(size int) (*ElevationCache, error) {
	c, err := lru.New[latLonKey, float64](size)
	if err != nil {
		return nil, err
	}
	return &ElevationCache{lru: c}, nil
}

// Get returns the cached elevation for p.
func (c *ElevationCache) Get(p core.LatLon) (float64, bool) {
	e, ok := c.lru.Get(keyOf(p))
	if ok {
		c.hits.Inc()
	} else {
		c.misses.Inc()
	}
	return e, ok
}

// Add stores the elevation for p.
func (c *ElevationCache) Add(p core.LatLon, elevation float64) {
	c.lru.Add(keyOf(p), elevation)
}

func (c *ElevationCache) Len() int {
	return c.lru.Len()
}

func (c *ElevationCache) Purge() {
	c.lru.Purge()
	c.hits.Set(0)
	c.misses.Set(0)
}

// Stats returns the hit and miss counts since creation or the last Purge.
func (c *ElevationCache) Stats() (hits, misses int) {
	return c.hits.Value(), c.misses.Value()
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
