package axpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBoundedCacheGetSetRoundTrip(t *testing.T) {
	c := newBoundedCache(4, time.Second)
	c.set("a", 1)

	v, ok := c.get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.Equal(t, 1, c.len())
}

func TestBoundedCacheEvictsOldestAtCapacity(t *testing.T) {
	c := newBoundedCache(2, time.Second)
	c.set("a", 1)
	c.set("b", 2)
	c.set("c", 3) // evicts "a"

	_, ok := c.get("a")
	require.False(t, ok)
	_, ok = c.get("b")
	require.True(t, ok)
	_, ok = c.get("c")
	require.True(t, ok)
	require.Equal(t, 2, c.len())
}

func TestBoundedCacheGetTouchProtectsFromEviction(t *testing.T) {
	c := newBoundedCache(2, time.Second)
	c.set("a", 1)
	c.set("b", 2)
	c.get("a") // "b" is now the least recently used
	c.set("c", 3)

	_, ok := c.get("b")
	require.False(t, ok)
	_, ok = c.get("a")
	require.True(t, ok)
}

func TestBoundedCacheDelete(t *testing.T) {
	c := newBoundedCache(4, time.Second)
	c.set("a", 1)
	c.delete("a")

	_, ok := c.get("a")
	require.False(t, ok)
	require.Equal(t, 0, c.len())
}

func TestBoundedCacheExpiresAfterTTL(t *testing.T) {
	c := newBoundedCache(4, 10*time.Millisecond)
	c.set("a", 1)

	time.Sleep(50 * time.Millisecond)
	_, ok := c.get("a")
	require.False(t, ok, "entry should have expired past its TTL")
	require.Equal(t, 0, c.len(), "expiry should also drop the recency-list tracking entry")
}
