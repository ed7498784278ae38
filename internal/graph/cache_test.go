package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheValidByIndexVersion(t *testing.T) {
	c := NewCache()
	g := New()
	c.Store("proj", g, 3)

	assert.True(t, c.Valid("proj", 3))
	assert.False(t, c.Valid("missing-scope", 3))
}

func TestCacheValidIndexVersionMismatchAlwaysInvalidates(t *testing.T) {
	c := NewCache()
	c.ttl = 50 * time.Millisecond
	base := time.Now()
	c.now = func() time.Time { return base }

	g := New()
	c.Store("proj", g, 1)

	// Stale index version, still within TTL: version mismatch forces
	// expiry regardless.
	c.now = func() time.Time { return base.Add(10 * time.Millisecond) }
	assert.False(t, c.Valid("proj", 2))

	// Stale index version, past TTL too.
	c.now = func() time.Time { return base.Add(time.Second) }
	assert.False(t, c.Valid("proj", 2))
}

func TestCacheValidTTLExpiresEvenWithMatchingVersion(t *testing.T) {
	c := NewCache()
	c.ttl = 50 * time.Millisecond
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Store("proj", New(), 1)

	c.now = func() time.Time { return base.Add(10 * time.Millisecond) }
	assert.True(t, c.Valid("proj", 1))

	c.now = func() time.Time { return base.Add(time.Second) }
	assert.False(t, c.Valid("proj", 1))
}

func TestCacheInvalidateOnIndex(t *testing.T) {
	c := NewCache()
	c.Store("proj", New(), 1)
	c.InvalidateOnIndex("proj")

	_, ok := c.Get("proj")
	assert.False(t, ok)
}
