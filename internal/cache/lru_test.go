package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRU[string, int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Len())
}

func TestLRUExpires(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := NewLRU[string, int](4, time.Minute)
	c.now = func() time.Time { return now }
	c.Set("a", 1)

	now = now.Add(30 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestLRUOverwrite(t *testing.T) {
	c := NewLRU[int, string](0, 0)
	c.Set(1, "x")
	c.Set(1, "y")
	v, _ := c.Get(1)
	assert.Equal(t, "y", v)
	assert.Equal(t, 1, c.Len())
}

func TestLRUPurge(t *testing.T) {
	c := NewLRU[string, int](4, 0)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Purge()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
	c.Set("c", 3)
	assert.Equal(t, 1, c.Len())
}
