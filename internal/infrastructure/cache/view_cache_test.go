package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/plantops/workdesk/pkg/utils"
)

func TestViewCache_SetGetInvalidate(t *testing.T) {
	c := NewViewCache(time.Minute, time.Minute, utils.NewTestLogger())

	c.Set("deviations", "deviations:list:all", []string{"a", "b"})
	c.Set("deviations", "deviations:counts", map[string]int{"draft": 2})
	c.Set("overtime-orders", "overtime:list:all", []string{"x"})

	v, ok := c.Get("deviations:list:all")
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, v)

	c.Invalidate("deviations")

	_, ok = c.Get("deviations:list:all")
	assert.False(t, ok)
	_, ok = c.Get("deviations:counts")
	assert.False(t, ok)

	_, ok = c.Get("overtime:list:all")
	assert.True(t, ok, "other tags must survive")
}

func TestViewCache_InvalidateUnknownTagIsNoop(t *testing.T) {
	c := NewViewCache(time.Minute, time.Minute, utils.NewTestLogger())
	c.Set("failures", "failures:counts", 3)

	c.Invalidate("it-inventory")

	_, ok := c.Get("failures:counts")
	assert.True(t, ok)
}

func TestViewCache_TTLExpiry(t *testing.T) {
	c := NewViewCache(20*time.Millisecond, time.Minute, utils.NewTestLogger())
	c.Set("failures", "failures:list", 1)

	time.Sleep(50 * time.Millisecond)

	_, ok := c.Get("failures:list")
	assert.False(t, ok)
}

func TestViewCache_ExpiredKeysLeaveTheTagIndex(t *testing.T) {
	c := NewViewCache(20*time.Millisecond, 10*time.Millisecond, utils.NewTestLogger())
	c.Set("failures", "failures:list", 1)
	c.Set("failures", "failures:counts", 2)

	// Let the janitor evict both entries
	time.Sleep(100 * time.Millisecond)

	c.mu.Lock()
	_, ok := c.tags["failures"]
	c.mu.Unlock()
	assert.False(t, ok, "evicted keys must be pruned from the index")
}

func TestViewCache_InvalidatePrunesTheIndex(t *testing.T) {
	c := NewViewCache(time.Minute, time.Minute, utils.NewTestLogger())
	c.Set("deviations", "deviations:counts", 1)

	c.Invalidate("deviations")

	c.mu.Lock()
	_, ok := c.tags["deviations"]
	c.mu.Unlock()
	assert.False(t, ok)
}
