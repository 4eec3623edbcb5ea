package freeze

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_StartsUnfrozen(t *testing.T) {
	c := NewClock()

	assert.False(t, c.IsFrozen())
	_, frozen := c.Remaining()
	assert.False(t, frozen)
}

func TestClock_FreezeFor(t *testing.T) {
	c := NewClock()

	d := c.FreezeFor(time.Minute)
	assert.Equal(t, time.Minute, d)
	assert.True(t, c.IsFrozen())

	remaining, frozen := c.Remaining()
	assert.True(t, frozen)
	assert.Greater(t, remaining, 50*time.Second)
	assert.LessOrEqual(t, remaining, time.Minute)
}

func TestClock_FreezesDoNotStack(t *testing.T) {
	c := NewClock()

	c.FreezeFor(time.Second)
	got := c.FreezeFor(time.Hour)

	// The second freeze is a no-op reporting the first one's remainder.
	assert.LessOrEqual(t, got, time.Second)
	remaining, frozen := c.Remaining()
	assert.True(t, frozen)
	assert.LessOrEqual(t, remaining, time.Second)
}

func TestClock_LazyExpiry(t *testing.T) {
	c := NewClock()

	c.FreezeFor(30 * time.Millisecond)
	assert.True(t, c.IsFrozen())

	time.Sleep(50 * time.Millisecond)
	assert.False(t, c.IsFrozen())

	// The deadline only goes away logically until someone clears it.
	assert.True(t, c.ClearExpired())
	assert.False(t, c.ClearExpired())
}

func TestClock_Clear(t *testing.T) {
	c := NewClock()

	c.FreezeFor(time.Hour)
	c.Clear()

	assert.False(t, c.IsFrozen())
	assert.False(t, c.ClearExpired())
}

func TestClock_ClearExpiredLeavesRunningFreeze(t *testing.T) {
	c := NewClock()

	c.FreezeFor(time.Hour)
	assert.False(t, c.ClearExpired())
	assert.True(t, c.IsFrozen())
}
