package capacity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownKeyIsZero(t *testing.T) {
	c := NewCounter(0)
	assert.Zero(t, c.Size("missing"))
	assert.True(t, c.CanIncrement("missing"))
}

func TestTracksMultipleKeys(t *testing.T) {
	c := NewCounter(0)
	require.NoError(t, c.Inc("key1"))
	require.NoError(t, c.Inc("key1"))
	require.NoError(t, c.Inc("key2"))
	require.NoError(t, c.Add("key3", 5))

	assert.Equal(t, map[string]int{"key1": 2, "key2": 1, "key3": 5}, c.Snapshot())
}

func TestLimitWithInc(t *testing.T) {
	c := NewCounter(6)
	require.NoError(t, c.Add("key", 6))

	err := c.Inc("key")
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.EqualError(t, err, "capacity exceeded: key will be larger than 6")
	assert.False(t, c.CanIncrement("key"))
	assert.Zero(t, c.Spare("key"))
}

func TestLimitWithAddLeavesTallyUnchanged(t *testing.T) {
	c := NewCounter(5)
	require.NoError(t, c.Inc("key"))

	require.ErrorIs(t, c.Add("key", 5), ErrCapacityExceeded)
	assert.Equal(t, 1, c.Size("key"))
	assert.Equal(t, 4, c.Spare("key"))
}

func TestLimitIsPerKey(t *testing.T) {
	c := NewCounter(5)
	require.NoError(t, c.Add("key1", 5))
	require.NoError(t, c.Add("key2", 5))
	assert.Equal(t, 5, c.Size("key1"))
	assert.Equal(t, 5, c.Size("key2"))
}

func TestNegativeAddRejected(t *testing.T) {
	c := NewCounter(5)
	assert.Error(t, c.Add("key", -1))
}
