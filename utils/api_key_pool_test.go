package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAPIKeyPoolEmpty(t *testing.T) {
	pool := NewAPIKeyPool(nil, time.Minute)
	assert.Nil(t, pool)

	_, err := pool.Acquire()
	assert.ErrorIs(t, err, ErrNoKeys)
	assert.Equal(t, 0, pool.Size())
}

func TestAcquireSpreadsUsage(t *testing.T) {
	pool := NewAPIKeyPool([]string{"a", "b", "c"}, time.Minute)

	seen := map[string]int{}
	for i := 0; i < 9; i++ {
		key, err := pool.Acquire()
		require.NoError(t, err)
		seen[key]++
	}

	assert.Equal(t, map[string]int{"a": 3, "b": 3, "c": 3}, seen)
}

func TestReleaseFailedCoolsDown(t *testing.T) {
	now := time.Unix(1000, 0)
	pool := NewAPIKeyPool([]string{"a", "b"}, time.Minute)
	pool.now = func() time.Time { return now }

	pool.Release("a", true)
	for i := 0; i < 4; i++ {
		key, err := pool.Acquire()
		require.NoError(t, err)
		assert.Equal(t, "b", key)
	}

	now = now.Add(2 * time.Minute)
	stats := pool.Stats()
	assert.Equal(t, 2, stats["available_keys"])
}

func TestReleaseKeepsLastKey(t *testing.T) {
	pool := NewAPIKeyPool([]string{"only"}, time.Minute)

	pool.Release("only", true)
	key, err := pool.Acquire()
	require.NoError(t, err)
	assert.Equal(t, "only", key)
}

func TestStatsHidesKeys(t *testing.T) {
	pool := NewAPIKeyPool([]string{"secret"}, 0)
	_, _ = pool.Acquire()

	stats := pool.Stats()
	assert.Equal(t, 1, stats["total_keys"])
	assert.Equal(t, 1, stats["requests"])
	for _, v := range stats {
		assert.NotEqual(t, "secret", v)
	}
}
