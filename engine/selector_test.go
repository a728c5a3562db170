package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickEmpty(t *testing.T) {
	v, ok := Pick[string](nil)
	assert.False(t, ok)
	assert.Empty(t, v)

	v, ok = Pick([]string{})
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestPickSingleton(t *testing.T) {
	for range 20 {
		v, ok := Pick([]int{7})
		assert.True(t, ok)
		assert.Equal(t, 7, v)
	}
}

func TestPickMember(t *testing.T) {
	pool := []string{"a", "b", "c", "d"}
	seen := map[string]bool{}
	for range 200 {
		v, ok := Pick(pool)
		assert.True(t, ok)
		assert.Contains(t, pool, v)
		seen[v] = true
	}
	assert.Greater(t, len(seen), 1)
}
