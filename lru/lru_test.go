package lru

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheEviction(t *testing.T) {
	cache := New[int](2)
	cache.Put("a", 1)
	cache.Put("b", 2)

	_, _ = cache.Get("a")
	cache.Put("c", 3)

	_, ok := cache.Get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	v, ok := cache.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	cache.Put("a", 10)
	v, _ = cache.Get("a")
	assert.Equal(t, 10, v)
	assert.Equal(t, 2, cache.Size())
}

func TestCacheClearAndMinimumSize(t *testing.T) {
	cache := New[string](0)
	cache.Put("a", "x")
	cache.Put("b", "y")
	assert.Equal(t, 1, cache.Size())

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
	_, ok := cache.Get("b")
	assert.False(t, ok)
}
