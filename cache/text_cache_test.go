package cache

import (
	"context"
	"fmt"
	"testing"

	"homereader/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTextCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryTextCache(2)
	require.NoError(t, err)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)

	c.Set(ctx, "a", "alpha")
	c.Set(ctx, "b", "beta")
	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "alpha", v)

	// "b" 最久未使用，被淘汰
	c.Set(ctx, "c", "gamma")
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestMemoryTextCache_DefaultSize(t *testing.T) {
	c, err := NewMemoryTextCache(0)
	require.NoError(t, err)
	for i := 0; i < 300; i++ {
		c.Set(context.Background(), fmt.Sprint(i), "x")
	}
	assert.Equal(t, 256, c.Len())
}

func TestNewTextCache(t *testing.T) {
	c, closeFn, err := NewTextCache(context.Background(), &config.Config{TextCache: "memory", TextCacheSize: 8})
	require.NoError(t, err)
	assert.IsType(t, &MemoryTextCache{}, c)
	assert.NoError(t, closeFn())

	_, _, err = NewTextCache(context.Background(), &config.Config{TextCache: "disk"})
	assert.Error(t, err)
}
