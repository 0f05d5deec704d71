package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClientGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)
	defer c.Close()

	_, err := c.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrCacheMiss))

	require.NoError(t, c.Set(ctx, "rec:category:Soap", []byte(`{"category":"Soap"}`), time.Minute))
	got, err := c.Get(ctx, "rec:category:Soap")
	require.NoError(t, err)
	assert.Equal(t, `{"category":"Soap"}`, string(got))

	require.NoError(t, c.Delete(ctx, "rec:category:Soap"))
	_, err = c.Get(ctx, "rec:category:Soap")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClientExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)
	defer c.Close()

	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	now = now.Add(2 * time.Minute)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClientDeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10)
	defer c.Close()

	for _, k := range []string{Key("rec", "category", "Soap"), Key("rec", "list", "0", "10"), "other"} {
		require.NoError(t, c.Set(ctx, k, []byte("x"), time.Minute))
	}
	require.NoError(t, c.DeleteByPrefix(ctx, "rec:"))
	_, err := c.Get(ctx, Key("rec", "category", "Soap"))
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, Key("rec", "list", "0", "10"))
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = c.Get(ctx, "other")
	assert.NoError(t, err)
}

func TestMemoryClientEvictsAtCapacity(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(2)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "long", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "new", []byte("3"), time.Hour))

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss, "earliest expiry is evicted first")
	for _, k := range []string{"long", "new"} {
		_, err = c.Get(ctx, k)
		assert.NoError(t, err, k)
	}
}

func TestNewDrivers(t *testing.T) {
	c, err := New(Config{Driver: "none"})
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	c, err = New(Config{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryClient{}, c)
	require.NoError(t, c.Close())

	_, err = New(Config{Driver: "memcached"})
	assert.Error(t, err)
}
