package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStateStore().(*memoryStateStore)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)

	now = now.Add(2 * time.Minute)
	val, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, val)

	taken, err := store.Take(ctx, "k")
	require.NoError(t, err)
	assert.False(t, taken, "expired entries cannot be taken")
}

func TestMemoryStateStoreSetNX(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()

	first, err := store.SetNX(ctx, "evt", []byte("1"), time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.SetNX(ctx, "evt", []byte("2"), time.Hour)
	require.NoError(t, err)
	assert.False(t, second)

	val, _ := store.Get(ctx, "evt")
	assert.Equal(t, []byte("1"), val)

	require.NoError(t, store.Delete(ctx, "evt"))
	again, err := store.SetNX(ctx, "evt", []byte("3"), time.Hour)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestMemoryStateStoreTake(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()

	taken, err := store.Take(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, taken)

	require.NoError(t, store.Set(ctx, "jti", []byte("u"), time.Hour))
	taken, err = store.Take(ctx, "jti")
	require.NoError(t, err)
	assert.True(t, taken)

	val, err := store.Get(ctx, "jti")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestMemoryStateStoreTakeConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()
	require.NoError(t, store.Set(ctx, "jti", []byte("u"), time.Hour))

	var (
		wg    sync.WaitGroup
		wins  atomic.Int32
		start = make(chan struct{})
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if taken, err := store.Take(ctx, "jti"); err == nil && taken {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
