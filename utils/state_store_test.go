package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryReplayStoreLifecycle(t *testing.T) {
	s := NewMemoryReplayStore()
	ctx := context.Background()

	_, ok := s.Get(ctx, "k1")
	assert.False(t, ok)

	assert.True(t, s.Reserve(ctx, "k1", time.Minute))
	assert.False(t, s.Reserve(ctx, "k1", time.Minute), "second reserve must fail")

	b, ok := s.Get(ctx, "k1")
	assert.True(t, ok)
	assert.True(t, IsPending(b))

	s.Set(ctx, "k1", []byte(`{"id":1}`), time.Minute)
	b, ok = s.Get(ctx, "k1")
	assert.True(t, ok)
	assert.Equal(t, `{"id":1}`, string(b))

	s.Release(ctx, "k1")
	_, ok = s.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestMemoryReplayStoreExpires(t *testing.T) {
	s := NewMemoryReplayStore()
	now := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.Set(ctx, "k", []byte("v"), time.Minute)
	now = now.Add(2 * time.Minute)

	_, ok := s.Get(ctx, "k")
	assert.False(t, ok)
	assert.True(t, s.Reserve(ctx, "k", time.Minute))
}

func TestMemoryReplayStoreSweepsExpiredOnWrite(t *testing.T) {
	s := NewMemoryReplayStore()
	now := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	s.Set(ctx, "a", []byte("1"), time.Minute)
	s.Set(ctx, "b", []byte("2"), time.Minute)
	now = now.Add(30 * time.Second)
	s.Set(ctx, "c", []byte("3"), time.Hour)
	assert.Equal(t, 3, s.Len())

	// reads only touch the requested key
	now = now.Add(time.Minute)
	_, ok := s.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 2, s.Len())

	// the next write past the interval clears the rest
	s.Set(ctx, "d", []byte("4"), time.Hour)
	assert.Equal(t, 2, s.Len())
	_, ok = s.Get(ctx, "c")
	assert.True(t, ok)
}
