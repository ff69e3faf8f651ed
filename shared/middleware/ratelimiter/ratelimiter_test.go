package ratelimiter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucket_Take(t *testing.T) {
	t.Run("allows within burst", func(t *testing.T) {
		b := &bucket{tokens: 10, lastRefill: time.Now()}
		assert.True(t, b.take(1, 10))
		assert.InDelta(t, 9.0, b.tokens, 0.01)
	})

	t.Run("denies when empty", func(t *testing.T) {
		b := &bucket{tokens: 0, lastRefill: time.Now()}
		assert.False(t, b.take(1, 10))
	})

	t.Run("refills over time", func(t *testing.T) {
		b := &bucket{tokens: 0, lastRefill: time.Now().Add(-2 * time.Second)}
		assert.True(t, b.take(1, 10))
	})

	t.Run("never exceeds burst", func(t *testing.T) {
		b := &bucket{tokens: 9, lastRefill: time.Now().Add(-time.Hour)}
		b.take(1, 10)
		assert.InDelta(t, 9.0, b.tokens, 0.01)
	})
}

func TestLimiter_Allow(t *testing.T) {
	l := New(1, 2, time.Minute)
	defer l.Stop()

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys have separate buckets")
	assert.Equal(t, 2, l.Len())
}

func TestLimiter_Concurrent(t *testing.T) {
	l := New(0.001, 10, time.Minute)
	defer l.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("same") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
	assert.Equal(t, 1, l.Len())
}

func TestLimiter_IdleBucketsExpire(t *testing.T) {
	l := New(1, 1, time.Millisecond)
	defer l.Stop()
	l.Allow("a")

	require.Eventually(t, func() bool { return l.Len() == 0 }, 200*time.Millisecond, 5*time.Millisecond)
}

func TestPerMinute(t *testing.T) {
	l := PerMinute(3, time.Minute)
	defer l.Stop()
	for range 3 {
		assert.True(t, l.Allow("k"))
	}
	assert.False(t, l.Allow("k"))
}
