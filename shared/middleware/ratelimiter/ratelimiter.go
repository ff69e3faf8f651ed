// Package ratelimiter keeps one token bucket per key (an IP, an account,
// an email address). Buckets nobody touched for the idle period are dropped.
package ratelimiter

import (
	"sync"
	"time"
)

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	timer      *time.Timer
}

type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   float64
	idle    time.Duration
}

// New allows burst requests at once, refilled at rate per second.
func New(rate float64, burst float64, idle time.Duration) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		idle:    idle,
	}
}

// PerMinute is a limiter of n requests a minute with a burst of n.
func PerMinute(n int, idle time.Duration) *Limiter {
	return New(float64(n)/60, float64(n), idle)
}

func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).take(l.rate, l.burst)
}

func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}

// Stop cancels every pending expiry timer.
func (l *Limiter) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.buckets {
		b.mu.Lock()
		if b.timer != nil {
			b.timer.Stop()
		}
		b.mu.Unlock()
	}
}

func (l *Limiter) bucket(key string) *bucket {
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if !ok {
		l.mu.Lock()
		// double-check after taking the write lock
		if b, ok = l.buckets[key]; !ok {
			b = &bucket{tokens: l.burst, lastRefill: time.Now()}
			l.buckets[key] = b
		}
		l.mu.Unlock()
	}
	l.touch(key, b)
	return b
}

func (l *Limiter) touch(key string, b *bucket) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(l.idle, func() {
		l.mu.Lock()
		if l.buckets[key] == b {
			delete(l.buckets, key)
		}
		l.mu.Unlock()
	})
}

func (b *bucket) take(rate, burst float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastRefill).Seconds() * rate
	if b.tokens > burst {
		b.tokens = burst
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}
