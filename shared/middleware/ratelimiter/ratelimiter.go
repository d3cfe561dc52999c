// Package ratelimiter keeps one token bucket per caller key.
package ratelimiter

import (
	"sync"
	"time"
)

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// UserRateLimiter refills each key's bucket at rate tokens per second up to capacity.
// Buckets idle for longer than expiration are dropped by a background sweep.
type UserRateLimiter struct {
	rate       float64
	capacity   float64
	expiration time.Duration
	now        func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func New(rate, capacity float64, expiration time.Duration) *UserRateLimiter {
	rl := &UserRateLimiter{
		rate:       rate,
		capacity:   capacity,
		expiration: expiration,
		now:        time.Now,
		buckets:    make(map[string]*bucket),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Allow takes one token from key's bucket.
func (rl *UserRateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.lastSeen) > rl.expiration {
		b = &bucket{tokens: rl.capacity, lastSeen: now}
		rl.buckets[key] = b
	}

	b.tokens = min(rl.capacity, b.tokens+now.Sub(b.lastSeen).Seconds()*rl.rate)
	b.lastSeen = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Len is the number of tracked keys.
func (rl *UserRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

func (rl *UserRateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.expiration)
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

func (rl *UserRateLimiter) sweepLoop() {
	defer close(rl.done)

	interval := rl.expiration / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// Stop ends the background sweep. Allow keeps working afterwards.
func (rl *UserRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
	<-rl.done
}
