// Package ratelimit throttles repeated restoration attempts per identity.
package ratelimit

import (
	"sync"
	"time"
)

type entry struct {
	lastAttempt time.Time
	attempts    int
}

// Limiter enforces a minimum interval between admitted attempts for each
// key. It is safe for concurrent use. The key map has no eviction; expected
// identity cardinality is small for the life of a process.
type Limiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	entries     map[string]*entry
	now         func() time.Time
}

// New creates a limiter with the given minimum interval between attempts.
func New(minInterval time.Duration) *Limiter {
	return &Limiter{
		minInterval: minInterval,
		entries:     map[string]*entry{},
		now:         time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Allow reports whether an attempt for key may proceed now. A denied attempt
// is counted but does not push the window forward.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		l.entries[key] = &entry{lastAttempt: now, attempts: 1}
		return true
	}
	if now.Sub(e.lastAttempt) < l.minInterval {
		e.attempts++
		return false
	}
	e.lastAttempt = now
	e.attempts = 1
	return true
}

// Attempts returns how many attempts have been seen in the current window.
func (l *Limiter) Attempts(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[key]; ok {
		return e.attempts
	}
	return 0
}
