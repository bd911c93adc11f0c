// Package ratelimit implements a fixed-window request counter keyed by
// client IP. State is process-local by design: the service runs as a
// single instance and the limiter guards only brute-force pacing, not
// global quotas.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// ErrLimited is returned once a key exhausts its window budget.
var ErrLimited = errors.New("too many requests")

type window struct {
	start time.Time
	count int
}

type Limiter struct {
	mu      sync.Mutex
	entries map[string]*window

	max    int
	period time.Duration

	stop chan struct{}
	once sync.Once

	// now is swappable in tests.
	now func() time.Time
}

// New creates a limiter allowing max hits per period per key and
// starts the sweeper that evicts expired windows.
func New(max int, period time.Duration) *Limiter {
	l := &Limiter{
		entries: make(map[string]*window),
		max:     max,
		period:  period,
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	go l.sweep()
	return l
}

// Allow records one hit for the key and reports whether it is still
// within budget. The first hit of a window stamps the window start;
// a hit after the window elapsed resets it.
func (l *Limiter) Allow(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.entries[key]
	if !ok || now.Sub(w.start) >= l.period {
		l.entries[key] = &window{start: now, count: 1}
		return nil
	}

	w.count++
	if w.count > l.max {
		return ErrLimited
	}
	return nil
}

// Reset clears the counter for a key. Called after successful login so
// a legitimate user does not inherit the failures of an attacker
// sharing the window.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Close stops the background sweeper. Safe to call more than once.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, w := range l.entries {
				if now.Sub(w.start) >= l.period {
					delete(l.entries, key)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
