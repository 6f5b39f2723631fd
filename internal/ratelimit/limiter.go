// Package ratelimit throttles repeated actions per key over fixed
// minute and hour windows.
package ratelimit

import (
	"sync"
	"time"
)

// Config contains rate limit values. Zero or negative disables a window.
type Config struct {
	PerMinute int
	PerHour   int
}

// Result describes the outcome of a limit check
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

type counter struct {
	minuteCount int
	hourCount   int
	minuteStart time.Time
	hourStart   time.Time
}

// Limiter keeps in-memory counters keyed by an arbitrary string,
// usually a client address
type Limiter struct {
	cfg      Config
	counters map[string]*counter
	mu       sync.Mutex
	now      func() time.Time
}

// New creates a limiter
func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:      cfg,
		counters: make(map[string]*counter),
		now:      time.Now,
	}
}

// Enabled returns true if at least one window has a limit
func (l *Limiter) Enabled() bool {
	return l.cfg.PerMinute > 0 || l.cfg.PerHour > 0
}

// Allow checks the limit for key and counts the attempt when allowed
func (l *Limiter) Allow(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c := l.counter(key, now)
	res := l.check(c, now)
	if res.Allowed {
		c.minuteCount++
		c.hourCount++
	}
	return res
}

// Check reports whether key is within its limits without counting
func (l *Limiter) Check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.counters[key]
	if !ok {
		return Result{Allowed: true}
	}
	reset(c, now)
	return l.check(c, now)
}

// Reset forgets every attempt recorded for key
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.counters, key)
	l.mu.Unlock()
}

// Prune drops counters whose windows have both expired and returns how
// many were removed
func (l *Limiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, c := range l.counters {
		if now.Sub(c.hourStart) >= time.Hour && now.Sub(c.minuteStart) >= time.Minute {
			delete(l.counters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}

func (l *Limiter) counter(key string, now time.Time) *counter {
	c, ok := l.counters[key]
	if !ok {
		c = &counter{minuteStart: now, hourStart: now}
		l.counters[key] = c
		return c
	}
	reset(c, now)
	return c
}

func (l *Limiter) check(c *counter, now time.Time) Result {
	if l.cfg.PerMinute > 0 && c.minuteCount >= l.cfg.PerMinute {
		return Result{RetryAfter: c.minuteStart.Add(time.Minute).Sub(now)}
	}
	if l.cfg.PerHour > 0 && c.hourCount >= l.cfg.PerHour {
		return Result{RetryAfter: c.hourStart.Add(time.Hour).Sub(now)}
	}
	return Result{Allowed: true}
}

func reset(c *counter, now time.Time) {
	if now.Sub(c.minuteStart) >= time.Minute {
		c.minuteCount = 0
		c.minuteStart = now
	}
	if now.Sub(c.hourStart) >= time.Hour {
		c.hourCount = 0
		c.hourStart = now
	}
}
