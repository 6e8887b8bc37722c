// Package ratelimit implements sliding-window per-user rate limiting
// for inbound collaboration messages.
//
// Each user accumulates a vector of recent event timestamps. A call is
// allowed when the user is under both the per-second and per-window
// limits; allowed calls record their timestamp. Old timestamps, and
// users who have gone quiet for a full window, are swept during
// amortized cleanup rather than on every call.
package ratelimit

import (
	"sync"
	"time"
)

// Defaults applied by New when the corresponding option is zero.
const (
	DefaultMaxPerSecond    = 100
	DefaultMaxPerMinute    = 1000
	DefaultWindow          = 60 * time.Second
	DefaultCleanupInterval = 10 * time.Second
)

// Options are used to configure a Limiter.
type Options struct {
	// MaxPerSecond is the number of events allowed within any rolling
	// one-second span. Defaults to 100.
	MaxPerSecond int

	// MaxPerMinute is the number of events allowed within the window.
	// Defaults to 1000.
	MaxPerMinute int

	// Window is the span covered by MaxPerMinute. Defaults to 60s.
	Window time.Duration
}

// Limiter tracks per-user sliding windows. Safe for concurrent use.
type Limiter struct {
	mu              sync.Mutex
	maxPerSecond    int
	maxPerMinute    int
	window          time.Duration
	cleanupInterval time.Duration
	lastCleanup     time.Time
	users           map[string][]time.Time
	now             func() time.Time
}

// New returns a Limiter configured by opts, with defaults applied for
// zero values.
func New(opts Options) *Limiter {
	if opts.MaxPerSecond <= 0 {
		opts.MaxPerSecond = DefaultMaxPerSecond
	}
	if opts.MaxPerMinute <= 0 {
		opts.MaxPerMinute = DefaultMaxPerMinute
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	return &Limiter{
		maxPerSecond:    opts.MaxPerSecond,
		maxPerMinute:    opts.MaxPerMinute,
		window:          opts.Window,
		cleanupInterval: DefaultCleanupInterval,
		users:           make(map[string][]time.Time),
		now:             time.Now,
	}
}

// Allow reports whether userID may perform another event now, recording
// the event when it does.
func (l *Limiter) Allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.maybeCleanup(now)

	stamps, ok := l.users[userID]
	if !ok {
		stamps = nil
	}

	secondCutoff := now.Add(-time.Second)
	inSecond := 0
	for _, ts := range stamps {
		if ts.After(secondCutoff) {
			inSecond++
		}
	}
	if inSecond >= l.maxPerSecond {
		l.users[userID] = stamps
		return false
	}

	windowCutoff := now.Add(-l.window)
	inWindow := 0
	for _, ts := range stamps {
		if ts.After(windowCutoff) {
			inWindow++
		}
	}
	if inWindow >= l.maxPerMinute {
		l.users[userID] = stamps
		return false
	}

	l.users[userID] = append(stamps, now)
	return true
}

// CheckAndRecord wraps Allow, returning a *RateLimitError on denial.
func (l *Limiter) CheckAndRecord(userID string) error {
	if l.Allow(userID) {
		return nil
	}
	return &RateLimitError{
		UserID: userID,
		Window: l.window.String(),
		Limit:  l.maxPerMinute,
	}
}

// ClearUser drops all recorded events for userID.
func (l *Limiter) ClearUser(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.users, userID)
}

// ClearAll drops all recorded events for every user.
func (l *Limiter) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users = make(map[string][]time.Time)
}

// UserCount returns the number of users with tracked state.
func (l *Limiter) UserCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}

// maybeCleanup trims expired timestamps at most once per cleanup
// interval. Users whose newest timestamp fell out of the window are
// removed entirely so the map does not grow with user churn.
// Caller holds l.mu.
func (l *Limiter) maybeCleanup(now time.Time) {
	if now.Sub(l.lastCleanup) < l.cleanupInterval {
		return
	}
	l.lastCleanup = now
	cutoff := now.Add(-l.window)
	for userID, stamps := range l.users {
		kept := stamps[:0]
		for _, ts := range stamps {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(l.users, userID)
			continue
		}
		l.users[userID] = kept
	}
}
