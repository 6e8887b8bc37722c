package ratelimit

import (
	"errors"
	"testing"
	"time"

	"github.com/deepnoodle-ai/wonton/assert"
)

// fakeClock steps a limiter's notion of now deterministically.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestLimiter(opts Options) (*Limiter, *fakeClock) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	limiter := New(opts)
	limiter.now = clock.now
	return limiter, clock
}

func TestAllowUnderLimit(t *testing.T) {
	limiter, _ := newTestLimiter(Options{})
	for i := 0; i < 50; i++ {
		assert.True(t, limiter.Allow("u1"))
	}
}

func TestPerSecondLimit(t *testing.T) {
	limiter, clock := newTestLimiter(Options{MaxPerSecond: 100, MaxPerMinute: 1000})

	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow("u1"), "call %d should be allowed", i+1)
		clock.advance(time.Millisecond)
	}
	// The 101st call within the same second is denied
	assert.False(t, limiter.Allow("u1"))

	// Once the first events age past one second, calls flow again
	clock.advance(time.Second)
	assert.True(t, limiter.Allow("u1"))
}

func TestPerMinuteLimit(t *testing.T) {
	limiter, clock := newTestLimiter(Options{MaxPerSecond: 10, MaxPerMinute: 30, Window: time.Minute})

	// Spread events so the per-second limit never trips
	for i := 0; i < 30; i++ {
		assert.True(t, limiter.Allow("u1"))
		clock.advance(2 * time.Second)
	}
	assert.False(t, limiter.Allow("u1"))
}

func TestCheckAndRecord(t *testing.T) {
	limiter, _ := newTestLimiter(Options{MaxPerSecond: 2, MaxPerMinute: 2})

	assert.NoError(t, limiter.CheckAndRecord("u1"))
	assert.NoError(t, limiter.CheckAndRecord("u1"))

	err := limiter.CheckAndRecord("u1")
	assert.Error(t, err)
	assert.True(t, IsRateLimitedError(err))

	var rle *RateLimitError
	assert.True(t, errors.As(err, &rle))
	assert.Equal(t, "u1", rle.UserID)
}

func TestUsersAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(Options{MaxPerSecond: 1, MaxPerMinute: 1})

	assert.True(t, limiter.Allow("u1"))
	assert.False(t, limiter.Allow("u1"))
	assert.True(t, limiter.Allow("u2"))
}

func TestClearUser(t *testing.T) {
	limiter, _ := newTestLimiter(Options{MaxPerSecond: 1, MaxPerMinute: 1})

	assert.True(t, limiter.Allow("u1"))
	assert.False(t, limiter.Allow("u1"))

	limiter.ClearUser("u1")
	assert.True(t, limiter.Allow("u1"))
}

func TestClearAll(t *testing.T) {
	limiter, _ := newTestLimiter(Options{MaxPerSecond: 1, MaxPerMinute: 1})

	limiter.Allow("u1")
	limiter.Allow("u2")
	assert.Equal(t, 2, limiter.UserCount())

	limiter.ClearAll()
	assert.Equal(t, 0, limiter.UserCount())
	assert.True(t, limiter.Allow("u1"))
}

func TestCleanupSweepsIdleUsers(t *testing.T) {
	limiter, clock := newTestLimiter(Options{Window: time.Minute})

	limiter.Allow("idle")
	assert.Equal(t, 1, limiter.UserCount())

	// After a full window of silence the next cleanup drops the user
	clock.advance(2 * time.Minute)
	limiter.Allow("active")
	assert.Equal(t, 1, limiter.UserCount())
}

func TestCleanupIsAmortized(t *testing.T) {
	limiter, clock := newTestLimiter(Options{Window: time.Minute})

	limiter.Allow("u1")
	clock.advance(61 * time.Second)

	// Force a cleanup, then verify timestamps for u2 survive a cleanup
	// attempt made before the interval elapses again
	limiter.Allow("u2")
	clock.advance(time.Second)
	limiter.Allow("u2")
	assert.Equal(t, 1, limiter.UserCount())
}
