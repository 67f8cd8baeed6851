package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 500*time.Millisecond, cfg.PositionInterval)
	assert.Equal(t, 1000*time.Millisecond, cfg.VelocityInterval)
	assert.Equal(t, time.Duration(0), cfg.IdentificationInterval)
	assert.Equal(t, 5000*time.Millisecond, cfg.MetadataInterval)
}

func TestFirstUpdateAllowed(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	res := l.Submit("ABC123", Position, "p1", time.Now())
	assert.Equal(t, Allowed, res)
}

func TestSubsequentUpdateRateLimited(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	now := time.Now()
	l.Submit("ABC123", Position, "p1", now)
	res := l.Submit("ABC123", Position, "p2", now.Add(100*time.Millisecond))
	assert.Equal(t, RateLimited, res)
	assert.Equal(t, 1, l.PendingCount())
}

func TestZeroIntervalNeverLimits(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	now := time.Now()
	assert.Equal(t, Allowed, l.Submit("ABC123", Identification, "c1", now))
	assert.Equal(t, Allowed, l.Submit("ABC123", Identification, "c2", now))
}

func TestFlushReturnsNewestAfterInterval(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	now := time.Now()
	l.Submit("ABC123", Position, "p1", now)
	l.Submit("ABC123", Position, "p2", now.Add(100*time.Millisecond))
	l.Submit("ABC123", Position, "p3", now.Add(200*time.Millisecond))

	_, ok := l.Flush("ABC123", Position, now.Add(300*time.Millisecond))
	assert.False(t, ok)

	data, ok := l.Flush("ABC123", Position, now.Add(600*time.Millisecond))
	assert.True(t, ok)
	assert.Equal(t, "p3", data)
}

func TestSweepDrainsReadyUpdates(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	now := time.Now()
	l.Submit("AAA", Position, "a", now)
	l.Submit("AAA", Position, "a2", now.Add(10*time.Millisecond))
	l.Submit("BBB", Velocity, "b", now)
	l.Submit("BBB", Velocity, "b2", now.Add(10*time.Millisecond))

	drained := l.Sweep(now.Add(1100 * time.Millisecond))
	assert.Equal(t, "a2", drained["AAA"][Position])
	assert.Equal(t, "b2", drained["BBB"][Velocity])
	assert.Equal(t, 0, l.PendingCount())
}

func TestEvictClearsBookkeeping(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	now := time.Now()
	l.Submit("AAA", Position, "a", now)
	l.Submit("AAA", Position, "a2", now.Add(10*time.Millisecond))
	l.Evict("AAA")
	assert.Equal(t, 0, l.PendingCount())
	assert.Equal(t, Allowed, l.Submit("AAA", Position, "a3", now.Add(20*time.Millisecond)))
}

func TestStatsEfficiency(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	now := time.Now()
	l.Submit("AAA", Position, "a", now)
	l.Submit("AAA", Position, "a2", now.Add(10*time.Millisecond))
	stats := l.StatsSnapshot()
	assert.Equal(t, int64(2), stats.TotalSubmitted)
	assert.InDelta(t, 0.5, stats.Efficiency(), 0.001)
}

// TestFlushAllDrainsRegardlessOfReadiness is a regression test: on
// shutdown the limiter must give up the newest pending update for every
// (id, kind) even though none of their intervals have elapsed yet, unlike
// Sweep which only drains ready ones.
func TestFlushAllDrainsRegardlessOfReadiness(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	now := time.Now()
	l.Submit("AAA", Position, "a", now)
	l.Submit("AAA", Position, "a2", now.Add(10*time.Millisecond))
	l.Submit("BBB", Velocity, "b", now)
	l.Submit("BBB", Velocity, "b2", now.Add(10*time.Millisecond))

	// Still well inside both intervals: Sweep would drain nothing.
	soon := now.Add(20 * time.Millisecond)
	assert.Empty(t, l.Sweep(soon))

	drained := l.FlushAll()
	assert.Equal(t, "a2", drained["AAA"][Position])
	assert.Equal(t, "b2", drained["BBB"][Velocity])
	assert.Equal(t, 0, l.PendingCount())
}

func TestFlushAllEmptyWhenNothingPending(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	assert.Empty(t, l.FlushAll())
}
