package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

func failNTimes(p LockoutPolicy, a *Account, n int, start time.Time, step time.Duration) {
	for i := 0; i < n; i++ {
		p.RecordFailure(a, start.Add(time.Duration(i)*step))
	}
}

func TestLockoutPolicy_LocksAfterFiveFailuresWithinWindow(t *testing.T) {
	p := DefaultLockoutPolicy()

	for _, step := range []time.Duration{0, time.Second, time.Minute, 7 * time.Minute} {
		a := &Account{}
		failNTimes(p, a, 5, t0, step)
		last := t0.Add(4 * step)

		locked, reset := p.IsLocked(a, last)
		assert.True(t, locked, "step=%s", step)
		assert.False(t, reset)

		locked, _ = p.IsLocked(a, last.Add(p.Window-time.Second))
		assert.True(t, locked, "step=%s: still inside the window", step)
	}
}

func TestLockoutPolicy_FourFailuresDoNotLock(t *testing.T) {
	p := DefaultLockoutPolicy()
	a := &Account{}
	failNTimes(p, a, 4, t0, time.Second)

	locked, _ := p.IsLocked(a, t0.Add(5*time.Second))
	assert.False(t, locked)
	assert.Equal(t, 4, a.FailedLogins)
}

func TestLockoutPolicy_LazyResetAfterWindow(t *testing.T) {
	p := DefaultLockoutPolicy()
	a := &Account{}
	failNTimes(p, a, 5, t0, time.Minute)

	// 30 minutes after the first of the five failures the last one is still recent.
	locked, _ := p.IsLocked(a, t0.Add(30*time.Minute))
	assert.True(t, locked)

	after := t0.Add(4*time.Minute + p.Window)
	locked, reset := p.IsLocked(a, after)
	assert.False(t, locked)
	assert.True(t, reset)
	assert.Zero(t, a.FailedLogins)
	assert.Nil(t, a.LastFailedLoginAt)

	// Applying it again is a no-op.
	locked, reset = p.IsLocked(a, after)
	assert.False(t, locked)
	assert.False(t, reset)
	assert.Zero(t, a.FailedLogins)
}

func TestLockoutPolicy_IsLockedIsIdempotent(t *testing.T) {
	p := DefaultLockoutPolicy()
	for n := 0; n <= 7; n++ {
		a := &Account{}
		failNTimes(p, a, n, t0, time.Second)
		before := a.Clone()

		for i := 0; i < 3; i++ {
			p.IsLocked(a, t0.Add(time.Minute))
		}
		assert.Equal(t, before.FailedLogins, a.FailedLogins, "n=%d", n)
		assert.Equal(t, before.LastFailedLoginAt, a.LastFailedLoginAt, "n=%d", n)
	}
}

func TestLockoutPolicy_CounterWithoutTimestampIsUnlocked(t *testing.T) {
	p := DefaultLockoutPolicy()
	a := &Account{FailedLogins: 9}

	locked, reset := p.IsLocked(a, t0)
	assert.False(t, locked)
	assert.False(t, reset)
	assert.Equal(t, 9, a.FailedLogins, "counter is not touched")

	_, active := p.LockedUntil(a, t0)
	assert.False(t, active)
}

func TestLockoutPolicy_ManualLock(t *testing.T) {
	p := DefaultLockoutPolicy()
	a := &Account{ManuallyLocked: true}

	locked, reset := p.IsLocked(a, t0.Add(365*24*time.Hour))
	assert.True(t, locked)
	assert.False(t, reset)
}

func TestLockoutPolicy_RecordSuccessClears(t *testing.T) {
	p := DefaultLockoutPolicy()
	a := &Account{}
	failNTimes(p, a, 3, t0, time.Second)

	p.RecordSuccess(a)
	assert.Zero(t, a.FailedLogins)
	assert.Nil(t, a.LastFailedLoginAt)
}

func TestLockoutPolicy_FailureAfterLongGapStillCounts(t *testing.T) {
	p := DefaultLockoutPolicy()
	a := &Account{}
	failNTimes(p, a, 4, t0, 0)

	later := t0.Add(31 * time.Minute)
	locked, reset := p.IsLocked(a, later)
	assert.False(t, locked)
	assert.False(t, reset, "below the threshold nothing is reset")

	p.RecordFailure(a, later)
	assert.Equal(t, 5, a.FailedLogins)
	require.NotNil(t, a.LastFailedLoginAt)
	assert.Equal(t, later, *a.LastFailedLoginAt)

	locked, _ = p.IsLocked(a, later)
	assert.True(t, locked)
}

func TestLockoutPolicy_LockedUntilAndReached(t *testing.T) {
	p := DefaultLockoutPolicy()
	a := &Account{}
	failNTimes(p, a, 4, t0, 0)
	assert.False(t, p.Reached(a))

	p.RecordFailure(a, t0)
	assert.True(t, p.Reached(a))

	until, active := p.LockedUntil(a, t0.Add(time.Minute))
	assert.True(t, active)
	assert.Equal(t, t0.Add(p.Window), until)

	_, active = p.LockedUntil(a, t0.Add(p.Window))
	assert.False(t, active)
}

func TestLockoutPolicy_ZeroValueUsesDefaults(t *testing.T) {
	var p LockoutPolicy
	a := &Account{}
	failNTimes(p, a, DefaultMaxFailedLogins, t0, 0)

	locked, _ := p.IsLocked(a, t0.Add(DefaultLockoutWindow-time.Second))
	assert.True(t, locked)
	locked, _ = p.IsLocked(a, t0.Add(DefaultLockoutWindow))
	assert.False(t, locked)
}
