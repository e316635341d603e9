package domain

import "time"

const (
	DefaultMaxFailedLogins = 5
	DefaultLockoutWindow   = 30 * time.Minute
)

// LockoutPolicy derives the lock state of an account from its stored failure
// counter and last-failure timestamp. The two fields are always read together.
type LockoutPolicy struct {
	MaxFailures int
	Window      time.Duration
}

// DefaultLockoutPolicy locks after 5 consecutive failures for 30 minutes.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxFailures: DefaultMaxFailedLogins, Window: DefaultLockoutWindow}
}

func (p LockoutPolicy) normalized() LockoutPolicy {
	if p.MaxFailures <= 0 {
		p.MaxFailures = DefaultMaxFailedLogins
	}
	if p.Window <= 0 {
		p.Window = DefaultLockoutWindow
	}
	return p
}

// IsLocked reports whether a is locked at now.
//
// When the failure threshold was reached but the window has elapsed, the counter
// and timestamp are cleared on a and reset is true; the caller must persist a.
// Applying the reset again is a no-op. A counter at or above the threshold with no
// timestamp is treated as unlocked and left untouched.
func (p LockoutPolicy) IsLocked(a *Account, now time.Time) (locked, reset bool) {
	p = p.normalized()

	if a.ManuallyLocked {
		return true, false
	}
	if a.FailedLogins < p.MaxFailures || a.LastFailedLoginAt == nil {
		return false, false
	}
	if now.Before(a.LastFailedLoginAt.Add(p.Window)) {
		return true, false
	}

	a.FailedLogins = 0
	a.LastFailedLoginAt = nil
	return false, true
}

// LockedUntil returns the instant the automatic lock lifts, if one is active.
func (p LockoutPolicy) LockedUntil(a *Account, now time.Time) (time.Time, bool) {
	p = p.normalized()
	if a.FailedLogins < p.MaxFailures || a.LastFailedLoginAt == nil {
		return time.Time{}, false
	}
	until := a.LastFailedLoginAt.Add(p.Window)
	if !now.Before(until) {
		return time.Time{}, false
	}
	return until, true
}

// RecordFailure increments the counter and stamps the failure at now. Stale
// counters are only cleared by IsLocked once they reach the threshold.
func (p LockoutPolicy) RecordFailure(a *Account, now time.Time) {
	a.FailedLogins++
	ts := now
	a.LastFailedLoginAt = &ts
}

// RecordSuccess clears the failure state after a successful credential check.
func (p LockoutPolicy) RecordSuccess(a *Account) {
	a.FailedLogins = 0
	a.LastFailedLoginAt = nil
}

// Reached reports whether the counter has just hit the lock threshold.
func (p LockoutPolicy) Reached(a *Account) bool {
	p = p.normalized()
	return a.FailedLogins == p.MaxFailures
}
