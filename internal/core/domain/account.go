package domain

import "time"

// Account is the persisted identity record used for authentication.
//
// Username and Email are unique and never rewritten after creation.
// FailedLogins and LastFailedLoginAt belong to the LockoutPolicy and must only be
// changed through it.
type Account struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	Role              Role       `json:"role"`
	Enabled           bool       `json:"enabled"`
	ManuallyLocked    bool       `json:"manually_locked"`
	FailedLogins      int        `json:"-"`
	LastFailedLoginAt *time.Time `json:"-"`
	Version           int64      `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.LastFailedLoginAt != nil {
		ts := *a.LastFailedLoginAt
		c.LastFailedLoginAt = &ts
	}
	return &c
}

// Principal builds the request-scoped authorization view of this account.
func (a *Account) Principal() Principal {
	return Principal{
		AccountID: a.ID,
		Username:  a.Username,
		Role:      a.Role,
	}
}
