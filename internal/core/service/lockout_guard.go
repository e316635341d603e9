package service

import (
	"context"
	"errors"
	"time"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
	"github.com/fourseasons/crowdfunding-api/internal/core/ports"
)

// maxUpdateAttempts bounds the optimistic retry loop on account writes.
const maxUpdateAttempts = 3

// LockoutGuard evaluates the lockout policy against stored accounts and persists
// the lazy reset when the lock window has elapsed.
type LockoutGuard struct {
	repo   ports.AccountRepository
	policy domain.LockoutPolicy
}

func NewLockoutGuard(repo ports.AccountRepository, policy domain.LockoutPolicy) *LockoutGuard {
	return &LockoutGuard{repo: repo, policy: policy}
}

// Policy returns the policy the guard enforces.
func (g *LockoutGuard) Policy() domain.LockoutPolicy {
	return g.policy
}

// Check reports whether account is locked at now. The returned account reflects
// what is stored after the check, including a persisted lazy reset.
func (g *LockoutGuard) Check(ctx context.Context, account *domain.Account, now time.Time) (*domain.Account, bool, error) {
	var locked bool
	stored, err := updateAccount(ctx, g.repo, account, func(a *domain.Account) bool {
		var reset bool
		locked, reset = g.policy.IsLocked(a, now)
		return reset
	})
	if err != nil {
		return nil, false, err
	}
	return stored, locked, nil
}

// updateAccount applies mutate to a copy of account and writes it when mutate
// reports a change. A lost optimistic race reloads the account and applies mutate
// again, up to maxUpdateAttempts writes.
func updateAccount(
	ctx context.Context,
	repo ports.AccountRepository,
	account *domain.Account,
	mutate func(*domain.Account) bool,
) (*domain.Account, error) {
	current := account.Clone()
	for attempt := 1; ; attempt++ {
		if !mutate(current) {
			return current, nil
		}

		err := repo.Update(ctx, current)
		if err == nil {
			return current, nil
		}
		if !errors.Is(err, domain.ErrConcurrentUpdate) || attempt == maxUpdateAttempts {
			return nil, err
		}

		current, err = repo.FindByID(ctx, account.ID)
		if err != nil {
			return nil, err
		}
	}
}
