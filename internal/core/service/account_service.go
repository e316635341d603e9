package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
	"github.com/fourseasons/crowdfunding-api/internal/core/ports"
	"github.com/fourseasons/crowdfunding-api/internal/core/rbac"
)

// AccountService serves the caller's own account and admin account management.
type AccountService struct {
	repo     ports.AccountRepository
	enforcer *rbac.Enforcer
	policy   domain.LockoutPolicy
	sink     ports.ActivitySink
	now      func() time.Time
	log      zerolog.Logger
}

func NewAccountService(
	repo ports.AccountRepository,
	enforcer *rbac.Enforcer,
	policy domain.LockoutPolicy,
	sink ports.ActivitySink,
	log zerolog.Logger,
) *AccountService {
	if enforcer == nil {
		enforcer = rbac.NewEnforcer(nil)
	}
	return &AccountService{
		repo:     repo,
		enforcer: enforcer,
		policy:   policy,
		sink:     sinkOrNop(sink),
		now:      time.Now,
		log:      log,
	}
}

func (s *AccountService) Me(ctx context.Context, actor domain.Principal) (*domain.Account, error) {
	if err := s.enforcer.Authorize(actor, rbac.AccountReadSelf, rbac.Resource{}); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, actor.AccountID)
}

// GetAccount returns the account with id. Foreign ids are authorized before the lookup.
func (s *AccountService) GetAccount(ctx context.Context, actor domain.Principal, id string) (*domain.Account, error) {
	if actor.IsAnonymous() || actor.AccountID != id {
		if err := s.enforcer.Authorize(actor, rbac.AccountReadAny, rbac.Resource{}); err != nil {
			return nil, err
		}
	}
	return s.repo.FindByID(ctx, id)
}

// LockAccount sets the manual lock flag. Manually locked accounts cannot log in
// until unlocked by an admin.
func (s *AccountService) LockAccount(ctx context.Context, actor domain.Principal, id string) (*domain.Account, error) {
	return s.manage(ctx, actor, id, domain.ActivityAccountLocked, func(a *domain.Account) bool {
		if a.ManuallyLocked {
			return false
		}
		a.ManuallyLocked = true
		return true
	})
}

// UnlockAccount clears the manual lock and any failure-based lock.
func (s *AccountService) UnlockAccount(ctx context.Context, actor domain.Principal, id string) (*domain.Account, error) {
	return s.manage(ctx, actor, id, domain.ActivityAccountUnlocked, func(a *domain.Account) bool {
		if !a.ManuallyLocked && a.FailedLogins == 0 && a.LastFailedLoginAt == nil {
			return false
		}
		a.ManuallyLocked = false
		s.policy.RecordSuccess(a)
		return true
	})
}

// ChangeRole assigns a new role. Unknown role names are rejected with
// domain.ErrInvalidRole before the account is looked up.
func (s *AccountService) ChangeRole(ctx context.Context, actor domain.Principal, id, role string) (*domain.Account, error) {
	next, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}
	return s.manage(ctx, actor, id, domain.ActivityRoleChanged, func(a *domain.Account) bool {
		if a.Role == next {
			return false
		}
		a.Role = next
		return true
	}, "role", next.String())
}

func (s *AccountService) manage(
	ctx context.Context,
	actor domain.Principal,
	id string,
	activity domain.ActivityType,
	mutate func(*domain.Account) bool,
	kv ...string,
) (*domain.Account, error) {
	if err := s.enforcer.Authorize(actor, rbac.AccountManage, rbac.Resource{}); err != nil {
		return nil, err
	}
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var changed bool
	account, err = updateAccount(ctx, s.repo, account, func(a *domain.Account) bool {
		changed = mutate(a)
		if changed {
			a.UpdatedAt = now
		}
		return changed
	})
	if err != nil {
		return nil, fmt.Errorf("manage account: %w", err)
	}

	if changed {
		s.sink.Publish(newActivity(activity, account.ID, actor.AccountID, now, kv...))
		s.log.Info().
			Str("account_id", account.ID).
			Str("actor_id", actor.AccountID).
			Str("action", string(activity)).
			Msg("account updated by admin")
	}
	return account, nil
}
