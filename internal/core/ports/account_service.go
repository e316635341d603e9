package ports

import (
	"context"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
)

// AccountService covers self-service reads and admin account management.
type AccountService interface {
	Me(ctx context.Context, actor domain.Principal) (*domain.Account, error)
	GetAccount(ctx context.Context, actor domain.Principal, id string) (*domain.Account, error)
	LockAccount(ctx context.Context, actor domain.Principal, id string) (*domain.Account, error)
	UnlockAccount(ctx context.Context, actor domain.Principal, id string) (*domain.Account, error)
	ChangeRole(ctx context.Context, actor domain.Principal, id, role string) (*domain.Account, error)
}
