package ports

import (
	"context"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
)

// AccountRepository is the credential store used by authentication and
// request-time identity resolution. Lookups return domain.ErrAccountNotFound
// when nothing matches.
type AccountRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Create inserts a new account. Unique-key collisions are reported as
	// domain.ErrDuplicateEmail or domain.ErrDuplicateUsername.
	Create(ctx context.Context, account *domain.Account) error
	// Update writes the account if its stored version still equals account.Version,
	// then bumps account.Version. A stale version yields domain.ErrConcurrentUpdate.
	Update(ctx context.Context, account *domain.Account) error
}
