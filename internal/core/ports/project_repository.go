package ports

import (
	"context"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
)

// ListProjectsFilter carries all query parameters for listing projects.
type ListProjectsFilter struct {
	OwnerID string               // empty = any owner
	Status  domain.ProjectStatus // empty = any status
	Keyword string               // optional: case-insensitive match on title or description
	Page    int                  // 1-based
	Limit   int                  // max rows per page (capped by the service)
}

// ProjectRepository defines persistence operations for projects.
type ProjectRepository interface {
	Create(ctx context.Context, p *domain.Project) error
	FindByID(ctx context.Context, id string) (*domain.Project, error)
	// Update writes p if its stored version still equals p.Version, then bumps it.
	Update(ctx context.Context, p *domain.Project) error
	Delete(ctx context.Context, id string) error
	// List returns a page of projects matching filter and the total count.
	List(ctx context.Context, filter ListProjectsFilter) ([]*domain.Project, int64, error)
}

// IdempotencyStore remembers which project a client-supplied Idempotency-Key
// produced, scoped per owner.
type IdempotencyStore interface {
	// Lookup returns the project created earlier by ownerID with key, or "".
	Lookup(ctx context.Context, ownerID, key string) (string, error)
	// Remember binds key to projectID unless it is already bound.
	Remember(ctx context.Context, ownerID, key, projectID string) (bool, error)
}
