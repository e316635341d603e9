package ports

import (
	"context"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
)

// ProjectInput carries the editable project fields.
type ProjectInput struct {
	Title       string
	Description string
	GoalAmount  float64
}

// CreateProjectInput carries all data needed to create a new project.
type CreateProjectInput struct {
	ProjectInput
	IdempotencyKey string
}

// ProjectResult is returned by CreateProject.
type ProjectResult struct {
	Project *domain.Project
	// AlreadyExisted is true when the Idempotency-Key matched an existing project.
	AlreadyExisted bool
}

// ListProjectsInput carries all parameters for the list endpoints.
type ListProjectsInput struct {
	Keyword string
	Status  string
	Page    int
	Limit   int
}

// ListProjectsResult is a page of projects.
type ListProjectsResult struct {
	Items      []*domain.Project
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// ProjectService defines use-case operations for projects. The actor is always
// passed explicitly; services never read an ambient security context.
type ProjectService interface {
	CreateProject(ctx context.Context, actor domain.Principal, input CreateProjectInput) (*ProjectResult, error)
	GetProject(ctx context.Context, actor domain.Principal, id string) (*domain.Project, error)
	UpdateProject(ctx context.Context, actor domain.Principal, id string, input ProjectInput) (*domain.Project, error)
	DeleteProject(ctx context.Context, actor domain.Principal, id string) error
	SubmitProjectForReview(ctx context.Context, actor domain.Principal, id string) (*domain.Project, error)
	UpdateProjectStatus(ctx context.Context, actor domain.Principal, id, status string) (*domain.Project, error)
	ListPublicProjects(ctx context.Context, input ListProjectsInput) (*ListProjectsResult, error)
	ListProjects(ctx context.Context, actor domain.Principal, input ListProjectsInput) (*ListProjectsResult, error)
	ListMyProjects(ctx context.Context, actor domain.Principal, input ListProjectsInput) (*ListProjectsResult, error)
}
