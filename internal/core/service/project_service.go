package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
	"github.com/fourseasons/crowdfunding-api/internal/core/ports"
	"github.com/fourseasons/crowdfunding-api/internal/core/rbac"
	"github.com/fourseasons/crowdfunding-api/internal/pkg/metrics"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	maxPage          = 100000
)

// ProjectService implements the project lifecycle. Every operation on an existing
// project loads it before checking permissions, so a missing project is reported
// as not found to every caller.
type ProjectService struct {
	repo     ports.ProjectRepository
	enforcer *rbac.Enforcer
	idem     ports.IdempotencyStore
	sink     ports.ActivitySink
	now      func() time.Time
	log      zerolog.Logger
}

func NewProjectService(
	repo ports.ProjectRepository,
	enforcer *rbac.Enforcer,
	idem ports.IdempotencyStore,
	sink ports.ActivitySink,
	log zerolog.Logger,
) *ProjectService {
	if enforcer == nil {
		enforcer = rbac.NewEnforcer(nil)
	}
	return &ProjectService{
		repo:     repo,
		enforcer: enforcer,
		idem:     idem,
		sink:     sinkOrNop(sink),
		now:      time.Now,
		log:      log,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *ProjectService) WithClock(now func() time.Time) *ProjectService {
	s.now = now
	return s
}

// CreateProject creates a DRAFT project owned by actor. If an idempotency key is
// provided and already seen for this owner, the earlier project is returned.
func (s *ProjectService) CreateProject(ctx context.Context, actor domain.Principal, input ports.CreateProjectInput) (*ports.ProjectResult, error) {
	if err := s.enforcer.Authorize(actor, rbac.ProjectCreate, rbac.Resource{}); err != nil {
		return nil, err
	}
	if err := validateProjectInput(input.ProjectInput); err != nil {
		return nil, err
	}

	if input.IdempotencyKey != "" && s.idem != nil {
		if existing := s.replay(ctx, actor.AccountID, input.IdempotencyKey); existing != nil {
			return &ports.ProjectResult{Project: existing, AlreadyExisted: true}, nil
		}
	}

	now := s.now().UTC()
	project := &domain.Project{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		GoalAmount:     input.GoalAmount,
		OwnerID:        actor.AccountID,
		Status:         domain.ProjectDraft,
		IdempotencyKey: input.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		s.log.Error().Err(err).Str("owner_id", actor.AccountID).Msg("failed to create project")
		return nil, fmt.Errorf("create project: %w", err)
	}

	if input.IdempotencyKey != "" && s.idem != nil {
		if ok, err := s.idem.Remember(ctx, actor.AccountID, input.IdempotencyKey, project.ID); err != nil {
			s.log.Warn().Err(err).Str("project_id", project.ID).Msg("failed to store idempotency key")
		} else if !ok {
			s.log.Warn().Str("project_id", project.ID).Str("idempotency_key", input.IdempotencyKey).Msg("idempotency key bound concurrently")
		}
	}

	metrics.ProjectsCreatedTotal.Inc()
	s.sink.Publish(newActivity(domain.ActivityProjectCreated, project.ID, actor.AccountID, now))
	s.log.Info().Str("project_id", project.ID).Str("owner_id", actor.AccountID).Msg("project created")

	return &ports.ProjectResult{Project: project}, nil
}

// replay returns the project bound to key, or nil when there is none. Store
// failures are logged and treated as a miss.
func (s *ProjectService) replay(ctx context.Context, ownerID, key string) *domain.Project {
	id, err := s.idem.Lookup(ctx, ownerID, key)
	if err != nil {
		s.log.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed, creating anyway")
		return nil
	}
	if id == "" {
		return nil
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.log.Debug().Err(err).Str("project_id", id).Msg("idempotent project no longer available")
		return nil
	}
	s.log.Info().Str("idempotency_key", key).Str("project_id", id).Msg("idempotent replay")
	return existing
}

// GetProject returns an approved project to anyone, otherwise only to its owner
// or an admin.
func (s *ProjectService) GetProject(ctx context.Context, actor domain.Principal, id string) (*domain.Project, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.Authorize(actor, rbac.ProjectRead, resourceOf(project)); err != nil {
		return nil, err
	}
	return project, nil
}

// UpdateProject edits title, description and goal. Only the owner may edit, and
// only while the project is a draft.
func (s *ProjectService) UpdateProject(ctx context.Context, actor domain.Principal, id string, input ports.ProjectInput) (*domain.Project, error) {
	if err := validateProjectInput(input); err != nil {
		return nil, err
	}

	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.Authorize(actor, rbac.ProjectUpdate, resourceOf(project)); err != nil {
		return nil, err
	}
	if !project.Editable(actor) {
		return nil, domain.ErrUnauthorized
	}

	project.Title = strings.TrimSpace(input.Title)
	project.Description = strings.TrimSpace(input.Description)
	project.GoalAmount = input.GoalAmount
	project.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	s.sink.Publish(newActivity(domain.ActivityProjectUpdated, project.ID, actor.AccountID, project.UpdatedAt))
	return project, nil
}

// DeleteProject removes a project. The owner or an admin may delete in any status.
func (s *ProjectService) DeleteProject(ctx context.Context, actor domain.Principal, id string) error {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.enforcer.Authorize(actor, rbac.ProjectDelete, resourceOf(project)); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	s.sink.Publish(newActivity(domain.ActivityProjectDeleted, id, actor.AccountID, s.now().UTC(),
		"status", string(project.Status)))
	s.log.Info().Str("project_id", id).Str("actor_id", actor.AccountID).Msg("project deleted")
	return nil
}

// SubmitProjectForReview moves the owner's draft to PENDING.
func (s *ProjectService) SubmitProjectForReview(ctx context.Context, actor domain.Principal, id string) (*domain.Project, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.Authorize(actor, rbac.ProjectSubmit, resourceOf(project)); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, project, domain.ProjectPending)
}

// UpdateProjectStatus applies an admin review decision.
func (s *ProjectService) UpdateProjectStatus(ctx context.Context, actor domain.Principal, id, status string) (*domain.Project, error) {
	next, err := domain.ParseProjectStatus(status)
	if err != nil {
		return nil, err
	}

	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.enforcer.Authorize(actor, rbac.ProjectReview, resourceOf(project)); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, project, next)
}

func (s *ProjectService) transition(ctx context.Context, actor domain.Principal, project *domain.Project, next domain.ProjectStatus) (*domain.Project, error) {
	from := project.Status
	now := s.now().UTC()
	if err := project.Transition(actor, next, now); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return nil, fmt.Errorf("%w (from %s to %s)", domain.ErrInvalidTransition, from, next)
		}
		return nil, err
	}

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("transition project: %w", err)
	}

	metrics.ProjectTransitionsTotal.WithLabelValues(string(from), string(next)).Inc()
	s.sink.Publish(newActivity(domain.TransitionActivity(next), project.ID, actor.AccountID, now,
		"from", string(from), "to", string(next)))
	s.log.Info().
		Str("project_id", project.ID).
		Str("from", string(from)).
		Str("to", string(next)).
		Str("actor_id", actor.AccountID).
		Msg("project status changed")

	return project, nil
}

// ListPublicProjects lists approved projects for anyone.
func (s *ProjectService) ListPublicProjects(ctx context.Context, input ports.ListProjectsInput) (*ports.ListProjectsResult, error) {
	return s.list(ctx, ports.ListProjectsFilter{
		Status:  domain.ProjectApproved,
		Keyword: input.Keyword,
		Page:    input.Page,
		Limit:   input.Limit,
	})
}

// ListProjects lists every project, optionally filtered by status. Admin only.
func (s *ProjectService) ListProjects(ctx context.Context, actor domain.Principal, input ports.ListProjectsInput) (*ports.ListProjectsResult, error) {
	if err := s.enforcer.Authorize(actor, rbac.ProjectListAll, rbac.Resource{}); err != nil {
		return nil, err
	}
	filter, err := filterFrom(input)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, filter)
}

// ListMyProjects lists the actor's own projects in every status.
func (s *ProjectService) ListMyProjects(ctx context.Context, actor domain.Principal, input ports.ListProjectsInput) (*ports.ListProjectsResult, error) {
	if err := s.enforcer.Authorize(actor, rbac.ProjectListOwn, rbac.Resource{}); err != nil {
		return nil, err
	}
	filter, err := filterFrom(input)
	if err != nil {
		return nil, err
	}
	filter.OwnerID = actor.AccountID
	return s.list(ctx, filter)
}

func (s *ProjectService) list(ctx context.Context, filter ports.ListProjectsFilter) (*ports.ListProjectsResult, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	filter.Keyword = strings.TrimSpace(filter.Keyword)

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	if items == nil {
		items = []*domain.Project{}
	}

	return &ports.ListProjectsResult{
		Items:      items,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int((total + int64(filter.Limit) - 1) / int64(filter.Limit)),
	}, nil
}

func filterFrom(input ports.ListProjectsInput) (ports.ListProjectsFilter, error) {
	filter := ports.ListProjectsFilter{Keyword: input.Keyword, Page: input.Page, Limit: input.Limit}
	if input.Status != "" {
		st, err := domain.ParseProjectStatus(input.Status)
		if err != nil {
			return filter, err
		}
		filter.Status = st
	}
	return filter, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func validateProjectInput(in ports.ProjectInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if in.GoalAmount <= 0 {
		return fmt.Errorf("%w: goal amount must be positive", domain.ErrValidation)
	}
	return nil
}

func resourceOf(p *domain.Project) rbac.Resource {
	return rbac.Resource{OwnerID: p.OwnerID, Public: p.IsPublic()}
}
