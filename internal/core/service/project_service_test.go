package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
	"github.com/fourseasons/crowdfunding-api/internal/core/ports"
	"github.com/fourseasons/crowdfunding-api/internal/core/rbac"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubProjectRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Project
}

func newStubProjectRepo() *stubProjectRepo {
	return &stubProjectRepo{byID: make(map[string]*domain.Project)}
}

func (r *stubProjectRepo) Create(_ context.Context, p *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Version = 1
	r.byID[p.ID] = p.Clone()
	return nil
}

func (r *stubProjectRepo) FindByID(_ context.Context, id string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return p.Clone(), nil
}

func (r *stubProjectRepo) Update(_ context.Context, p *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[p.ID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	if stored.Version != p.Version {
		return domain.ErrConcurrentUpdate
	}
	p.Version++
	r.byID[p.ID] = p.Clone()
	return nil
}

func (r *stubProjectRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrProjectNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubProjectRepo) List(_ context.Context, f ports.ListProjectsFilter) ([]*domain.Project, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain.Project
	for _, p := range r.byID {
		if f.OwnerID != "" && p.OwnerID != f.OwnerID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Keyword != "" {
			kw := strings.ToLower(f.Keyword)
			if !strings.Contains(strings.ToLower(p.Title), kw) && !strings.Contains(strings.ToLower(p.Description), kw) {
				continue
			}
		}
		matched = append(matched, p.Clone())
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Title < matched[j].Title })

	total := int64(len(matched))
	start := (f.Page - 1) * f.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *stubProjectRepo) seed(id, owner string, status domain.ProjectStatus) *domain.Project {
	p := &domain.Project{
		ID:         id,
		Title:      "Project " + id,
		GoalAmount: 1000,
		OwnerID:    owner,
		Status:     status,
		Version:    1,
	}
	r.mu.Lock()
	r.byID[id] = p.Clone()
	r.mu.Unlock()
	return p
}

type stubIdempotency struct {
	keys      map[string]string
	lookupErr error
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{keys: make(map[string]string)}
}

func (s *stubIdempotency) Lookup(_ context.Context, ownerID, key string) (string, error) {
	if s.lookupErr != nil {
		return "", s.lookupErr
	}
	return s.keys[ownerID+":"+key], nil
}

func (s *stubIdempotency) Remember(_ context.Context, ownerID, key, projectID string) (bool, error) {
	k := ownerID + ":" + key
	if _, ok := s.keys[k]; ok {
		return false, nil
	}
	s.keys[k] = projectID
	return true, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var (
	owner    = domain.Principal{AccountID: "owner-1", Username: "olivia", Role: domain.RoleCreator}
	stranger = domain.Principal{AccountID: "member-2", Username: "sam", Role: domain.RoleMember}
	admin    = domain.Principal{AccountID: "admin-1", Username: "root", Role: domain.RoleAdmin}
	guest    = domain.Principal{AccountID: "guest-1", Username: "gus", Role: domain.RoleGuest}
)

func newProjectSvc(repo *stubProjectRepo, idem ports.IdempotencyStore, sink *recordingSink) *ProjectService {
	var activity ports.ActivitySink
	if sink != nil {
		activity = sink
	}
	return NewProjectService(repo, rbac.NewEnforcer(nil), idem, activity, zerolog.Nop()).WithClock(newTestClock().Now)
}

func validInput() ports.ProjectInput {
	return ports.ProjectInput{Title: "Solar Kiosk", Description: "Off-grid charging", GoalAmount: 5000}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestProjectService_CreateProject(t *testing.T) {
	repo := newStubProjectRepo()
	sink := &recordingSink{}
	svc := newProjectSvc(repo, nil, sink)

	res, err := svc.CreateProject(context.Background(), stranger, ports.CreateProjectInput{ProjectInput: validInput()})
	if err != nil {
		t.Fatalf("CreateProject returned error: %v", err)
	}
	if res.AlreadyExisted {
		t.Fatal("expected a new project")
	}
	p := res.Project
	if p.Status != domain.ProjectDraft || p.OwnerID != stranger.AccountID || p.CurrentAmount != 0 {
		t.Fatalf("unexpected project: %+v", p)
	}
	if _, err := repo.FindByID(context.Background(), p.ID); err != nil {
		t.Fatalf("project not persisted: %v", err)
	}
	if !sink.has(domain.ActivityProjectCreated) {
		t.Fatalf("expected project_created event, got %v", sink.types())
	}
}

func TestProjectService_CreateProject_Rejections(t *testing.T) {
	svc := newProjectSvc(newStubProjectRepo(), nil, nil)

	tests := []struct {
		name    string
		actor   domain.Principal
		input   ports.ProjectInput
		wantErr error
	}{
		{"anonymous", domain.Anonymous, validInput(), domain.ErrUnauthenticated},
		{"guest", guest, validInput(), domain.ErrUnauthorized},
		{"missing title", owner, ports.ProjectInput{GoalAmount: 10}, domain.ErrValidation},
		{"zero goal", owner, ports.ProjectInput{Title: "x"}, domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProject(context.Background(), tt.actor, ports.CreateProjectInput{ProjectInput: tt.input})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestProjectService_CreateProject_Idempotent(t *testing.T) {
	repo := newStubProjectRepo()
	idem := newStubIdempotency()
	svc := newProjectSvc(repo, idem, nil)

	in := ports.CreateProjectInput{ProjectInput: validInput(), IdempotencyKey: "key-1"}
	first, err := svc.CreateProject(context.Background(), owner, in)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := svc.CreateProject(context.Background(), owner, in)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if !second.AlreadyExisted || second.Project.ID != first.Project.ID {
		t.Fatalf("expected replay of %s, got %+v", first.Project.ID, second)
	}

	// Keys are scoped per owner.
	other, err := svc.CreateProject(context.Background(), stranger, in)
	if err != nil {
		t.Fatalf("other owner create: %v", err)
	}
	if other.AlreadyExisted || other.Project.ID == first.Project.ID {
		t.Fatal("expected a distinct project for another owner")
	}
	if len(repo.byID) != 2 {
		t.Fatalf("expected 2 stored projects, got %d", len(repo.byID))
	}
}

func TestProjectService_CreateProject_IdempotencyStoreDown(t *testing.T) {
	idem := newStubIdempotency()
	idem.lookupErr = errors.New("redis down")
	svc := newProjectSvc(newStubProjectRepo(), idem, nil)

	res, err := svc.CreateProject(context.Background(), owner, ports.CreateProjectInput{ProjectInput: validInput(), IdempotencyKey: "k"})
	if err != nil {
		t.Fatalf("expected create to proceed, got %v", err)
	}
	if res.AlreadyExisted {
		t.Fatal("expected a new project")
	}
}

// ---------------------------------------------------------------------------
// Read / edit / delete
// ---------------------------------------------------------------------------

func TestProjectService_GetProject(t *testing.T) {
	repo := newStubProjectRepo()
	repo.seed("draft", owner.AccountID, domain.ProjectDraft)
	repo.seed("live", owner.AccountID, domain.ProjectApproved)
	svc := newProjectSvc(repo, nil, nil)

	tests := []struct {
		name    string
		actor   domain.Principal
		id      string
		wantErr error
	}{
		{"anonymous reads approved", domain.Anonymous, "live", nil},
		{"stranger reads approved", stranger, "live", nil},
		{"owner reads draft", owner, "draft", nil},
		{"admin reads draft", admin, "draft", nil},
		{"stranger reads draft", stranger, "draft", domain.ErrUnauthorized},
		{"anonymous reads draft", domain.Anonymous, "draft", domain.ErrUnauthenticated},
		{"missing for stranger", stranger, "nope", domain.ErrProjectNotFound},
		{"missing for admin", admin, "nope", domain.ErrProjectNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetProject(context.Background(), tt.actor, tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestProjectService_UpdateProject(t *testing.T) {
	repo := newStubProjectRepo()
	repo.seed("draft", owner.AccountID, domain.ProjectDraft)
	repo.seed("pending", owner.AccountID, domain.ProjectPending)
	svc := newProjectSvc(repo, nil, nil)

	edit := ports.ProjectInput{Title: "Renamed", Description: "new", GoalAmount: 42}

	updated, err := svc.UpdateProject(context.Background(), owner, "draft", edit)
	if err != nil {
		t.Fatalf("owner edit of draft failed: %v", err)
	}
	if updated.Title != "Renamed" || updated.GoalAmount != 42 {
		t.Fatalf("unexpected project after edit: %+v", updated)
	}

	tests := []struct {
		name    string
		actor   domain.Principal
		id      string
		wantErr error
	}{
		{"owner edits pending", owner, "pending", domain.ErrUnauthorized},
		{"admin edits draft", admin, "draft", domain.ErrUnauthorized},
		{"stranger edits draft", stranger, "draft", domain.ErrUnauthorized},
		{"missing", stranger, "nope", domain.ErrProjectNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateProject(context.Background(), tt.actor, tt.id, edit)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestProjectService_DeleteProject(t *testing.T) {
	repo := newStubProjectRepo()
	repo.seed("a", owner.AccountID, domain.ProjectApproved)
	repo.seed("b", owner.AccountID, domain.ProjectPending)
	sink := &recordingSink{}
	svc := newProjectSvc(repo, nil, sink)

	if err := svc.DeleteProject(context.Background(), stranger, "a"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for stranger, got %v", err)
	}
	if err := svc.DeleteProject(context.Background(), owner, "a"); err != nil {
		t.Fatalf("owner delete of approved project failed: %v", err)
	}
	if err := svc.DeleteProject(context.Background(), admin, "b"); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}
	if err := svc.DeleteProject(context.Background(), admin, "a"); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
	if !sink.has(domain.ActivityProjectDeleted) {
		t.Fatalf("expected project_deleted event, got %v", sink.types())
	}
}

func TestProjectService_OwnerDemotedToGuestKeepsOwnership(t *testing.T) {
	repo := newStubProjectRepo()
	repo.seed("draft", owner.AccountID, domain.ProjectDraft)
	repo.seed("other", stranger.AccountID, domain.ProjectDraft)
	svc := newProjectSvc(repo, nil, nil)
	demoted := domain.Principal{AccountID: owner.AccountID, Username: owner.Username, Role: domain.RoleGuest}
	ctx := context.Background()

	if _, err := svc.GetProject(ctx, demoted, "draft"); err != nil {
		t.Fatalf("demoted owner read failed: %v", err)
	}
	if _, err := svc.UpdateProject(ctx, demoted, "draft", ports.ProjectInput{Title: "Still mine", Description: "edited by guest", GoalAmount: 5}); err != nil {
		t.Fatalf("demoted owner edit failed: %v", err)
	}
	if _, err := svc.SubmitProjectForReview(ctx, demoted, "draft"); err != nil {
		t.Fatalf("demoted owner submit failed: %v", err)
	}
	if err := svc.DeleteProject(ctx, demoted, "draft"); err != nil {
		t.Fatalf("demoted owner delete failed: %v", err)
	}
	if err := svc.DeleteProject(ctx, guest, "other"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for a guest deleting someone else's project, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestProjectService_Submit(t *testing.T) {
	repo := newStubProjectRepo()
	repo.seed("draft", owner.AccountID, domain.ProjectDraft)
	repo.seed("pending", owner.AccountID, domain.ProjectPending)
	sink := &recordingSink{}
	svc := newProjectSvc(repo, nil, sink)

	if _, err := svc.SubmitProjectForReview(context.Background(), stranger, "draft"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-owner, got %v", err)
	}
	if _, err := svc.SubmitProjectForReview(context.Background(), owner, "pending"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for pending project, got %v", err)
	}
	if _, err := svc.SubmitProjectForReview(context.Background(), owner, "nope"); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}

	p, err := svc.SubmitProjectForReview(context.Background(), owner, "draft")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if p.Status != domain.ProjectPending {
		t.Fatalf("expected PENDING, got %s", p.Status)
	}
	if stored, _ := repo.FindByID(context.Background(), "draft"); stored.Status != domain.ProjectPending {
		t.Fatalf("expected stored status PENDING, got %s", stored.Status)
	}
	if !sink.has(domain.ActivityProjectSubmitted) {
		t.Fatalf("expected project_submitted event, got %v", sink.types())
	}
}

func TestProjectService_UpdateProjectStatus_Review(t *testing.T) {
	repo := newStubProjectRepo()
	repo.seed("p", owner.AccountID, domain.ProjectPending)
	sink := &recordingSink{}
	svc := newProjectSvc(repo, nil, sink)

	if _, err := svc.UpdateProjectStatus(context.Background(), stranger, "p", "APPROVED"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for member, got %v", err)
	}
	if _, err := svc.UpdateProjectStatus(context.Background(), owner, "p", "APPROVED"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for owner, got %v", err)
	}

	p, err := svc.UpdateProjectStatus(context.Background(), admin, "p", "approved")
	if err != nil {
		t.Fatalf("admin approval failed: %v", err)
	}
	if p.Status != domain.ProjectApproved || !p.Status.IsTerminal() {
		t.Fatalf("expected terminal APPROVED, got %s", p.Status)
	}

	for _, next := range []string{"REJECTED", "PENDING", "DRAFT", "APPROVED"} {
		if _, err := svc.UpdateProjectStatus(context.Background(), admin, "p", next); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("transition to %s from terminal: expected ErrInvalidTransition, got %v", next, err)
		}
	}
	if !sink.has(domain.ActivityProjectApproved) {
		t.Fatalf("expected project_approved event, got %v", sink.types())
	}
}

func TestProjectService_UpdateProjectStatus_Rejections(t *testing.T) {
	repo := newStubProjectRepo()
	repo.seed("draft", owner.AccountID, domain.ProjectDraft)
	repo.seed("pending", owner.AccountID, domain.ProjectPending)
	svc := newProjectSvc(repo, nil, nil)

	tests := []struct {
		name    string
		actor   domain.Principal
		id      string
		status  string
		wantErr error
	}{
		{"unknown status", admin, "pending", "FUNDED", domain.ErrInvalidStatus},
		{"missing project", admin, "nope", "APPROVED", domain.ErrProjectNotFound},
		{"missing project for member", stranger, "nope", "APPROVED", domain.ErrProjectNotFound},
		{"anonymous", domain.Anonymous, "pending", "APPROVED", domain.ErrUnauthenticated},
		{"admin approves draft", admin, "draft", "APPROVED", domain.ErrInvalidTransition},
		{"admin pending to draft", admin, "pending", "DRAFT", domain.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateProjectStatus(context.Background(), tt.actor, tt.id, tt.status)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	p, err := svc.UpdateProjectStatus(context.Background(), admin, "pending", "REJECTED")
	if err != nil || p.Status != domain.ProjectRejected {
		t.Fatalf("expected REJECTED, got %v %v", p, err)
	}
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

func TestProjectService_Listings(t *testing.T) {
	repo := newStubProjectRepo()
	repo.seed("a1", owner.AccountID, domain.ProjectApproved)
	repo.seed("a2", stranger.AccountID, domain.ProjectApproved)
	repo.seed("a3", stranger.AccountID, domain.ProjectApproved)
	repo.seed("d1", owner.AccountID, domain.ProjectDraft)
	repo.seed("p1", stranger.AccountID, domain.ProjectPending)
	svc := newProjectSvc(repo, nil, nil)
	ctx := context.Background()

	public, err := svc.ListPublicProjects(ctx, ports.ListProjectsInput{Status: "DRAFT", Limit: 2})
	if err != nil {
		t.Fatalf("public list: %v", err)
	}
	if public.Total != 3 || len(public.Items) != 2 || public.TotalPages != 2 || public.Page != 1 {
		t.Fatalf("unexpected public page: total=%d items=%d pages=%d", public.Total, len(public.Items), public.TotalPages)
	}
	for _, p := range public.Items {
		if p.Status != domain.ProjectApproved {
			t.Fatalf("public list leaked %s project", p.Status)
		}
	}

	all, err := svc.ListProjects(ctx, admin, ports.ListProjectsInput{})
	if err != nil || all.Total != 5 || all.Limit != defaultPageLimit {
		t.Fatalf("admin list: total=%v err=%v", all, err)
	}
	pending, err := svc.ListProjects(ctx, admin, ports.ListProjectsInput{Status: "pending"})
	if err != nil || pending.Total != 1 {
		t.Fatalf("admin pending list: %v %v", pending, err)
	}
	if _, err := svc.ListProjects(ctx, admin, ports.ListProjectsInput{Status: "bogus"}); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.ListProjects(ctx, stranger, ports.ListProjectsInput{}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for member, got %v", err)
	}

	mine, err := svc.ListMyProjects(ctx, owner, ports.ListProjectsInput{})
	if err != nil || mine.Total != 2 {
		t.Fatalf("my list: %v %v", mine, err)
	}
	for _, p := range mine.Items {
		if p.OwnerID != owner.AccountID {
			t.Fatalf("my list returned project of %s", p.OwnerID)
		}
	}
	if _, err := svc.ListMyProjects(ctx, domain.Anonymous, ports.ListProjectsInput{}); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	empty, err := svc.ListPublicProjects(ctx, ports.ListProjectsInput{Keyword: "zzz"})
	if err != nil || empty.Items == nil || len(empty.Items) != 0 || empty.TotalPages != 0 {
		t.Fatalf("expected empty non-nil page, got %+v %v", empty, err)
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, defaultPageLimit},
		{-3, 10, 1, 10},
		{2, 1000, 2, maxPageLimit},
		{math.MaxInt, 100, maxPage, maxPageLimit},
	}
	for _, tt := range tests {
		p, l := normalizePage(tt.page, tt.limit)
		if p != tt.wantPage || l != tt.wantLimit {
			t.Fatalf("normalizePage(%d, %d) = %d, %d", tt.page, tt.limit, p, l)
		}
	}
}
