package domain

import (
	"strings"
	"time"
)

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectDraft    ProjectStatus = "DRAFT"
	ProjectPending  ProjectStatus = "PENDING"
	ProjectApproved ProjectStatus = "APPROVED"
	ProjectRejected ProjectStatus = "REJECTED"
)

// TransitionActor names who may perform a status transition.
type TransitionActor int

const (
	ActorNone TransitionActor = iota
	ActorOwner
	ActorAdmin
)

// validTransitions defines the allowed state machine transitions and who may
// perform each one. Terminal statuses have no entry.
var validTransitions = map[ProjectStatus]map[ProjectStatus]TransitionActor{
	ProjectDraft: {
		ProjectPending: ActorOwner,
	},
	ProjectPending: {
		ProjectApproved: ActorAdmin,
		ProjectRejected: ActorAdmin,
	},
}

// ParseProjectStatus converts a caller-supplied status string, rejecting values
// outside the closed set with ErrInvalidStatus.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	st := ProjectStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// IsValid reports whether s belongs to the closed status set.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectDraft, ProjectPending, ProjectApproved, ProjectRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no transition leaves s.
func (s ProjectStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// TransitionActor returns who may move a project from s to next, or ActorNone
// when the pair is not in the transition table.
func (s ProjectStatus) TransitionActor(next ProjectStatus) TransitionActor {
	return validTransitions[s][next]
}

// CanTransitionTo reports whether a transition from s to next exists at all.
func (s ProjectStatus) CanTransitionTo(next ProjectStatus) bool {
	return s.TransitionActor(next) != ActorNone
}

// Project is the core aggregate root. OwnerID holds the creating account's key
// and is fixed at creation; removing the account does not remove its projects.
type Project struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	GoalAmount     float64       `json:"goal_amount"`
	CurrentAmount  float64       `json:"current_amount"`
	OwnerID        string        `json:"owner_id"`
	Status         ProjectStatus `json:"status"`
	IdempotencyKey string        `json:"-"`
	Version        int64         `json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Clone returns a copy safe to mutate.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Transition moves the project to next on behalf of actor. The pair is checked
// against the table first (ErrInvalidTransition), then the actor (ErrUnauthorized).
func (p *Project) Transition(actor Principal, next ProjectStatus, now time.Time) error {
	switch p.Status.TransitionActor(next) {
	case ActorOwner:
		if !actor.Owns(p.OwnerID) {
			return ErrUnauthorized
		}
	case ActorAdmin:
		if !actor.IsAdmin() {
			return ErrUnauthorized
		}
	default:
		return ErrInvalidTransition
	}

	p.Status = next
	p.UpdatedAt = now
	return nil
}

// Editable reports whether actor may change title, description or goal.
func (p *Project) Editable(actor Principal) bool {
	return p.Status == ProjectDraft && actor.Owns(p.OwnerID)
}

// IsPublic reports whether anyone may read the project.
func (p *Project) IsPublic() bool {
	return p.Status == ProjectApproved
}
