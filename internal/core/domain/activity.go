package domain

import "time"

// ActivityType identifies an auditable auth or lifecycle event.
type ActivityType string

const (
	ActivityAccountRegistered ActivityType = "account_registered"
	ActivityLoginSucceeded    ActivityType = "login_succeeded"
	ActivityLoginFailed       ActivityType = "login_failed"
	ActivityLoginBlocked      ActivityType = "login_blocked"
	ActivityAccountLocked     ActivityType = "account_locked"
	ActivityAccountUnlocked   ActivityType = "account_unlocked"
	ActivityRoleChanged       ActivityType = "role_changed"
	ActivityProjectCreated    ActivityType = "project_created"
	ActivityProjectUpdated    ActivityType = "project_updated"
	ActivityProjectDeleted    ActivityType = "project_deleted"
	ActivityProjectSubmitted  ActivityType = "project_submitted"
	ActivityProjectApproved   ActivityType = "project_approved"
	ActivityProjectRejected   ActivityType = "project_rejected"
)

// ActivityEvent is an append-only audit record. SubjectID is the account or
// project the event is about and is used to keep per-subject ordering.
type ActivityEvent struct {
	ID         string
	Type       ActivityType
	SubjectID  string
	ActorID    string
	OccurredAt time.Time
	Metadata   map[string]string
}

// TransitionActivity maps a project status reached by a transition to its event type.
func TransitionActivity(status ProjectStatus) ActivityType {
	switch status {
	case ProjectPending:
		return ActivityProjectSubmitted
	case ProjectApproved:
		return ActivityProjectApproved
	case ProjectRejected:
		return ActivityProjectRejected
	default:
		return ActivityProjectUpdated
	}
}
