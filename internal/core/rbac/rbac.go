// Package rbac evaluates resource:action permissions against the caller's role
// and, where a rule requires it, ownership of the target resource.
package rbac

import (
	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
)

// Permission is a resource:action pair.
type Permission string

const (
	ProjectCreate  Permission = "project:create"
	ProjectRead    Permission = "project:read"
	ProjectUpdate  Permission = "project:update"
	ProjectDelete  Permission = "project:delete"
	ProjectSubmit  Permission = "project:submit"
	ProjectReview  Permission = "project:review"
	ProjectListAll Permission = "project:list_all"
	ProjectListOwn Permission = "project:list_own"

	AccountReadSelf Permission = "account:read_self"
	AccountReadAny  Permission = "account:read_any"
	AccountManage   Permission = "account:manage"
)

// Ownership controls how a rule treats the target resource's owner.
type Ownership int

const (
	// OwnershipIgnored grants on role alone.
	OwnershipIgnored Ownership = iota
	// OwnerOnly requires the caller to own the resource, whatever their role.
	OwnerOnly
	// OwnerOrAdmin requires ownership unless the caller is ADMIN.
	OwnerOrAdmin
	// PublicOrOwnerOrAdmin grants on public resources, otherwise behaves like OwnerOrAdmin.
	PublicOrOwnerOrAdmin
)

// Rule is one row of the permission matrix.
type Rule struct {
	// Roles allowed to attempt the action. Empty means every role, including anonymous.
	Roles     []domain.Role
	Ownership Ownership
}

// Resource describes the target of an ownership-aware check.
type Resource struct {
	OwnerID string
	Public  bool
}

var writers = []domain.Role{domain.RoleMember, domain.RoleCreator, domain.RoleAdmin}

// DefaultRules is the permission matrix for the crowdfunding API.
func DefaultRules() map[Permission]Rule {
	return map[Permission]Rule{
		ProjectCreate:  {Roles: writers},
		ProjectRead:    {Ownership: PublicOrOwnerOrAdmin},
		ProjectUpdate:  {Ownership: OwnerOnly},
		ProjectDelete:  {Ownership: OwnerOrAdmin},
		ProjectSubmit:  {Ownership: OwnerOnly},
		ProjectReview:  {Roles: []domain.Role{domain.RoleAdmin}},
		ProjectListAll: {Roles: []domain.Role{domain.RoleAdmin}},
		ProjectListOwn: {Roles: writers},

		AccountReadSelf: {Roles: domain.AllRoles()},
		AccountReadAny:  {Roles: []domain.Role{domain.RoleAdmin}},
		AccountManage:   {Roles: []domain.Role{domain.RoleAdmin}},
	}
}

// Enforcer evaluates permissions. It is immutable after construction and safe
// for concurrent use.
type Enforcer struct {
	rules map[Permission]Rule
}

// NewEnforcer builds an Enforcer over rules, or DefaultRules when rules is nil.
func NewEnforcer(rules map[Permission]Rule) *Enforcer {
	if rules == nil {
		rules = DefaultRules()
	}
	copied := make(map[Permission]Rule, len(rules))
	for k, v := range rules {
		copied[k] = v
	}
	return &Enforcer{rules: copied}
}

// Allows is the role-only check: it ignores ownership and reports whether role may
// attempt perm at all. Unknown permissions are denied.
func (e *Enforcer) Allows(role domain.Role, perm Permission) bool {
	rule, ok := e.rules[perm]
	if !ok {
		return false
	}
	return rule.allowsRole(role)
}

// Authorize decides whether p may perform perm on res. It returns nil when allowed,
// domain.ErrUnauthenticated when an anonymous caller is denied, and
// domain.ErrUnauthorized when an authenticated caller is denied.
func (e *Enforcer) Authorize(p domain.Principal, perm Permission, res Resource) error {
	rule, ok := e.rules[perm]
	if !ok {
		return deny(p)
	}

	if len(rule.Roles) > 0 {
		if p.IsAnonymous() || !rule.allowsRole(p.Role) {
			return deny(p)
		}
	}

	switch rule.Ownership {
	case OwnerOnly:
		if !p.Owns(res.OwnerID) {
			return deny(p)
		}
	case OwnerOrAdmin:
		if !p.Owns(res.OwnerID) && !p.IsAdmin() {
			return deny(p)
		}
	case PublicOrOwnerOrAdmin:
		if !res.Public && !p.Owns(res.OwnerID) && !p.IsAdmin() {
			return deny(p)
		}
	}
	return nil
}

func (r Rule) allowsRole(role domain.Role) bool {
	if len(r.Roles) == 0 {
		return true
	}
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

func deny(p domain.Principal) error {
	if p.IsAnonymous() {
		return domain.ErrUnauthenticated
	}
	return domain.ErrUnauthorized
}
