package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
	"github.com/fourseasons/crowdfunding-api/internal/core/rbac"
)

// RBAC gates a route on the role-only part of perm. Ownership rules are enforced
// by the services, which see the target resource.
func RBAC(enforcer *rbac.Enforcer, perm rbac.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := Principal(c)
			if !enforcer.Allows(p.Role, perm) {
				if p.IsAnonymous() {
					return domain.ErrUnauthenticated
				}
				return domain.ErrUnauthorized
			}
			return next(c)
		}
	}
}
