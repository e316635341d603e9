package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
)

// principal returns the caller resolved by the Authenticate middleware, or
// domain.Anonymous when none was attached.
func principal(c echo.Context) domain.Principal {
	return domain.PrincipalFrom(c.Request().Context())
}

// bindAndValidate decodes the request into req and runs the struct validator.
// Both failure kinds surface as domain.ErrValidation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: invalid payload", domain.ErrValidation)
	}
	return c.Validate(req)
}
