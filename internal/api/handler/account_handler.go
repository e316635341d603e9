package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fourseasons/crowdfunding-api/internal/core/ports"
)

// AccountHandler serves the caller's own account and admin account management.
type AccountHandler struct {
	service ports.AccountService
}

func NewAccountHandler(service ports.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// Me handles GET /api/users/me.
//
// @Summary      Current account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  accountResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/users/me [get]
func (h *AccountHandler) Me(c echo.Context) error {
	account, err := h.service.Me(c.Request().Context(), principal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// Get handles GET /api/users/:id.
//
// @Summary      Get an account
// @Description  Callers may read their own account; admins may read any.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  accountResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/users/{id} [get]
func (h *AccountHandler) Get(c echo.Context) error {
	account, err := h.service.GetAccount(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// Lock handles POST /api/users/:id/lock.
//
// @Summary      Lock an account (admin)
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  accountResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/users/{id}/lock [post]
func (h *AccountHandler) Lock(c echo.Context) error {
	account, err := h.service.LockAccount(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// Unlock handles POST /api/users/:id/unlock.
//
// @Summary      Unlock an account (admin)
// @Description  Clears the manual lock and any failed-login lockout.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  accountResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/users/{id}/unlock [post]
func (h *AccountHandler) Unlock(c echo.Context) error {
	account, err := h.service.UnlockAccount(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// ChangeRole handles PATCH /api/users/:id/role.
//
// @Summary      Change an account's role (admin)
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Account ID"
// @Param        body  body      changeRoleRequest  true  "New role (GUEST, MEMBER, CREATOR, ADMIN)"
// @Success      200   {object}  accountResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/users/{id}/role [patch]
func (h *AccountHandler) ChangeRole(c echo.Context) error {
	var req changeRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.service.ChangeRole(c.Request().Context(), principal(c), c.Param("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}
