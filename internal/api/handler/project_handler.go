package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fourseasons/crowdfunding-api/internal/core/ports"
)

// ProjectHandler handles HTTP requests for the project lifecycle.
type ProjectHandler struct {
	service ports.ProjectService
}

func NewProjectHandler(service ports.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// Create handles POST /api/projects.
//
// @Summary      Create a draft project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string          false  "Idempotency key to prevent duplicate submissions"
// @Param        body             body      projectRequest  true   "Project details"
// @Success      201              {object}  projectResponse
// @Success      200              {object}  projectResponse  "Replayed: the key already produced this project"
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Router       /api/projects [post]
func (h *ProjectHandler) Create(c echo.Context) error {
	var req projectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.service.CreateProject(c.Request().Context(), principal(c), ports.CreateProjectInput{
		ProjectInput:   toProjectInput(req),
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if result.AlreadyExisted {
		status = http.StatusOK
	}
	return c.JSON(status, toProjectResponse(result.Project))
}

// Get handles GET /api/projects/:id.
//
// @Summary      Get a project
// @Description  Approved projects are public; others are visible to their owner and admins.
// @Tags         projects
// @Produce      json
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  projectResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/projects/{id} [get]
func (h *ProjectHandler) Get(c echo.Context) error {
	project, err := h.service.GetProject(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProjectResponse(project))
}

// Update handles PUT /api/projects/:id.
//
// @Summary      Edit a draft project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Project ID"
// @Param        body  body      projectRequest  true  "Project details"
// @Success      200   {object}  projectResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/projects/{id} [put]
func (h *ProjectHandler) Update(c echo.Context) error {
	var req projectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	project, err := h.service.UpdateProject(c.Request().Context(), principal(c), c.Param("id"), toProjectInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProjectResponse(project))
}

// Delete handles DELETE /api/projects/:id.
//
// @Summary      Delete a project
// @Tags         projects
// @Security     BearerAuth
// @Param        id  path  string  true  "Project ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/projects/{id} [delete]
func (h *ProjectHandler) Delete(c echo.Context) error {
	if err := h.service.DeleteProject(c.Request().Context(), principal(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Submit handles POST /api/projects/:id/submit.
//
// @Summary      Submit a draft for review
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  projectResponse
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/projects/{id}/submit [post]
func (h *ProjectHandler) Submit(c echo.Context) error {
	project, err := h.service.SubmitProjectForReview(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProjectResponse(project))
}

// UpdateStatus handles PATCH /api/projects/:id/status.
//
// @Summary      Approve or reject a pending project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "Project ID"
// @Param        body  body      projectStatusRequest  true  "Target status (APPROVED or REJECTED)"
// @Success      200   {object}  projectResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/projects/{id}/status [patch]
func (h *ProjectHandler) UpdateStatus(c echo.Context) error {
	var req projectStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	project, err := h.service.UpdateProjectStatus(c.Request().Context(), principal(c), c.Param("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProjectResponse(project))
}

// ListPublic handles GET /api/projects/public.
//
// @Summary      List approved projects
// @Tags         projects
// @Produce      json
// @Param        keyword  query     string  false  "Case-insensitive match on title or description"
// @Param        page     query     int     false  "Page number (default 1)"
// @Param        limit    query     int     false  "Items per page (default 20, max 100)"
// @Success      200      {object}  listProjectsResponse
// @Failure      400      {object}  errorResponse
// @Router       /api/projects/public [get]
func (h *ProjectHandler) ListPublic(c echo.Context) error {
	var q listProjectsQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	result, err := h.service.ListPublicProjects(c.Request().Context(), toListInput(q))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(result))
}

// ListMine handles GET /api/projects/my.
//
// @Summary      List the caller's projects
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by status"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20, max 100)"
// @Success      200     {object}  listProjectsResponse
// @Failure      400     {object}  errorResponse
// @Failure      401     {object}  errorResponse
// @Router       /api/projects/my [get]
func (h *ProjectHandler) ListMine(c echo.Context) error {
	var q listProjectsQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	result, err := h.service.ListMyProjects(c.Request().Context(), principal(c), toListInput(q))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(result))
}

// ListAll handles GET /api/projects/admin.
//
// @Summary      List all projects (admin)
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        keyword  query     string  false  "Case-insensitive match on title or description"
// @Param        status   query     string  false  "Filter by status"
// @Param        page     query     int     false  "Page number (default 1)"
// @Param        limit    query     int     false  "Items per page (default 20, max 100)"
// @Success      200      {object}  listProjectsResponse
// @Failure      400      {object}  errorResponse
// @Failure      403      {object}  errorResponse
// @Router       /api/projects/admin [get]
func (h *ProjectHandler) ListAll(c echo.Context) error {
	var q listProjectsQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	result, err := h.service.ListProjects(c.Request().Context(), principal(c), toListInput(q))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(result))
}
