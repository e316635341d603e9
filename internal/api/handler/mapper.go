package handler

import (
	"math"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
	"github.com/fourseasons/crowdfunding-api/internal/core/ports"
)

// --- Request → Service input ---

func toProjectInput(req projectRequest) ports.ProjectInput {
	return ports.ProjectInput{
		Title:       req.Title,
		Description: req.Description,
		GoalAmount:  req.GoalAmount,
	}
}

func toListInput(q listProjectsQuery) ports.ListProjectsInput {
	return ports.ListProjectsInput{
		Keyword: q.Keyword,
		Status:  q.Status,
		Page:    q.Page,
		Limit:   q.Limit,
	}
}

func (r loginRequest) identifier() string {
	switch {
	case r.Identifier != "":
		return r.Identifier
	case r.Username != "":
		return r.Username
	default:
		return r.Email
	}
}

// --- Service result → HTTP response ---

func toAuthResponse(r *ports.AuthResult) authResponse {
	return authResponse{
		Token:     r.Token,
		Type:      "Bearer",
		ExpiresAt: r.ExpiresAt.UTC(),
		User:      toAccountResponse(r.Account),
	}
}

func toAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Role:      a.Role.String(),
		Enabled:   a.Enabled,
		Locked:    a.ManuallyLocked,
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
}

func toProjectResponse(p *domain.Project) projectResponse {
	self := "/api/projects/" + p.ID
	links := projectLinks{Self: self}
	switch p.Status {
	case domain.ProjectDraft:
		links.Submit = self + "/submit"
	case domain.ProjectPending:
		links.Status = self + "/status"
	}

	return projectResponse{
		ID:                 p.ID,
		Title:              p.Title,
		Description:        p.Description,
		GoalAmount:         p.GoalAmount,
		CurrentAmount:      p.CurrentAmount,
		ProgressPercentage: progress(p.CurrentAmount, p.GoalAmount),
		IsGoalReached:      p.GoalAmount > 0 && p.CurrentAmount >= p.GoalAmount,
		OwnerID:            p.OwnerID,
		Status:             string(p.Status),
		CreatedAt:          p.CreatedAt.UTC(),
		UpdatedAt:          p.UpdatedAt.UTC(),
		Links:              links,
	}
}

// progress returns current/goal as a percentage rounded to two decimals.
func progress(current, goal float64) float64 {
	if goal <= 0 {
		return 0
	}
	return math.Round(current/goal*10000) / 100
}

func toListResponse(r *ports.ListProjectsResult) listProjectsResponse {
	data := make([]projectResponse, 0, len(r.Items))
	for _, p := range r.Items {
		data = append(data, toProjectResponse(p))
	}
	return listProjectsResponse{
		Data: data,
		Pagination: paginationResponse{
			Total:      r.Total,
			Page:       r.Page,
			Limit:      r.Limit,
			TotalPages: r.TotalPages,
		},
	}
}
