package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth ---

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

// loginRequest accepts the account's username or email. "identifier" takes
// precedence over "username", which takes precedence over "email".
type loginRequest struct {
	Identifier string `json:"identifier,omitempty"`
	Username   string `json:"username,omitempty"`
	Email      string `json:"email,omitempty"`
	Password   string `json:"password"`
}

type authResponse struct {
	Token     string          `json:"token"`
	Type      string          `json:"type"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      accountResponse `json:"user"`
}

// --- Accounts ---

type accountResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Enabled   bool      `json:"enabled"`
	Locked    bool      `json:"locked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// --- Projects ---

type projectRequest struct {
	Title       string  `json:"title"       validate:"required,max=200"`
	Description string  `json:"description" validate:"required,min=10,max=5000"`
	GoalAmount  float64 `json:"goal_amount" validate:"required,gt=0"`
}

type projectStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type listProjectsQuery struct {
	Keyword string `query:"keyword"`
	Status  string `query:"status"`
	Page    int    `query:"page"  validate:"min=0"`
	Limit   int    `query:"limit" validate:"min=0"`
}

type projectLinks struct {
	Self   string `json:"self"`
	Submit string `json:"submit,omitempty"`
	Status string `json:"status,omitempty"`
}

type projectResponse struct {
	ID                 string       `json:"id"`
	Title              string       `json:"title"`
	Description        string       `json:"description"`
	GoalAmount         float64      `json:"goal_amount"`
	CurrentAmount      float64      `json:"current_amount"`
	ProgressPercentage float64      `json:"progress_percentage"`
	IsGoalReached      bool         `json:"is_goal_reached"`
	OwnerID            string       `json:"owner_id"`
	Status             string       `json:"status"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
	Links              projectLinks `json:"_links"`
}

type paginationResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type listProjectsResponse struct {
	Data       []projectResponse  `json:"data"`
	Pagination paginationResponse `json:"pagination"`
}
