package api

import (
	"net/url"
	"strconv"
)

// User is the authenticated account as returned by the backend.
type User struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Email           string           `json:"email"`
	Preferences     *UserPreferences `json:"preferences,omitempty"`
	Avatar          string           `json:"avatar,omitempty"`
	LastLogin       string           `json:"lastLogin,omitempty"`
	IsEmailVerified bool             `json:"isEmailVerified,omitempty"`
}

// UserPreferences holds per-account display settings.
type UserPreferences struct {
	Theme         string `json:"theme,omitempty"`
	Notifications struct {
		Email bool `json:"email"`
		Push  bool `json:"push"`
	} `json:"notifications,omitempty"`
	TaskView string `json:"taskView,omitempty"`
}

// Task statuses.
const (
	StatusPending = "pending"
	StatusDone    = "done"
)

// Task is a single task record. Identity is ID (server-assigned, immutable);
// the client only ever holds a cached, possibly-stale copy.
type Task struct {
	ID          string   `json:"_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
	User        string   `json:"user"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
	CompletedAt string   `json:"completedAt,omitempty"`
}

// Pagination describes a page of list results.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalTasks  int  `json:"totalTasks"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
	Limit       int  `json:"limit"`
}

// TaskPage is the result of a task list query.
type TaskPage struct {
	Tasks      []Task     `json:"tasks"`
	Pagination Pagination `json:"pagination"`
}

// TaskStats is the derived aggregate over all of a user's tasks.
// CompletionRate is a rounded whole percentage, formatted as a string.
type TaskStats struct {
	TotalTasks     int    `json:"totalTasks"`
	CompletedTasks int    `json:"completedTasks"`
	PendingTasks   int    `json:"pendingTasks"`
	CompletionRate string `json:"completionRate"`
}

// ListParams are the task list query parameters. Zero/empty values are
// omitted from both the request and the cache key.
type ListParams struct {
	Page      int
	Limit     int
	Search    string
	Status    string
	Priority  string
	SortBy    string
	SortOrder string
}

// Values encodes the parameters as a query string, omitting empty filters.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Status != "" {
		v.Set("status", p.Status)
	}
	if p.Priority != "" {
		v.Set("priority", p.Priority)
	}
	if p.SortBy != "" {
		v.Set("sortBy", p.SortBy)
	}
	if p.SortOrder != "" {
		v.Set("sortOrder", p.SortOrder)
	}
	return v
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// ForgotPasswordRequest asks the backend to send a reset email.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest consumes a reset token.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// ProfileUpdate patches account fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=50"`
	Preferences *UserPreferences `json:"preferences,omitempty"`
	Avatar      *string          `json:"avatar,omitempty"`
}

// CreateTask is the payload for creating a task.
type CreateTask struct {
	Title       string   `json:"title" validate:"required,max=100"`
	Description string   `json:"description,omitempty" validate:"max=500"`
	Status      string   `json:"status,omitempty" validate:"omitempty,oneof=pending done"`
	Priority    string   `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Category    string   `json:"category,omitempty" validate:"max=50"`
	Tags        []string `json:"tags,omitempty"`
	DueDate     string   `json:"dueDate,omitempty"`
}

// UpdateTask is a partial patch of task fields. Nil fields are left unchanged.
type UpdateTask struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=500"`
	Status      *string   `json:"status,omitempty" validate:"omitempty,oneof=pending done"`
	Priority    *string   `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Category    *string   `json:"category,omitempty" validate:"omitempty,max=50"`
	Tags        *[]string `json:"tags,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
}

// AuthResponse is the success shape of login, register and reset-password.
type AuthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}
