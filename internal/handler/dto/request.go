package dto

import "github.com/mrsawy/task-management/internal/domain"

// CreateTaskRequest represents the request body for POST /tasks.
// due_date accepts RFC 3339 or a plain YYYY-MM-DD date.
type CreateTaskRequest struct {
	Title         string      `json:"title"`
	Description   string      `json:"description,omitempty"`
	DueDate       string      `json:"due_date"`
	Priority      string      `json:"priority"`
	AssigneeEmail string      `json:"assignee_email"`
	Meta          domain.Meta `json:"meta,omitempty"`
}

// UpdateTaskRequest represents the request body for PUT /tasks/{id}.
// Absent fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	DueDate     *string     `json:"due_date,omitempty"`
	Priority    *string     `json:"priority,omitempty"`
	IsCompleted *bool       `json:"is_completed,omitempty"`
	Meta        domain.Meta `json:"meta,omitempty"`
}

// ReassignTaskRequest represents the request body for PUT /tasks/{id}/assign.
type ReassignTaskRequest struct {
	AssigneeEmail string `json:"assignee_email"`
}
