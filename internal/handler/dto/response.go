package dto

import (
	"time"

	"github.com/mrsawy/task-management/internal/domain"
)

// TaskResponse represents a task in API responses. Status is derived at
// response time, never read from storage.
type TaskResponse struct {
	ID          string      `json:"id"`
	CreatorID   string      `json:"creator_id"`
	AssigneeID  string      `json:"assignee_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	DueDate     time.Time   `json:"due_date"`
	Priority    string      `json:"priority"`
	IsCompleted bool        `json:"is_completed"`
	Status      string      `json:"status"`
	Meta        domain.Meta `json:"meta,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TasksListResponse represents the response for task listings.
type TasksListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Total int            `json:"total"`
}

// MessageResponse represents a bare confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ToTaskResponse converts a domain.Task plus its derived status.
func ToTaskResponse(task *domain.Task, status domain.TaskStatus) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		CreatorID:   task.CreatorID,
		AssigneeID:  task.AssigneeID,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate,
		Priority:    string(task.Priority),
		IsCompleted: task.IsCompleted,
		Status:      string(status),
		Meta:        task.Meta,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}
