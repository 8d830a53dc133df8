package domain

import "time"

// TaskStatus is the display classification of a task. It is derived from
// due_date and is_completed at read time and never persisted.
type TaskStatus string

const (
	TaskStatusDone     TaskStatus = "done"
	TaskStatusMissed   TaskStatus = "missed"
	TaskStatusDueToday TaskStatus = "due_today"
	TaskStatusUpcoming TaskStatus = "upcoming"
)

// TaskPriority represents the priority level of a task.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// IsValid checks if the priority is one of the allowed values.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	default:
		return false
	}
}

// Task represents a unit of work assigned by one user to another.
// A task always has exactly one creator and one assignee; they may be the
// same user.
type Task struct {
	ID          string
	CreatorID   string
	AssigneeID  string
	Title       string
	Description string
	DueDate     time.Time
	Priority    TaskPriority
	IsCompleted bool
	Meta        Meta
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsAssignedTo checks if the task is assigned to the given user.
func (t *Task) IsAssignedTo(userID string) bool {
	return t.AssigneeID == userID
}

// IsCreatedBy checks if the task was created by the given user.
func (t *Task) IsCreatedBy(userID string) bool {
	return t.CreatorID == userID
}
