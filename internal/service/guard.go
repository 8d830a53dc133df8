package service

import (
	"fmt"

	"github.com/mrsawy/task-management/internal/domain"
)

// Permission guard: stateless predicates deciding which mutations a user may
// perform on a task. Denials are explicit ErrUnauthorized errors, never
// silent no-ops.

// CanEdit validates that the user may change task content
// (title, description, due date, priority, completion flag).
func CanEdit(userID string, task *domain.Task) error {
	if !task.IsAssignedTo(userID) {
		return fmt.Errorf("%w: only the assignee can update task %s", domain.ErrUnauthorized, task.ID)
	}
	return nil
}

// CanToggleComplete validates that the user may flip the completion flag.
// Same rule as CanEdit: the guard keeps non-assignees from mutating the
// flag, it does not hide completion state from the creator.
func CanToggleComplete(userID string, task *domain.Task) error {
	if !task.IsAssignedTo(userID) {
		return fmt.Errorf("%w: only the assignee can complete task %s", domain.ErrUnauthorized, task.ID)
	}
	return nil
}

// CanReassign validates that the user may hand the task to a new assignee.
func CanReassign(userID string, task *domain.Task) error {
	if !task.IsCreatedBy(userID) {
		return fmt.Errorf("%w: only the creator can reassign task %s", domain.ErrUnauthorized, task.ID)
	}
	return nil
}

// CanDelete validates that the user may delete the task.
func CanDelete(userID string, task *domain.Task) error {
	if !task.IsCreatedBy(userID) && !task.IsAssignedTo(userID) {
		return fmt.Errorf("%w: only the creator or assignee can delete task %s", domain.ErrUnauthorized, task.ID)
	}
	return nil
}

// CanView validates that the user may read the task.
func CanView(userID string, task *domain.Task) error {
	if !task.IsCreatedBy(userID) && !task.IsAssignedTo(userID) {
		return fmt.Errorf("%w: only the creator or assignee can view task %s", domain.ErrUnauthorized, task.ID)
	}
	return nil
}
