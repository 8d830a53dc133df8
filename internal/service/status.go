package service

import (
	"time"

	"github.com/mrsawy/task-management/internal/domain"
)

// StatusResolver derives a task's display status from its fields and an
// injected current time. Day boundaries are evaluated in the configured
// location, not by raw timestamp subtraction, so the status does not flicker
// around midnight for clients in that zone.
type StatusResolver struct {
	loc *time.Location
}

// NewStatusResolver creates a resolver for the given time zone.
// A nil location defaults to UTC.
func NewStatusResolver(loc *time.Location) *StatusResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &StatusResolver{loc: loc}
}

// Resolve maps a task to exactly one display status:
// done if completed (regardless of due date), missed if due before the start
// of the current calendar day, due_today if due within the current calendar
// day, upcoming otherwise.
func (r *StatusResolver) Resolve(task *domain.Task, now time.Time) domain.TaskStatus {
	if task.IsCompleted {
		return domain.TaskStatusDone
	}

	dayStart := r.StartOfDay(now)
	due := task.DueDate.In(r.loc)

	switch {
	case due.Before(dayStart):
		return domain.TaskStatusMissed
	case due.Before(dayStart.AddDate(0, 0, 1)):
		return domain.TaskStatusDueToday
	default:
		return domain.TaskStatusUpcoming
	}
}

// StartOfDay returns midnight of the current calendar day in the resolver's
// location.
func (r *StatusResolver) StartOfDay(now time.Time) time.Time {
	n := now.In(r.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, r.loc)
}

// Location returns the resolver's configured time zone.
func (r *StatusResolver) Location() *time.Location {
	return r.loc
}
