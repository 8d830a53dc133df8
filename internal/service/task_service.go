package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mrsawy/task-management/internal/domain"
)

// TaskStore is the durable record of tasks. Every call is atomic: updates
// are direct field sets, never read-modify-write against stale state.
type TaskStore interface {
	GetByID(ctx context.Context, taskID string) (*domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	UpdateFields(ctx context.Context, taskID string, fields TaskFieldSet) (*domain.Task, error)
	// ToggleCompleted flips is_completed atomically in the store, so two
	// concurrent toggles compose instead of cancelling out.
	ToggleCompleted(ctx context.Context, taskID string) (*domain.Task, error)
	Delete(ctx context.Context, taskID string) error
	List(ctx context.Context, q ListQuery) ([]*domain.Task, error)
}

// UserDirectory resolves user identities for assignment.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// EventPublisher delivers domain events to connected clients. Delivery is
// best-effort; errors are the caller's to swallow.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// TaskFieldSet holds the fields of a partial update. Nil pointers are left
// untouched by the store.
type TaskFieldSet struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *domain.TaskPriority
	IsCompleted *bool
	AssigneeID  *string
	Meta        domain.Meta
}

// ListRole selects which side of a task relationship a listing covers.
type ListRole string

const (
	RoleAssignee ListRole = "assignee"
	RoleCreator  ListRole = "creator"
)

// SortField is a column a task listing may be ordered by. Sort input is
// restricted to this allow-list; anything else falls back to due_date.
type SortField string

const (
	SortByDueDate   SortField = "due_date"
	SortByPriority  SortField = "priority"
	SortByCreatedAt SortField = "created_at"
	SortByTitle     SortField = "title"
)

// ListQuery is the normalized query handed to the store.
type ListQuery struct {
	UserID     string
	Role       ListRole
	Completed  *bool
	Priority   *domain.TaskPriority
	SortBy     SortField
	Descending bool
}

// ListFilters holds raw, caller-supplied list options before normalization.
type ListFilters struct {
	Completed *bool
	Priority  *domain.TaskPriority
	SortBy    string
	SortOrder string
}

// CreateTaskParams holds the fields for creating a task.
type CreateTaskParams struct {
	Title         string
	Description   string
	DueDate       time.Time
	Priority      domain.TaskPriority
	AssigneeEmail string
	Meta          domain.Meta
}

// UpdateTaskParams holds the fields of a partial content update.
type UpdateTaskParams struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *domain.TaskPriority
	IsCompleted *bool
	Meta        domain.Meta
}

const defaultPublishTimeout = 3 * time.Second

// TaskService orchestrates validated task mutations: permission checks,
// field validation, persistence, and event emission.
type TaskService struct {
	store          TaskStore
	users          UserDirectory
	events         EventPublisher
	resolver       *StatusResolver
	validator      *Validator
	now            func() time.Time
	publishTimeout time.Duration
}

// NewTaskService creates a new TaskService.
func NewTaskService(store TaskStore, users UserDirectory, events EventPublisher, resolver *StatusResolver) *TaskService {
	return &TaskService{
		store:          store,
		users:          users,
		events:         events,
		resolver:       resolver,
		validator:      NewValidator(resolver),
		now:            time.Now,
		publishTimeout: defaultPublishTimeout,
	}
}

// Status derives the display status of a task at the current time.
func (s *TaskService) Status(task *domain.Task) domain.TaskStatus {
	return s.resolver.Resolve(task, s.now())
}

// Location returns the timezone that day-boundary decisions are made in.
func (s *TaskService) Location() *time.Location {
	return s.resolver.Location()
}

// Create validates the fields, resolves the assignee by email, persists the
// task, and notifies the assignee.
func (s *TaskService) Create(ctx context.Context, creatorID string, p CreateTaskParams) (*domain.Task, error) {
	ve := s.validator.ValidateCreate(p, s.now())
	if ve == nil {
		ve = domain.NewValidationError()
	}

	var assignee *domain.User
	if _, bad := ve.Fields["assignee_email"]; !bad {
		var err error
		assignee, err = s.users.GetByEmail(ctx, p.AssigneeEmail)
		if errors.Is(err, domain.ErrUserNotFound) {
			ve.Add("assignee_email", "assignee email not found")
		} else if err != nil {
			return nil, fmt.Errorf("resolve assignee: %w", err)
		}
	}

	if ve.HasErrors() {
		return nil, ve
	}

	task := &domain.Task{
		CreatorID:   creatorID,
		AssigneeID:  assignee.ID,
		Title:       p.Title,
		Description: p.Description,
		DueDate:     p.DueDate,
		Priority:    p.Priority,
		IsCompleted: false,
		Meta:        p.Meta.Clone(),
	}

	created, err := s.store.Create(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.publish(ctx, created.AssigneeID, domain.EventKindCreated, "New task created")

	slog.Info("task created",
		"task_id", created.ID,
		"creator_id", creatorID,
		"assignee_id", created.AssigneeID,
	)

	return created, nil
}

// Update applies a partial content edit. Only the assignee may update.
func (s *TaskService) Update(ctx context.Context, actingUserID, taskID string, p UpdateTaskParams) (*domain.Task, error) {
	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := CanEdit(actingUserID, task); err != nil {
		return nil, err
	}

	if ve := s.validator.ValidateUpdate(p); ve != nil {
		return nil, ve
	}

	updated, err := s.store.UpdateFields(ctx, taskID, TaskFieldSet{
		Title:       p.Title,
		Description: p.Description,
		DueDate:     p.DueDate,
		Priority:    p.Priority,
		IsCompleted: p.IsCompleted,
		Meta:        p.Meta,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, updated.AssigneeID, domain.EventKindUpdated, "Task updated")

	slog.Info("task updated", "task_id", taskID, "actor_id", actingUserID)

	return updated, nil
}

// Reassign hands the task to a new assignee, resolved by email. Only the
// creator may reassign. The notification goes to the new assignee.
func (s *TaskService) Reassign(ctx context.Context, actingUserID, taskID, newAssigneeEmail string) (*domain.Task, error) {
	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := CanReassign(actingUserID, task); err != nil {
		return nil, err
	}

	ve := s.validator.ValidateAssigneeEmail(newAssigneeEmail)
	if ve == nil {
		ve = domain.NewValidationError()
	}

	var newAssignee *domain.User
	if _, bad := ve.Fields["assignee_email"]; !bad {
		newAssignee, err = s.users.GetByEmail(ctx, newAssigneeEmail)
		if errors.Is(err, domain.ErrUserNotFound) {
			ve.Add("assignee_email", "assignee email not found")
		} else if err != nil {
			return nil, fmt.Errorf("resolve assignee: %w", err)
		}
	}

	if ve.HasErrors() {
		return nil, ve
	}

	updated, err := s.store.UpdateFields(ctx, taskID, TaskFieldSet{
		AssigneeID: &newAssignee.ID,
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, updated.AssigneeID, domain.EventKindReassigned, "You have a new task")

	slog.Info("task reassigned",
		"task_id", taskID,
		"actor_id", actingUserID,
		"assignee_id", updated.AssigneeID,
	)

	return updated, nil
}

// ToggleComplete flips the completion flag atomically in the store.
// Only the assignee may toggle.
func (s *TaskService) ToggleComplete(ctx context.Context, actingUserID, taskID string) (*domain.Task, error) {
	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := CanToggleComplete(actingUserID, task); err != nil {
		return nil, err
	}

	updated, err := s.store.ToggleCompleted(ctx, taskID)
	if err != nil {
		return nil, err
	}

	message := "Task marked as incomplete"
	if updated.IsCompleted {
		message = "Task marked as completed"
	}
	s.publish(ctx, updated.AssigneeID, domain.EventKindUpdated, message)

	slog.Info("task completion toggled",
		"task_id", taskID,
		"actor_id", actingUserID,
		"is_completed", updated.IsCompleted,
	)

	return updated, nil
}

// Delete removes the task permanently. Creator or assignee may delete.
// The final notification is emitted once the store confirms removal.
func (s *TaskService) Delete(ctx context.Context, actingUserID, taskID string) error {
	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return err
	}

	if err := CanDelete(actingUserID, task); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, taskID); err != nil {
		return err
	}

	s.publish(ctx, task.AssigneeID, domain.EventKindDeleted, "Task deleted")

	slog.Info("task deleted", "task_id", taskID, "actor_id", actingUserID)

	return nil
}

// Get returns a single task readable by the acting user.
func (s *TaskService) Get(ctx context.Context, actingUserID, taskID string) (*domain.Task, error) {
	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := CanView(actingUserID, task); err != nil {
		return nil, err
	}
	return task, nil
}

// List returns the user's tasks for the given role with filters applied.
// Listing is a pure read: it never emits events.
func (s *TaskService) List(ctx context.Context, userID string, role ListRole, f ListFilters) ([]*domain.Task, error) {
	return s.store.List(ctx, ListQuery{
		UserID:     userID,
		Role:       role,
		Completed:  f.Completed,
		Priority:   f.Priority,
		SortBy:     NormalizeSortField(f.SortBy),
		Descending: strings.EqualFold(f.SortOrder, "desc"),
	})
}

// NormalizeSortField maps caller input onto the sort allow-list.
// Unrecognized fields fall back to due_date rather than erroring, matching
// the listing's lenient filter handling.
func NormalizeSortField(field string) SortField {
	switch SortField(field) {
	case SortByDueDate, SortByPriority, SortByCreatedAt, SortByTitle:
		return SortField(field)
	default:
		return SortByDueDate
	}
}

// publish hands exactly one event to the broadcaster. The publish context is
// detached from the request so a client disconnect cannot suppress the
// notification, and bounded so a stalled broadcaster cannot block the
// mutation path. Failure is logged and dropped: the mutation already
// committed, clients reconcile via refetch.
func (s *TaskService) publish(ctx context.Context, recipientID string, kind domain.EventKind, message string) {
	if s.events == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	event := domain.Event{
		RecipientID: recipientID,
		Kind:        kind,
		Message:     message,
	}

	if err := s.events.Publish(pubCtx, event); err != nil {
		slog.Warn("event broadcast failed",
			"recipient_id", recipientID,
			"event_kind", kind,
			"error", err,
		)
	}
}
