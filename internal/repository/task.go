package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mrsawy/task-management/internal/domain"
	"github.com/mrsawy/task-management/internal/service"
)

// taskColumns is the shared list of columns for task queries.
var taskColumns = []string{
	"id", "creator_id", "assignee_id", "title", "description",
	"due_date", "priority", "is_completed", "meta",
	"created_at", "updated_at",
}

// TaskRepository handles database operations for tasks. It is the durable
// Task Store behind the mutation service: every method is a single atomic
// statement.
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// scanTask scans a single row into a Task struct.
func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.CreatorID,
		&task.AssigneeID,
		&task.Title,
		&task.Description,
		&task.DueDate,
		&task.Priority,
		&task.IsCompleted,
		&task.Meta,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &task, nil
}

// scanTasks scans multiple rows into a slice of Task structs.
func scanTasks(rows pgx.Rows) ([]*domain.Task, error) {
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tasks, nil
}

// GetByID retrieves a task by ID.
func (r *TaskRepository) GetByID(ctx context.Context, taskID string) (*domain.Task, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build GetByID query for task: %w", err)
	}

	return scanTask(r.pool.QueryRow(ctx, query, args...))
}

// Create inserts a new task and returns it with generated fields populated.
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task.Meta == nil {
		task.Meta = domain.Meta{}
	}

	query, args, err := psql.
		Insert("tasks").
		Columns(
			"creator_id", "assignee_id", "title", "description",
			"due_date", "priority", "is_completed", "meta",
		).
		Values(
			task.CreatorID,
			task.AssigneeID,
			task.Title,
			task.Description,
			task.DueDate,
			task.Priority,
			task.IsCompleted,
			task.Meta,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build Create query for task: %w", err)
	}

	err = r.pool.QueryRow(ctx, query, args...).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	return task, nil
}

// UpdateFields applies the provided fields as a direct set. Fields left nil
// are untouched, so the statement never does a read-modify-write cycle.
func (r *TaskRepository) UpdateFields(ctx context.Context, taskID string, fields service.TaskFieldSet) (*domain.Task, error) {
	qb := psql.Update("tasks").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": taskID}).
		Suffix("RETURNING " + joinColumns(taskColumns))

	if fields.Title != nil {
		qb = qb.Set("title", *fields.Title)
	}
	if fields.Description != nil {
		qb = qb.Set("description", *fields.Description)
	}
	if fields.DueDate != nil {
		qb = qb.Set("due_date", *fields.DueDate)
	}
	if fields.Priority != nil {
		qb = qb.Set("priority", *fields.Priority)
	}
	if fields.IsCompleted != nil {
		qb = qb.Set("is_completed", *fields.IsCompleted)
	}
	if fields.AssigneeID != nil {
		qb = qb.Set("assignee_id", *fields.AssigneeID)
	}
	if fields.Meta != nil {
		qb = qb.Set("meta", fields.Meta)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build UpdateFields query for task %s: %w", taskID, err)
	}

	return scanTask(r.pool.QueryRow(ctx, query, args...))
}

// ToggleCompleted flips is_completed inside the database, so concurrent
// toggles compose instead of cancelling each other out.
func (r *TaskRepository) ToggleCompleted(ctx context.Context, taskID string) (*domain.Task, error) {
	query, args, err := psql.
		Update("tasks").
		Set("is_completed", sq.Expr("NOT is_completed")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": taskID}).
		Suffix("RETURNING " + joinColumns(taskColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ToggleCompleted query for task %s: %w", taskID, err)
	}

	return scanTask(r.pool.QueryRow(ctx, query, args...))
}

// Delete removes a task permanently. No soft delete.
func (r *TaskRepository) Delete(ctx context.Context, taskID string) error {
	query, args, err := psql.
		Delete("tasks").
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build Delete query for task %s: %w", taskID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}

	return nil
}

// List retrieves a user's tasks for one role with filters and ordering.
// The sort column comes from the service's allow-list, never raw input.
func (r *TaskRepository) List(ctx context.Context, q service.ListQuery) ([]*domain.Task, error) {
	qb := psql.Select(taskColumns...).From("tasks")

	switch q.Role {
	case service.RoleCreator:
		qb = qb.Where(sq.Eq{"creator_id": q.UserID})
	default:
		qb = qb.Where(sq.Eq{"assignee_id": q.UserID})
	}

	if q.Completed != nil {
		qb = qb.Where(sq.Eq{"is_completed": *q.Completed})
	}
	if q.Priority != nil {
		qb = qb.Where(sq.Eq{"priority": *q.Priority})
	}

	qb = qb.OrderBy(orderClause(q.SortBy, q.Descending))

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build List query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	return scanTasks(rows)
}

// orderClause maps an allow-listed sort field to its ORDER BY expression.
// Priority sorts by rank, not alphabetically.
func orderClause(field service.SortField, descending bool) string {
	dir := "ASC"
	if descending {
		dir = "DESC"
	}

	switch field {
	case service.SortByPriority:
		return "CASE priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 END " + dir
	case service.SortByCreatedAt:
		return "created_at " + dir
	case service.SortByTitle:
		return "title " + dir
	default:
		return "due_date " + dir
	}
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
