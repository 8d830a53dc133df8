package service_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsawy/task-management/internal/domain"
	"github.com/mrsawy/task-management/internal/service"
)

func newValidator() *service.Validator {
	return service.NewValidator(service.NewStatusResolver(time.UTC))
}

func TestValidateCreateAcceptsValidParams(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	ve := newValidator().ValidateCreate(service.CreateTaskParams{
		Title:         "Prepare release notes",
		DueDate:       time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC),
		Priority:      domain.TaskPriorityHigh,
		AssigneeEmail: "bob@example.com",
	}, now)

	assert.Nil(t, ve)
}

func TestValidateCreateDueTodayIsAllowed(t *testing.T) {
	// The boundary is start of day, not the current instant: a due date
	// earlier today is still valid input.
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	ve := newValidator().ValidateCreate(service.CreateTaskParams{
		Title:         "Morning standup notes",
		DueDate:       time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC),
		Priority:      domain.TaskPriorityLow,
		AssigneeEmail: "bob@example.com",
	}, now)

	assert.Nil(t, ve)
}

func TestValidateCreateCollectsEveryViolation(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	ve := newValidator().ValidateCreate(service.CreateTaskParams{
		Title:         "",
		Priority:      domain.TaskPriority("urgent"),
		AssigneeEmail: "not-an-email",
	}, now)

	require.NotNil(t, ve)
	assert.Len(t, ve.Fields, 4)
	assert.Contains(t, ve.Fields, "title")
	assert.Contains(t, ve.Fields, "due_date")
	assert.Contains(t, ve.Fields, "priority")
	assert.Contains(t, ve.Fields, "assignee_email")
}

func TestValidateCreateRejectsPastDueDate(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	ve := newValidator().ValidateCreate(service.CreateTaskParams{
		Title:         "Backdated task",
		DueDate:       time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC),
		Priority:      domain.TaskPriorityMedium,
		AssigneeEmail: "bob@example.com",
	}, now)

	require.NotNil(t, ve)
	assert.Equal(t, "due date must be today or later", ve.Fields["due_date"])
}

func TestValidateCreateRejectsOverlongTitle(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	ve := newValidator().ValidateCreate(service.CreateTaskParams{
		Title:         strings.Repeat("x", 256),
		DueDate:       time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC),
		Priority:      domain.TaskPriorityLow,
		AssigneeEmail: "bob@example.com",
	}, now)

	require.NotNil(t, ve)
	assert.Contains(t, ve.Fields, "title")
}

func TestValidateUpdateIgnoresAbsentFields(t *testing.T) {
	assert.Nil(t, newValidator().ValidateUpdate(service.UpdateTaskParams{}))
}

func TestValidateUpdateChecksPresentFields(t *testing.T) {
	emptyTitle := ""
	badPriority := domain.TaskPriority("critical")

	ve := newValidator().ValidateUpdate(service.UpdateTaskParams{
		Title:    &emptyTitle,
		Priority: &badPriority,
	})

	require.NotNil(t, ve)
	assert.Len(t, ve.Fields, 2)
	assert.Contains(t, ve.Fields, "title")
	assert.Contains(t, ve.Fields, "priority")
}

func TestValidateAssigneeEmail(t *testing.T) {
	v := newValidator()

	assert.Nil(t, v.ValidateAssigneeEmail("carol@example.com"))

	ve := v.ValidateAssigneeEmail("")
	require.NotNil(t, ve)
	assert.Equal(t, "please enter the assignee email", ve.Fields["assignee_email"])

	ve = v.ValidateAssigneeEmail("nope")
	require.NotNil(t, ve)
	assert.Equal(t, "the email format is invalid", ve.Fields["assignee_email"])
}

func TestValidationErrorMessageListsFieldsSorted(t *testing.T) {
	ve := domain.NewValidationError()
	ve.Add("title", "title is required")
	ve.Add("due_date", "due date is required")

	assert.Equal(t, "validation failed: due_date: due date is required; title: title is required", ve.Error())
}
