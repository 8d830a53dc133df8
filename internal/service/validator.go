package service

import (
	"net/mail"
	"time"
	"unicode/utf8"

	"github.com/mrsawy/task-management/internal/domain"
)

const maxTitleLength = 255

// Validator handles field-level validation for task mutations. Every
// violated field is collected into a single ValidationError rather than
// failing on the first one.
type Validator struct {
	resolver *StatusResolver
}

// NewValidator creates a new Validator.
func NewValidator(resolver *StatusResolver) *Validator {
	return &Validator{resolver: resolver}
}

// ValidateCreate checks all fields of a create request.
// Returns nil when every field is valid.
func (v *Validator) ValidateCreate(p CreateTaskParams, now time.Time) *domain.ValidationError {
	ve := domain.NewValidationError()

	validateTitle(ve, p.Title)

	if p.DueDate.IsZero() {
		ve.Add("due_date", "due date is required")
	} else if p.DueDate.Before(v.resolver.StartOfDay(now)) {
		ve.Add("due_date", "due date must be today or later")
	}

	if !p.Priority.IsValid() {
		ve.Add("priority", "priority must be 'low', 'medium', or 'high'")
	}

	validateEmail(ve, "assignee_email", p.AssigneeEmail)

	if ve.HasErrors() {
		return ve
	}
	return nil
}

// ValidateUpdate checks only the fields present in a partial update.
func (v *Validator) ValidateUpdate(p UpdateTaskParams) *domain.ValidationError {
	ve := domain.NewValidationError()

	if p.Title != nil {
		validateTitle(ve, *p.Title)
	}
	if p.DueDate != nil && p.DueDate.IsZero() {
		ve.Add("due_date", "due date is required")
	}
	if p.Priority != nil && !p.Priority.IsValid() {
		ve.Add("priority", "priority must be 'low', 'medium', or 'high'")
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

// ValidateAssigneeEmail checks the email of a reassign request.
func (v *Validator) ValidateAssigneeEmail(email string) *domain.ValidationError {
	ve := domain.NewValidationError()
	validateEmail(ve, "assignee_email", email)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateTitle(ve *domain.ValidationError, title string) {
	if title == "" {
		ve.Add("title", "title is required")
		return
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		ve.Add("title", "title must be at most 255 characters")
	}
}

func validateEmail(ve *domain.ValidationError, field, email string) {
	if email == "" {
		ve.Add(field, "please enter the assignee email")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		ve.Add(field, "the email format is invalid")
	}
}
