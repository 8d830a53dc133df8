package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Domain-specific errors for business logic validation.
var (
	// Task errors
	ErrTaskNotFound = errors.New("task not found")

	// Permission errors
	ErrUnauthorized = errors.New("unauthorized")

	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidToken = errors.New("invalid authentication token")

	// Broadcast errors
	ErrSubscriptionRejected = errors.New("subscription rejected")
	ErrBroadcasterClosed    = errors.New("broadcaster is closed")
)

// ValidationError reports every violated field of a request, one message per
// field, so a caller can correct all of them in a single round trip.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates an empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a violation for a field. The first message per field wins.
func (e *ValidationError) Add(field, message string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// HasErrors reports whether any field violation was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s: %s", f, e.Fields[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
