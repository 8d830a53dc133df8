package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mrsawy/task-management/internal/domain"
	"github.com/mrsawy/task-management/internal/service"
)

func TestResolveStatus(t *testing.T) {
	// Fixed clock: mid-day so boundaries are unambiguous.
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	resolver := service.NewStatusResolver(time.UTC)

	tests := []struct {
		name      string
		dueDate   time.Time
		completed bool
		want      domain.TaskStatus
	}{
		{
			name:      "completed task is done even when overdue",
			dueDate:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			completed: true,
			want:      domain.TaskStatusDone,
		},
		{
			name:      "completed task is done even when due far in the future",
			dueDate:   time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
			completed: true,
			want:      domain.TaskStatusDone,
		},
		{
			name:    "due yesterday is missed",
			dueDate: time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC),
			want:    domain.TaskStatusMissed,
		},
		{
			name:    "due one second before midnight yesterday is missed",
			dueDate: time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC),
			want:    domain.TaskStatusMissed,
		},
		{
			name:    "due at midnight today is due today",
			dueDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			want:    domain.TaskStatusDueToday,
		},
		{
			name:    "due earlier today is still due today, not missed",
			dueDate: time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC),
			want:    domain.TaskStatusDueToday,
		},
		{
			name:    "due at end of today is due today",
			dueDate: time.Date(2026, 3, 15, 23, 59, 59, 0, time.UTC),
			want:    domain.TaskStatusDueToday,
		},
		{
			name:    "due at midnight tomorrow is upcoming",
			dueDate: time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
			want:    domain.TaskStatusUpcoming,
		},
		{
			name:    "due next week is upcoming",
			dueDate: time.Date(2026, 3, 22, 12, 0, 0, 0, time.UTC),
			want:    domain.TaskStatusUpcoming,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &domain.Task{DueDate: tt.dueDate, IsCompleted: tt.completed}
			assert.Equal(t, tt.want, resolver.Resolve(task, now))
		})
	}
}

func TestResolveStatusUsesConfiguredZone(t *testing.T) {
	// 03:00 UTC on the 15th is still the evening of the 14th at UTC-5.
	zone := time.FixedZone("UTC-5", -5*60*60)
	resolver := service.NewStatusResolver(zone)
	now := time.Date(2026, 3, 15, 3, 0, 0, 0, time.UTC)

	// Due 20:00 on the 14th in the configured zone: missed by the UTC
	// calendar, but still today locally.
	task := &domain.Task{DueDate: time.Date(2026, 3, 15, 1, 0, 0, 0, time.UTC)}
	assert.Equal(t, domain.TaskStatusDueToday, resolver.Resolve(task, now))

	// Due the 13th locally is a day behind: missed.
	task = &domain.Task{DueDate: time.Date(2026, 3, 13, 20, 0, 0, 0, time.UTC)}
	assert.Equal(t, domain.TaskStatusMissed, resolver.Resolve(task, now))
}

func TestResolverNilLocationDefaultsToUTC(t *testing.T) {
	resolver := service.NewStatusResolver(nil)
	assert.Equal(t, time.UTC, resolver.Location())
}
