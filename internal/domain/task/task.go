package task

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opshub/backend/internal/domain/shared"
)

// Status of a work item
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Task is a work item on the tenant's board
type Task struct {
	shared.BaseEntity
	UserID      uuid.UUID
	Title       string
	Description string
	Status      Status
	DueDate     *time.Time
	Source      string
}

// NewTask creates a pending task
func NewTask(userID uuid.UUID, title, description, source string) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Task title cannot be empty")
	}
	if len(title) > 500 {
		title = title[:500]
	}
	return &Task{
		BaseEntity:  shared.NewBaseEntity(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Status:      StatusPending,
		Source:      source,
	}, nil
}

// Complete marks the task done
func (t *Task) Complete() {
	t.Status = StatusCompleted
}

// CreatedBetween counts tasks created in [from, to)
func CreatedBetween(tasks []*Task, from, to time.Time) int {
	n := 0
	for _, t := range tasks {
		if !t.CreatedAt.Before(from) && t.CreatedAt.Before(to) {
			n++
		}
	}
	return n
}

// Repository persists a tenant's tasks
type Repository interface {
	ListTasks(ctx context.Context, userID uuid.UUID) ([]*Task, error)
	CreateTask(ctx context.Context, t *Task) error
}
