package api

import (
	"context"

	"tracker-api/domain"
)

// Storage abstracts the task collection for handlers.
type Storage interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	CreateTask(ctx context.Context, title, description string) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) (domain.Task, error)
}

// statusCoder is implemented by errors that carry an HTTP status hint.
// Anything else renders as a 500.
type statusCoder interface {
	error
	StatusCode() int
}
